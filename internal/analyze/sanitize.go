package analyze

import (
	"strings"
	"unicode/utf8"
)

// Default per-field length caps for prompt interpolation.
const (
	MaxBodyLength     = 2000
	MaxHeadlineLength = 500
	MaxShortLength    = 100
)

// Sanitize prepares scraped text for interpolation into LLM prompts and
// JSON payloads. Empty input maps to "N/A", surrogate code points and
// invalid UTF-8 bytes are dropped (they make strict JSON encoders
// fail), and anything longer than maxLength runes is truncated with an
// ellipsis suffix. It never fails.
func Sanitize(text string, maxLength int) string {
	if text == "" {
		return "N/A"
	}

	var b strings.Builder
	b.Grow(len(text))
	kept := 0
	truncated := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r >= 0xD800 && r <= 0xDFFF {
			continue
		}
		if r == utf8.RuneError && size == 1 {
			// Invalid byte, typically an unpaired surrogate half.
			continue
		}
		if kept == maxLength {
			truncated = true
			break
		}
		b.WriteRune(r)
		kept++
	}

	out := b.String()
	if out == "" {
		return "N/A"
	}
	if truncated {
		out += "..."
	}
	return out
}
