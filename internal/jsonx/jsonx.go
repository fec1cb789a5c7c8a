// Package jsonx recovers JSON objects from free text produced by LLMs
// and browser agents. Responses are frequently wrapped in prose or
// markdown fences, and long extractions get truncated mid-array, so
// parsing runs through an ordered chain of repair strategies before
// giving up.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	ellipsisRe      = regexp.MustCompile(`,?\s*(?:\.\.\.|…)`)
	adsArrayRe      = regexp.MustCompile(`"ads"\s*:\s*\[`)
	brandFieldRe    = regexp.MustCompile(`"brand"\s*:\s*"([^"]*)"`)
	marketFieldRe   = regexp.MustCompile(`"market"\s*:\s*"([^"]*)"`)
)

// repairs are tried in order, cumulatively, after a direct parse fails.
var repairs = []struct {
	name string
	fn   func(string) string
}{
	{"trailing-commas", stripTrailingCommas},
	{"ellipsis-markers", stripEllipsisMarkers},
}

// Extract locates and parses the first JSON object embedded in text.
// It tolerates surrounding prose, markdown code fences, trailing commas,
// ellipsis markers, and truncation. Returns nil when no object can be
// recovered; it never panics.
func Extract(text string) map[string]any {
	text = stripFences(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return nil
	}

	var candidate string
	if end := matchObject(text, start); end != -1 {
		candidate = text[start : end+1]
	} else if end := strings.LastIndex(text, "}"); end > start {
		// Source was cut off mid-object; take the last close brace as
		// the boundary and let the repair chain clean up the tail.
		candidate = text[start : end+1]
	} else {
		return salvage(text)
	}

	if obj := parseObject(candidate); obj != nil {
		return obj
	}

	repaired := candidate
	for _, r := range repairs {
		repaired = r.fn(repaired)
		if obj := parseObject(repaired); obj != nil {
			return obj
		}
	}

	return salvage(text)
}

// ExtractArrayStrings returns the string elements of an array-valued key
// in a decoded object, ignoring anything that is not a string.
func ExtractArrayStrings(obj map[string]any, key string) []string {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// String returns the string value for key, or fallback.
func String(obj map[string]any, key, fallback string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return fallback
}

// Int returns the integer value for key, or fallback. JSON numbers
// decode as float64.
func Int(obj map[string]any, key string, fallback int) int {
	switch n := obj[key].(type) {
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return fallback
}

func parseObject(s string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	// Truncated responses can lose the closing fence; keep everything
	// after the opening fence in that case.
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.Join(lines[1:endIdx], "\n")
}

// matchObject returns the index of the close brace matching the open
// brace at start, or -1 if the object is never closed. String literals
// and escapes are honored so braces inside ad copy don't confuse the
// count.
func matchObject(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func stripTrailingCommas(s string) string {
	for {
		out := trailingCommaRe.ReplaceAllString(s, "$1")
		if out == s {
			return out
		}
		s = out
	}
}

func stripEllipsisMarkers(s string) string {
	return ellipsisRe.ReplaceAllString(s, "")
}

// salvage recovers what it can from text that never parsed as a whole:
// every brace-balanced sub-object inside an "ads" array region that
// independently parses and carries an identifier, plus any top-level
// brand/market strings reachable by regex. Returns a synthesized
// container holding only those parts, or nil when nothing is usable.
func salvage(text string) map[string]any {
	loc := adsArrayRe.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	var items []any
	for i := loc[1]; i < len(text); {
		off := strings.IndexByte(text[i:], '{')
		if off == -1 {
			break
		}
		start := i + off
		end := matchObject(text, start)
		if end == -1 {
			// Truncated object; everything after it is incomplete.
			break
		}
		if obj := parseObject(text[start : end+1]); obj != nil && hasIdentifier(obj) {
			items = append(items, obj)
		}
		i = end + 1
	}
	if len(items) == 0 {
		return nil
	}

	out := map[string]any{"ads": items}
	if m := brandFieldRe.FindStringSubmatch(text); m != nil {
		out["brand"] = m[1]
	}
	if m := marketFieldRe.FindStringSubmatch(text); m != nil {
		out["market"] = m[1]
	}
	return out
}

func hasIdentifier(obj map[string]any) bool {
	if _, ok := obj["id"]; ok {
		return true
	}
	_, ok := obj["library_id"]
	return ok
}
