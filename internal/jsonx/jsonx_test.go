package jsonx

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestExtractPlainObject(t *testing.T) {
	result := Extract(`{"key": "value", "num": 42}`)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestExtractWithCodeFence(t *testing.T) {
	result := Extract("```json\n{\"key\": \"value\"}\n```")
	if result == nil || result["key"] != "value" {
		t.Fatalf("expected key='value', got %v", result)
	}
}

func TestExtractUnclosedCodeFence(t *testing.T) {
	// truncated response loses the closing fence; payload still parses
	result := Extract("```json\n{\"a\": 1}")
	if result == nil || result["a"] != float64(1) {
		t.Fatalf("expected a=1, got %v", result)
	}
}

func TestExtractEmbeddedInProse(t *testing.T) {
	original := `{"brand": "Kimai", "ads": [{"id": 1, "headline": "Visit us"}]}`
	text := "Here is the extraction result you asked for:\n" + original + "\nLet me know if you need anything else."

	result := Extract(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}

	var want map[string]any
	if err := json.Unmarshal([]byte(original), &want); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("round-trip mismatch:\n got %v\nwant %v", result, want)
	}
}

func TestExtractBracesInsideStrings(t *testing.T) {
	result := Extract(`{"headline": "Save {10%} today", "id": 3}`)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["headline"] != "Save {10%} today" {
		t.Errorf("unexpected headline: %v", result["headline"])
	}
}

func TestExtractTrailingComma(t *testing.T) {
	result := Extract(`{"ads": [{"id": 1},], "brand": "Kimai",}`)
	if result == nil {
		t.Fatal("expected trailing commas to be repaired")
	}
	if result["brand"] != "Kimai" {
		t.Errorf("expected brand='Kimai', got %v", result["brand"])
	}
}

func TestExtractEllipsisMarker(t *testing.T) {
	result := Extract(`{"brand": "Kimai", "ads": [{"id": 1}, ...]}`)
	if result == nil {
		t.Fatal("expected ellipsis marker to be repaired")
	}
	ads, ok := result["ads"].([]any)
	if !ok || len(ads) != 1 {
		t.Errorf("expected 1 ad, got %v", result["ads"])
	}
}

func TestExtractTruncatedArraySalvage(t *testing.T) {
	// Agent output cut off mid-way through the second ad.
	text := `{"brand": "Kimai", "market": "UK", "ads": [` +
		`{"id": 1, "primary_text": "Ethical luxury", "headline": "Visit us"}, ` +
		`{"id": 2, "primary_text": "Lab-grown diam`

	result := Extract(text)
	if result == nil {
		t.Fatal("expected salvage to recover the complete ad")
	}

	ads, ok := result["ads"].([]any)
	if !ok {
		t.Fatalf("expected ads array, got %T", result["ads"])
	}
	if len(ads) != 1 {
		t.Fatalf("expected exactly 1 salvaged ad, got %d", len(ads))
	}
	ad := ads[0].(map[string]any)
	if ad["id"] != float64(1) {
		t.Errorf("expected salvaged ad id=1, got %v", ad["id"])
	}
	if result["brand"] != "Kimai" {
		t.Errorf("expected recovered brand='Kimai', got %v", result["brand"])
	}
	if result["market"] != "UK" {
		t.Errorf("expected recovered market='UK', got %v", result["market"])
	}
}

func TestExtractSalvageSkipsObjectsWithoutID(t *testing.T) {
	text := `{"ads": [{"note": "not an ad"}, {"library_id": "123", "primary_text": "x"}, {"id": 4`
	result := Extract(text)
	if result == nil {
		t.Fatal("expected salvage result")
	}
	ads := result["ads"].([]any)
	if len(ads) != 1 {
		t.Fatalf("expected 1 salvaged ad, got %d", len(ads))
	}
	if ads[0].(map[string]any)["library_id"] != "123" {
		t.Errorf("expected library_id ad to survive, got %v", ads[0])
	}
}

func TestExtractNoJSON(t *testing.T) {
	for _, text := range []string{"", "   \n  ", "no json at all", "]]]}"} {
		if result := Extract(text); result != nil {
			t.Errorf("Extract(%q) = %v, want nil", text, result)
		}
	}
}

func TestExtractNeverPanics(t *testing.T) {
	inputs := []string{
		`{"ads": [{"id": 1,`,
		`{{{{`,
		`{"a": "unterminated`,
		strings.Repeat("{", 10000),
		"```\n{\"a\":",
		`{"ads": [`,
	}
	for _, in := range inputs {
		// Any of these returning nil is fine; panicking is not.
		Extract(in)
	}
}

func TestExtractDeterministic(t *testing.T) {
	text := `junk {"ads": [{"id": 1}, {"id": 2}], "brand": "Acme",} junk`
	first := Extract(text)
	for i := 0; i < 10; i++ {
		if got := Extract(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differed: %v vs %v", i, got, first)
		}
	}
}

func TestStringAndIntHelpers(t *testing.T) {
	obj := map[string]any{"s": "hello", "n": float64(7), "b": true}
	if got := String(obj, "s", "x"); got != "hello" {
		t.Errorf("String = %q", got)
	}
	if got := String(obj, "missing", "x"); got != "x" {
		t.Errorf("String fallback = %q", got)
	}
	if got := String(obj, "b", "x"); got != "x" {
		t.Errorf("String on non-string = %q", got)
	}
	if got := Int(obj, "n", -1); got != 7 {
		t.Errorf("Int = %d", got)
	}
	if got := Int(obj, "s", -1); got != -1 {
		t.Errorf("Int fallback = %d", got)
	}
}
