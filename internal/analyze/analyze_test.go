package analyze

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lmarchal/adscope/internal/ads"
)

// mockProvider returns queued responses in order; an entry with a
// non-nil err simulates a collaborator failure.
type mockProvider struct {
	responses []mockResponse
	calls     int
	prompts   []string
}

type mockResponse struct {
	text string
	err  error
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.calls >= len(m.responses) {
		return "", fmt.Errorf("unexpected call %d", m.calls)
	}
	r := m.responses[m.calls]
	m.calls++
	return r.text, r.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func classification(hook string, score int) string {
	return fmt.Sprintf(`{"language": "English", "hook_type": %q, "market_strategy": "Brand Awareness", "funnel_stage": "TOFU", "score": %d, "key_insight": "works"}`, hook, score)
}

func testAd(id int64, text string) ads.Ad {
	return ads.Ad{
		ID:          id,
		PrimaryText: text,
		Headline:    fmt.Sprintf("Headline %d", id),
		CTA:         "Shop Now",
		Format:      "Video",
		FirstSeen:   "2025-03-10",
	}
}

func TestClassifyAdSuccess(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{{text: "Sure! Here it is:\n" + classification("EMOTIONAL", 8)}}}
	a := New(mock, "", 0)

	analysis := a.ClassifyAd(context.Background(), testAd(1, "Ethical luxury"), "Kimai", "UK")
	if analysis.Failed() {
		t.Fatalf("unexpected failure: %s", analysis.Err)
	}
	c := analysis.Classification
	if c.HookType != "EMOTIONAL" || c.Score != 8 {
		t.Errorf("unexpected classification: %+v", c)
	}

	prompt := mock.prompts[0]
	if !strings.Contains(prompt, "Kimai") || !strings.Contains(prompt, "Ethical luxury") {
		t.Errorf("prompt missing interpolated fields:\n%s", prompt)
	}
}

func TestClassifyAdProviderError(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{{err: fmt.Errorf("rate limited")}}}
	a := New(mock, "", 0)

	analysis := a.ClassifyAd(context.Background(), testAd(1, "x"), "Kimai", "UK")
	if !analysis.Failed() {
		t.Fatal("expected failure")
	}
	if analysis.Err != "rate limited" {
		t.Errorf("Err = %q", analysis.Err)
	}
}

func TestClassifyAdUnparseableResponse(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{{text: "I cannot analyze this ad."}}}
	a := New(mock, "", 0)

	analysis := a.ClassifyAd(context.Background(), testAd(1, "x"), "Kimai", "UK")
	if !analysis.Failed() {
		t.Fatal("expected failure")
	}
	if analysis.Err != "Could not parse JSON" {
		t.Errorf("Err = %q", analysis.Err)
	}
	if analysis.Raw != "I cannot analyze this ad." {
		t.Errorf("Raw = %q", analysis.Raw)
	}
}

func TestClassifyAdMessageStrategyAlias(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{{
		text: `{"hook_type": "RATIONAL", "message_strategy": "Retargeting", "funnel_stage": "BOFU", "score": 6, "key_insight": "x"}`,
	}}}
	a := New(mock, "", 0)

	analysis := a.ClassifyAd(context.Background(), testAd(1, "x"), "Kimai", "UK")
	if analysis.Failed() {
		t.Fatalf("unexpected failure: %s", analysis.Err)
	}
	if analysis.Classification.MarketStrategy != "Retargeting" {
		t.Errorf("MarketStrategy = %q", analysis.Classification.MarketStrategy)
	}
}

func TestClassifyAdScoreClamped(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{
		{text: `{"hook_type": "URGENCY", "score": 99}`},
		{text: `{"hook_type": "URGENCY", "score": -3}`},
	}}
	a := New(mock, "", 0)

	high := a.ClassifyAd(context.Background(), testAd(1, "x"), "Kimai", "UK")
	low := a.ClassifyAd(context.Background(), testAd(2, "y"), "Kimai", "UK")
	if high.Classification.Score != 10 {
		t.Errorf("high score = %d, want 10", high.Classification.Score)
	}
	if low.Classification.Score != 0 {
		t.Errorf("low score = %d, want 0", low.Classification.Score)
	}
}

func TestClassifyAdNoProvider(t *testing.T) {
	a := New(nil, "", 0)
	analysis := a.ClassifyAd(context.Background(), testAd(1, "x"), "Kimai", "UK")
	if !analysis.Failed() {
		t.Fatal("expected failure without provider")
	}
}

func TestAnalyzeBatchAverageOverSuccessesOnly(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{
		{text: classification("EMOTIONAL", 5)},
		{err: fmt.Errorf("boom")},
		{text: classification("URGENCY", 9)},
	}}
	a := New(mock, "", 0)

	extraction := &ads.Extraction{
		Brand:  "Kimai",
		Market: "UK",
		Ads:    []ads.Ad{testAd(1, "one"), testAd(2, "two"), testAd(3, "three")},
	}
	result := a.AnalyzeBatch(context.Background(), extraction)

	if len(result.Ads) != 3 {
		t.Fatalf("expected all 3 ads retained, got %d", len(result.Ads))
	}
	if !result.Ads[1].Analysis.Failed() {
		t.Error("expected ad 2 to carry an error record")
	}
	if result.Ads[0].Analysis.Failed() || result.Ads[2].Analysis.Failed() {
		t.Error("expected ads 1 and 3 to succeed")
	}
	if result.Summary.TotalAnalyzed != 3 {
		t.Errorf("TotalAnalyzed = %d, want 3", result.Summary.TotalAnalyzed)
	}
	if result.Summary.AverageScore != 7.0 {
		t.Errorf("AverageScore = %v, want 7.0 (mean of 5 and 9)", result.Summary.AverageScore)
	}
	if result.Summary.HookDistribution["EMOTIONAL"] != 1 || result.Summary.HookDistribution["URGENCY"] != 1 {
		t.Errorf("hook distribution = %v", result.Summary.HookDistribution)
	}
}

func TestAnalyzeBatchZeroSuccesses(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{
		{err: fmt.Errorf("down")},
		{err: fmt.Errorf("down")},
	}}
	a := New(mock, "", 0)

	extraction := &ads.Extraction{Brand: "Kimai", Ads: []ads.Ad{testAd(1, "a"), testAd(2, "b")}}
	result := a.AnalyzeBatch(context.Background(), extraction)

	if result.Summary.AverageScore != 0 {
		t.Errorf("AverageScore = %v, want 0", result.Summary.AverageScore)
	}
	if result.Summary.TotalAnalyzed != 2 {
		t.Errorf("TotalAnalyzed = %d, want 2", result.Summary.TotalAnalyzed)
	}
	if len(result.Summary.HookDistribution) != 0 {
		t.Errorf("hook distribution should be empty, got %v", result.Summary.HookDistribution)
	}
}

func TestAnalyzeBatchRounding(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{
		{text: classification("EMOTIONAL", 7)},
		{text: classification("EMOTIONAL", 8)},
		{text: classification("EMOTIONAL", 8)},
	}}
	a := New(mock, "", 0)

	extraction := &ads.Extraction{Brand: "Kimai", Ads: []ads.Ad{testAd(1, "a"), testAd(2, "b"), testAd(3, "c")}}
	result := a.AnalyzeBatch(context.Background(), extraction)

	// 23/3 = 7.666..., rounded to one decimal.
	if result.Summary.AverageScore != 7.7 {
		t.Errorf("AverageScore = %v, want 7.7", result.Summary.AverageScore)
	}
}

func TestAnalyzeBatchUnknownBuckets(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{
		{text: `{"score": 5, "key_insight": "no categories"}`},
	}}
	a := New(mock, "", 0)

	ad := ads.Ad{ID: 1, PrimaryText: "text"} // no format, cta, or date
	result := a.AnalyzeBatch(context.Background(), &ads.Extraction{Brand: "Kimai", Ads: []ads.Ad{ad}})

	s := result.Summary
	for name, d := range map[string]ads.Distribution{
		"hook":     s.HookDistribution,
		"funnel":   s.FunnelDistribution,
		"strategy": s.StrategyDistribution,
		"format":   s.FormatDistribution,
		"cta":      s.CTADistribution,
		"timeline": s.TimelineDistribution,
	} {
		if d[ads.Unknown] != 1 {
			t.Errorf("%s distribution = %v, want UNKNOWN:1", name, d)
		}
	}
}

func TestAnalyzeBatchTimelineAndUniqueness(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{
		{text: classification("EMOTIONAL", 7)},
		{text: classification("EMOTIONAL", 7)},
		{text: classification("EMOTIONAL", 7)},
	}}
	a := New(mock, "", 0)

	long := strings.Repeat("z", 250)
	adsIn := []ads.Ad{
		{ID: 1, PrimaryText: long, Headline: "H1", FirstSeen: "2025-03-10"},
		{ID: 2, PrimaryText: long + "different tail", Headline: "H1", FirstSeen: "2025-03-28"},
		{ID: 3, PrimaryText: "other", Headline: "H2", FirstSeen: "2025-11-07"},
	}
	result := a.AnalyzeBatch(context.Background(), &ads.Extraction{Brand: "Kimai", Ads: adsIn})

	s := result.Summary
	if s.TimelineDistribution["2025-03"] != 2 || s.TimelineDistribution["2025-11"] != 1 {
		t.Errorf("timeline = %v", s.TimelineDistribution)
	}
	// Ads 1 and 2 share their first 200 characters.
	if s.UniquePrimaryTexts != 2 {
		t.Errorf("UniquePrimaryTexts = %d, want 2", s.UniquePrimaryTexts)
	}
	if s.UniqueHeadlines != 2 {
		t.Errorf("UniqueHeadlines = %d, want 2", s.UniqueHeadlines)
	}
}

func TestAnalyzeBatchPreservesOrder(t *testing.T) {
	mock := &mockProvider{responses: []mockResponse{
		{text: classification("EMOTIONAL", 1)},
		{text: classification("EMOTIONAL", 2)},
		{text: classification("EMOTIONAL", 3)},
	}}
	a := New(mock, "", 0)

	adsIn := []ads.Ad{testAd(10, "a"), testAd(20, "b"), testAd(30, "c")}
	result := a.AnalyzeBatch(context.Background(), &ads.Extraction{Brand: "Kimai", Ads: adsIn})

	for i, want := range []int64{10, 20, 30} {
		if result.Ads[i].ID != want {
			t.Errorf("ads[%d].ID = %d, want %d", i, result.Ads[i].ID, want)
		}
	}
}
