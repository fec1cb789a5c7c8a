// Package ads holds the data model flowing through the analysis
// pipeline: extracted Ad Library creatives, their classification
// results, and the aggregate summary handed to reporting.
package ads

import (
	"encoding/json"
	"strings"
)

// Hook types assigned by the classifier.
const (
	HookEmotional   = "EMOTIONAL"
	HookRational    = "RATIONAL"
	HookSocialProof = "SOCIAL_PROOF"
	HookUrgency     = "URGENCY"
	HookCuriosity   = "CURIOSITY"
)

// Funnel stages.
const (
	FunnelTOFU = "TOFU"
	FunnelMOFU = "MOFU"
	FunnelBOFU = "BOFU"
)

// Unknown is the bucket for absent categorical fields.
const Unknown = "UNKNOWN"

// Ad is one creative extracted from the Ad Library. Records are
// immutable after extraction except for the attached Analysis.
type Ad struct {
	ID          int64    `json:"id"`
	LibraryID   string   `json:"library_id,omitempty"`
	Advertiser  string   `json:"advertiser,omitempty"`
	PrimaryText string   `json:"primary_text"`
	Headline    string   `json:"headline"`
	CTA         string   `json:"cta"`
	Format      string   `json:"format"`
	FirstSeen   string   `json:"first_seen"`
	Platforms   []string `json:"platforms,omitempty"`
	Impressions string   `json:"impressions,omitempty"`
}

// Extraction is the scrape collaborator's result for one brand query.
type Extraction struct {
	Brand     string `json:"brand"`
	Market    string `json:"market"`
	Platform  string `json:"platform,omitempty"`
	TotalAds  int    `json:"total_ads,omitempty"`
	Ads       []Ad   `json:"ads"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"extraction_timestamp,omitempty"`
	Source    string `json:"source,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Classification holds the fields of a successful per-ad analysis.
type Classification struct {
	Language       string `json:"language"`
	HookType       string `json:"hook_type"`
	MarketStrategy string `json:"market_strategy"`
	FunnelStage    string `json:"funnel_stage"`
	Performance    string `json:"performance_indicator,omitempty"`
	Score          int    `json:"score"`
	KeyInsight     string `json:"key_insight"`
}

// Analysis is the result of classifying one ad: either a
// Classification or an error record, never both. Checking Failed is
// the only supported way to tell them apart.
type Analysis struct {
	Classification *Classification
	Err            string
	Raw            string
}

// Failure builds a failed Analysis from an error message.
func Failure(msg string) Analysis {
	return Analysis{Err: msg}
}

// FailureRaw builds a failed Analysis that keeps the unparseable
// response text for manual inspection.
func FailureRaw(msg, raw string) Analysis {
	return Analysis{Err: msg, Raw: raw}
}

// Failed reports whether the classification did not succeed.
func (a Analysis) Failed() bool {
	return a.Classification == nil
}

// MarshalJSON renders the wire shape consumed by the report layer:
// classification fields on success, {"error": ..., "raw": ...} on
// failure.
func (a Analysis) MarshalJSON() ([]byte, error) {
	if a.Failed() {
		rec := struct {
			Error string `json:"error"`
			Raw   string `json:"raw,omitempty"`
		}{Error: a.Err, Raw: a.Raw}
		return json.Marshal(rec)
	}
	return json.Marshal(a.Classification)
}

// UnmarshalJSON accepts either shape, so previous JSON exports can be
// re-loaded for re-analysis.
func (a *Analysis) UnmarshalJSON(data []byte) error {
	var probe struct {
		Error string `json:"error"`
		Raw   string `json:"raw"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Error != "" {
		a.Classification = nil
		a.Err = probe.Error
		a.Raw = probe.Raw
		return nil
	}
	var c Classification
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	a.Classification = &c
	a.Err = ""
	a.Raw = ""
	return nil
}

// AnalyzedAd pairs an ad with its classification result.
type AnalyzedAd struct {
	Ad
	Analysis Analysis `json:"analysis"`
}

// ImpressionRank maps an Ad Library impressions bucket (free text like
// ">10K" or "<100") to a sortable rank, higher meaning more delivery.
// Unrecognized buckets rank above "<100" and below everything labeled.
func ImpressionRank(impressions string) int {
	imp := strings.ToLower(impressions)
	switch {
	case strings.Contains(imp, ">1m"), strings.Contains(imp, "1m+"):
		return 5
	case strings.Contains(imp, "100k"):
		return 4
	case strings.Contains(imp, "10k"):
		return 3
	case strings.Contains(imp, "1k"), strings.Contains(imp, "1000"):
		return 2
	case strings.Contains(imp, "<100"):
		return 0
	}
	return 1
}

// Distribution is a frequency table over one categorical field.
type Distribution map[string]int

// Add increments the count for label, bucketing absent values under
// Unknown.
func (d Distribution) Add(label string) {
	if label == "" {
		label = Unknown
	}
	d[label]++
}

// Total returns the sum of all counts.
func (d Distribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// Summary holds the aggregate statistics for one analyzed batch,
// recomputed on every run.
type Summary struct {
	TotalAnalyzed        int          `json:"total_analyzed"`
	AverageScore         float64      `json:"average_score"`
	HookDistribution     Distribution `json:"hook_distribution"`
	FunnelDistribution   Distribution `json:"funnel_distribution"`
	StrategyDistribution Distribution `json:"market_strategy_distribution"`
	LanguageDistribution Distribution `json:"language_distribution"`
	FormatDistribution   Distribution `json:"format_distribution"`
	CTADistribution      Distribution `json:"cta_distribution"`
	TimelineDistribution Distribution `json:"timeline_distribution"`
	UniquePrimaryTexts   int          `json:"unique_primary_texts"`
	UniqueHeadlines      int          `json:"unique_headlines"`
}
