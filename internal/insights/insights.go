// Package insights turns a batch summary into the ranked, human-readable
// findings block of the final report: dominant categories, top ads by
// score, templated strategic sentences, a narrative block, and a
// rule-based recommendations list.
package insights

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/lmarchal/adscope/internal/ads"
	"github.com/lmarchal/adscope/internal/llm"
)

// Insights is the findings payload attached to the final report.
type Insights struct {
	Brand             string           `json:"brand"`
	ExecutiveSummary  ExecutiveSummary `json:"executive_summary"`
	StrategicInsights []string         `json:"strategic_insights"`
	TopPerformingAds  []TopAd          `json:"top_performing_ads"`
	Narrative         *Narrative       `json:"strategic_narrative,omitempty"`
	Recommendations   []string         `json:"recommendations"`
}

// ExecutiveSummary holds the headline aggregates.
type ExecutiveSummary struct {
	TotalAds         int     `json:"total_ads"`
	AverageScore     float64 `json:"average_score"`
	DominantHook     string  `json:"dominant_hook"`
	DominantFunnel   string  `json:"dominant_funnel_stage"`
	DominantStrategy string  `json:"dominant_market_strategy"`
	DominantFormat   string  `json:"dominant_format"`
	DominantCTA      string  `json:"dominant_cta"`
}

// TopAd is one entry of the top-performing list.
type TopAd struct {
	TextPreview string `json:"text_preview"`
	Score       int    `json:"score"`
	KeyInsight  string `json:"key_insight"`
}

const topAdCount = 3

// Generator builds insights for analyzed batches. The provider is only
// used for the narrative block; everything else is computed locally.
type Generator struct {
	provider llm.Provider
}

// NewGenerator creates an insights generator. provider may be nil, in
// which case the narrative falls back to the rule-based text.
func NewGenerator(provider llm.Provider) *Generator {
	return &Generator{provider: provider}
}

// Generate computes the full insights payload. It never fails: a
// narrative-call failure degrades to the deterministic fallback.
func (g *Generator) Generate(ctx context.Context, summary *ads.Summary, analyzed []ads.AnalyzedAd, brand, market string) *Insights {
	dominantHook := Dominant(summary.HookDistribution)
	dominantFunnel := Dominant(summary.FunnelDistribution)
	dominantStrategy := Dominant(summary.StrategyDistribution)
	dominantFormat := Dominant(summary.FormatDistribution)
	dominantCTA := Dominant(summary.CTADistribution)

	in := &Insights{
		Brand: brand,
		ExecutiveSummary: ExecutiveSummary{
			TotalAds:         summary.TotalAnalyzed,
			AverageScore:     summary.AverageScore,
			DominantHook:     dominantHook,
			DominantFunnel:   dominantFunnel,
			DominantStrategy: dominantStrategy,
			DominantFormat:   dominantFormat,
			DominantCTA:      dominantCTA,
		},
		StrategicInsights: strategicSentences(summary, brand, dominantHook, dominantFunnel, dominantStrategy),
		TopPerformingAds:  TopAds(analyzed, topAdCount),
		Recommendations:   recommendations(summary, dominantHook, dominantFunnel),
	}

	in.Narrative = g.narrative(ctx, summary, brand, market, in.ExecutiveSummary)
	return in
}

// Dominant returns the label with the highest count. Ties resolve
// alphabetically so repeated runs over the same data agree; an empty
// distribution yields "N/A".
func Dominant(d ads.Distribution) string {
	if len(d) == 0 {
		return "N/A"
	}
	labels := make([]string, 0, len(d))
	for label := range d {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := labels[0]
	for _, label := range labels[1:] {
		if d[label] > d[best] {
			best = label
		}
	}
	return best
}

// Percent returns count/total as a rounded whole percentage, 0 when
// total is zero.
func Percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// TopAds returns the n highest-scoring successfully classified ads,
// descending; ties keep their original relative order.
func TopAds(analyzed []ads.AnalyzedAd, n int) []TopAd {
	var ok []ads.AnalyzedAd
	for _, a := range analyzed {
		if !a.Analysis.Failed() {
			ok = append(ok, a)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		return ok[i].Analysis.Classification.Score > ok[j].Analysis.Classification.Score
	})
	if len(ok) > n {
		ok = ok[:n]
	}

	top := make([]TopAd, 0, len(ok))
	for _, a := range ok {
		top = append(top, TopAd{
			TextPreview: preview(a.PrimaryText, 100),
			Score:       a.Analysis.Classification.Score,
			KeyInsight:  a.Analysis.Classification.KeyInsight,
		})
	}
	return top
}

func strategicSentences(summary *ads.Summary, brand, hook, funnel, strategy string) []string {
	funnelPct := Percent(summary.FunnelDistribution[funnel], summary.FunnelDistribution.Total())
	return []string{
		fmt.Sprintf("%s primarily relies on %s hooks", brand, hook),
		fmt.Sprintf("Dominant market strategy: %s", strategy),
		fmt.Sprintf("Most ads target the %s stage of the funnel (%d%%)", funnel, funnelPct),
		fmt.Sprintf("Average creative score: %.1f/10", summary.AverageScore),
		fmt.Sprintf("%d distinct primary texts and %d distinct headlines across %d ads",
			summary.UniquePrimaryTexts, summary.UniqueHeadlines, summary.TotalAnalyzed),
	}
}

// recommendations is a fixed decision table keyed on the dominant hook,
// the dominant funnel stage, video presence, score level, and CTA
// variety.
func recommendations(summary *ads.Summary, hook, funnel string) []string {
	var recs []string

	switch hook {
	case ads.HookUrgency:
		recs = append(recs, "Urgency hooks dominate the account; test EMOTIONAL and SOCIAL_PROOF variants to avoid discount fatigue.")
	case ads.HookEmotional:
		recs = append(recs, "Emotional hooks dominate; add SOCIAL_PROOF creatives (reviews, press) to reinforce the story with evidence.")
	case ads.HookRational:
		recs = append(recs, "Rational hooks dominate; test EMOTIONAL angles to widen top-of-funnel appeal.")
	}

	switch funnel {
	case ads.FunnelTOFU:
		recs = append(recs, "Most creatives target TOFU; build MOFU content (retargeting, consideration) to capture the generated awareness.")
	case ads.FunnelBOFU:
		recs = append(recs, "Most creatives target BOFU; invest in TOFU awareness to keep feeding the funnel.")
	}

	if summary.FormatDistribution["Video"] == 0 {
		recs = append(recs, "No video creatives are running; test video, which typically outperforms static formats on Meta placements.")
	}

	if summary.AverageScore > 0 && summary.AverageScore < 6 {
		recs = append(recs, fmt.Sprintf("Average creative score is %.1f/10; refresh the weakest copy before scaling spend.", summary.AverageScore))
	}

	if len(summary.CTADistribution) == 1 {
		for cta := range summary.CTADistribution {
			recs = append(recs, fmt.Sprintf("Every ad uses the %q CTA; test alternative calls to action per funnel stage.", cta))
		}
	}

	return recs
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
