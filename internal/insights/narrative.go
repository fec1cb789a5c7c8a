package insights

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/lmarchal/adscope/internal/ads"
	"github.com/lmarchal/adscope/internal/jsonx"
)

const narrativePrompt = `You are an advertising strategist writing the narrative section of a competitive ad analysis report.

Brand: %s
Market: %s
Ads analyzed: %d
Average creative score: %.1f/10

Hook distribution: %s
Funnel distribution: %s
Strategy distribution: %s
Format distribution: %s
CTA distribution: %s
Monthly timeline: %s

Write a strategic narrative of the campaign. Be specific and grounded in the numbers above; avoid marketing fluff.

Respond with ONLY this JSON:
{
    "executive_summary": "2-3 sentences on the overall strategy",
    "hook_rationale": "Why these hooks, and what it says about positioning",
    "format_rationale": "What the format mix implies",
    "messaging_rationale": "What the strategy mix implies",
    "funnel_rationale": "What the funnel split implies",
    "timeline_rationale": "What the monthly cadence implies",
    "cta_rationale": "What the CTA mix implies",
    "competitive_angle": "How a competitor could counter this strategy",
    "next_steps": "Concrete tests to run next"
}`

const narrativeMaxTokens = 1500

// Narrative is the nine-section strategic narrative block. Sections are
// markdown-bearing free text.
type Narrative struct {
	ExecutiveSummary   string `json:"executive_summary"`
	HookRationale      string `json:"hook_rationale"`
	FormatRationale    string `json:"format_rationale"`
	MessagingRationale string `json:"messaging_rationale"`
	FunnelRationale    string `json:"funnel_rationale"`
	TimelineRationale  string `json:"timeline_rationale"`
	CTARationale       string `json:"cta_rationale"`
	CompetitiveAngle   string `json:"competitive_angle"`
	NextSteps          string `json:"next_steps"`
}

// narrative asks the provider for the narrative block, falling back to
// the deterministic rule-based text when the call fails or the response
// cannot be parsed. A narrative failure is never surfaced to the user.
func (g *Generator) narrative(ctx context.Context, summary *ads.Summary, brand, market string, exec ExecutiveSummary) *Narrative {
	fallback := fallbackNarrative(summary, brand, exec)
	if g.provider == nil {
		return fallback
	}

	prompt := fmt.Sprintf(narrativePrompt,
		brand, market,
		summary.TotalAnalyzed, summary.AverageScore,
		formatDistribution(summary.HookDistribution),
		formatDistribution(summary.FunnelDistribution),
		formatDistribution(summary.StrategyDistribution),
		formatDistribution(summary.FormatDistribution),
		formatDistribution(summary.CTADistribution),
		formatDistribution(summary.TimelineDistribution),
	)

	responseText, err := g.provider.Generate(ctx, prompt, narrativeMaxTokens)
	if err != nil {
		log.Printf("Narrative generation failed, using fallback: %v", err)
		return fallback
	}

	parsed := jsonx.Extract(responseText)
	if parsed == nil {
		log.Printf("Narrative response could not be parsed, using fallback")
		return fallback
	}

	// Sections the model skipped keep their fallback text.
	return &Narrative{
		ExecutiveSummary:   jsonx.String(parsed, "executive_summary", fallback.ExecutiveSummary),
		HookRationale:      jsonx.String(parsed, "hook_rationale", fallback.HookRationale),
		FormatRationale:    jsonx.String(parsed, "format_rationale", fallback.FormatRationale),
		MessagingRationale: jsonx.String(parsed, "messaging_rationale", fallback.MessagingRationale),
		FunnelRationale:    jsonx.String(parsed, "funnel_rationale", fallback.FunnelRationale),
		TimelineRationale:  jsonx.String(parsed, "timeline_rationale", fallback.TimelineRationale),
		CTARationale:       jsonx.String(parsed, "cta_rationale", fallback.CTARationale),
		CompetitiveAngle:   jsonx.String(parsed, "competitive_angle", fallback.CompetitiveAngle),
		NextSteps:          jsonx.String(parsed, "next_steps", fallback.NextSteps),
	}
}

// fallbackNarrative produces an equivalent-shaped narrative from the
// locally computed dominants and counts alone.
func fallbackNarrative(summary *ads.Summary, brand string, exec ExecutiveSummary) *Narrative {
	hookCount := summary.HookDistribution[exec.DominantHook]
	hookTotal := summary.HookDistribution.Total()
	funnelCount := summary.FunnelDistribution[exec.DominantFunnel]
	funnelTotal := summary.FunnelDistribution.Total()

	return &Narrative{
		ExecutiveSummary: fmt.Sprintf(
			"%s is running %d active ads with an average creative score of %.1f/10. The account leans on %s hooks and a %s market strategy.",
			brand, summary.TotalAnalyzed, summary.AverageScore, exec.DominantHook, exec.DominantStrategy),
		HookRationale: fmt.Sprintf(
			"%s hooks account for %d%% of classified creatives, indicating a deliberate persuasive angle rather than broad experimentation.",
			exec.DominantHook, Percent(hookCount, hookTotal)),
		FormatRationale: fmt.Sprintf(
			"%s is the most used format (%d of %d ads).",
			exec.DominantFormat, summary.FormatDistribution[exec.DominantFormat], summary.TotalAnalyzed),
		MessagingRationale: fmt.Sprintf(
			"The dominant strategy is %s, consistent with the current funnel focus.",
			exec.DominantStrategy),
		FunnelRationale: fmt.Sprintf(
			"%d%% of classified ads target the %s stage.",
			Percent(funnelCount, funnelTotal), exec.DominantFunnel),
		TimelineRationale: fmt.Sprintf(
			"Launches span %d distinct months; the busiest month is %s.",
			len(summary.TimelineDistribution), Dominant(summary.TimelineDistribution)),
		CTARationale: fmt.Sprintf(
			"%q is the leading call to action across %d distinct CTAs.",
			exec.DominantCTA, len(summary.CTADistribution)),
		CompetitiveAngle: fmt.Sprintf(
			"A competitor could counter-position against the %s angle with the hook types %s leaves unused.",
			exec.DominantHook, brand),
		NextSteps: "Test the under-used hook types and funnel stages listed in the recommendations.",
	}
}

// formatDistribution renders a distribution as "label: count" pairs in
// alphabetical label order, for prompt interpolation.
func formatDistribution(d ads.Distribution) string {
	if len(d) == 0 {
		return "none"
	}
	labels := make([]string, 0, len(d))
	for label := range d {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s: %d", label, d[label]))
	}
	return strings.Join(parts, ", ")
}
