// Package analyze classifies extracted ads one at a time through an
// LLM and folds the results into distributions and summary statistics.
package analyze

import (
	"context"
	"log"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/lmarchal/adscope/internal/ads"
	"github.com/lmarchal/adscope/internal/jsonx"
	"github.com/lmarchal/adscope/internal/llm"
)

const defaultPrompt = `You are an advertising strategy expert. Analyze this ad:

Brand: {brand}
Market: {market}
Text: {primary_text}
Headline: {headline}
CTA: {cta}
Format: {format}
First seen: {first_seen}

Return ONLY this JSON:
{
    "language": "English|French|Spanish|Other",
    "hook_type": "EMOTIONAL|RATIONAL|SOCIAL_PROOF|URGENCY|CURIOSITY",
    "market_strategy": "Brand Awareness|Product Launch|Retail Traffic|E-commerce|Lead Gen|Expansion|Influencer|Retargeting",
    "funnel_stage": "TOFU|MOFU|BOFU",
    "performance_indicator": "LOW|MEDIUM|HIGH",
    "score": 7,
    "key_insight": "One sentence on what makes this creative work or fail"
}`

const defaultMaxTokens = 1024

// Preview length used for the primary-text uniqueness set.
const uniqueTextPrefix = 200

// Analyzer classifies ads with an LLM provider. It is read-only after
// construction and safe to share across concurrent pipeline runs.
type Analyzer struct {
	provider  llm.Provider
	template  string
	maxTokens int
}

// New creates an Analyzer. templatePath may be empty, in which case the
// built-in prompt template is used.
func New(provider llm.Provider, templatePath string, maxTokens int) *Analyzer {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	template := defaultPrompt
	if templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			log.Printf("Prompt template %s not readable, using built-in: %v", templatePath, err)
		} else {
			template = string(data)
		}
	}
	return &Analyzer{provider: provider, template: template, maxTokens: maxTokens}
}

// ClassifyAd classifies a single ad. Collaborator failures and
// unparseable responses come back as failed Analysis values, never as
// errors; identical ads submitted twice are re-classified.
func (a *Analyzer) ClassifyAd(ctx context.Context, ad ads.Ad, brand, market string) ads.Analysis {
	if a.provider == nil {
		return ads.Failure("no LLM provider configured")
	}

	prompt := a.formatPrompt(ad, brand, market)
	responseText, err := a.provider.Generate(ctx, prompt, a.maxTokens)
	if err != nil {
		return ads.Failure(err.Error())
	}

	parsed := jsonx.Extract(responseText)
	if parsed == nil {
		return ads.FailureRaw("Could not parse JSON", responseText)
	}

	strategy := jsonx.String(parsed, "market_strategy", "")
	if strategy == "" {
		strategy = jsonx.String(parsed, "message_strategy", "")
	}

	score := jsonx.Int(parsed, "score", 0)
	if score < 0 {
		score = 0
	} else if score > 10 {
		score = 10
	}

	return ads.Analysis{Classification: &ads.Classification{
		Language:       jsonx.String(parsed, "language", ""),
		HookType:       jsonx.String(parsed, "hook_type", ""),
		MarketStrategy: strategy,
		FunnelStage:    jsonx.String(parsed, "funnel_stage", ""),
		Performance:    jsonx.String(parsed, "performance_indicator", ""),
		Score:          score,
		KeyInsight:     jsonx.String(parsed, "key_insight", ""),
	}}
}

func (a *Analyzer) formatPrompt(ad ads.Ad, brand, market string) string {
	if market == "" {
		market = "ALL"
	}
	return strings.NewReplacer(
		"{brand}", Sanitize(brand, MaxShortLength),
		"{market}", Sanitize(market, MaxShortLength),
		"{primary_text}", Sanitize(ad.PrimaryText, MaxBodyLength),
		"{headline}", Sanitize(ad.Headline, MaxHeadlineLength),
		"{cta}", Sanitize(ad.CTA, MaxShortLength),
		"{format}", Sanitize(ad.Format, MaxShortLength),
		"{first_seen}", Sanitize(ad.FirstSeen, MaxShortLength),
	).Replace(a.template)
}

// BatchResult pairs the analyzed ads with their aggregate summary.
type BatchResult struct {
	Ads     []ads.AnalyzedAd
	Summary *ads.Summary
}

// AnalyzeBatch classifies every ad in input order, sequentially, and
// builds the summary in the same pass. A failed classification never
// aborts the batch: the ad stays in the output with its error record
// and is excluded from score-weighted statistics.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, extraction *ads.Extraction) *BatchResult {
	brand := extraction.Brand
	market := extraction.Market
	if market == "" {
		market = "ALL"
	}

	summary := &ads.Summary{
		HookDistribution:     ads.Distribution{},
		FunnelDistribution:   ads.Distribution{},
		StrategyDistribution: ads.Distribution{},
		LanguageDistribution: ads.Distribution{},
		FormatDistribution:   ads.Distribution{},
		CTADistribution:      ads.Distribution{},
		TimelineDistribution: ads.Distribution{},
	}

	uniqueTexts := make(map[string]struct{})
	uniqueHeadlines := make(map[string]struct{})

	analyzed := make([]ads.AnalyzedAd, 0, len(extraction.Ads))
	totalScore := 0
	scored := 0

	log.Printf("Analyzing %d ads for %s (market: %s)...", len(extraction.Ads), brand, market)

	for i, ad := range extraction.Ads {
		log.Printf("  Ad %d/%d...", i+1, len(extraction.Ads))
		analysis := a.ClassifyAd(ctx, ad, brand, market)
		analyzed = append(analyzed, ads.AnalyzedAd{Ad: ad, Analysis: analysis})

		summary.FormatDistribution.Add(ad.Format)
		summary.CTADistribution.Add(ad.CTA)
		summary.TimelineDistribution.Add(monthBucket(ad.FirstSeen))
		uniqueTexts[runePrefix(ad.PrimaryText, uniqueTextPrefix)] = struct{}{}
		uniqueHeadlines[ad.Headline] = struct{}{}

		if analysis.Failed() {
			log.Printf("  Classification failed for ad %d: %s", ad.ID, analysis.Err)
			continue
		}

		c := analysis.Classification
		totalScore += c.Score
		scored++
		summary.HookDistribution.Add(c.HookType)
		summary.FunnelDistribution.Add(c.FunnelStage)
		summary.StrategyDistribution.Add(c.MarketStrategy)
		summary.LanguageDistribution.Add(c.Language)
	}

	summary.TotalAnalyzed = len(analyzed)
	summary.UniquePrimaryTexts = len(uniqueTexts)
	summary.UniqueHeadlines = len(uniqueHeadlines)
	if scored > 0 {
		summary.AverageScore = math.Round(float64(totalScore)/float64(scored)*10) / 10
	}

	return &BatchResult{Ads: analyzed, Summary: summary}
}

// monthBucket truncates a first-seen date to its year-month for the
// timeline distribution.
func monthBucket(firstSeen string) string {
	if len(firstSeen) >= 7 && firstSeen[4] == '-' {
		return firstSeen[:7]
	}
	return ads.Unknown
}

func runePrefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
