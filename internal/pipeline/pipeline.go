// Package pipeline orchestrates one analysis run: extract a brand's
// ads, classify each one, derive insights, write the reports.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"github.com/lmarchal/adscope/internal/ads"
	"github.com/lmarchal/adscope/internal/agent"
	"github.com/lmarchal/adscope/internal/analyze"
	"github.com/lmarchal/adscope/internal/config"
	"github.com/lmarchal/adscope/internal/extract"
	"github.com/lmarchal/adscope/internal/insights"
	"github.com/lmarchal/adscope/internal/llm"
	"github.com/lmarchal/adscope/internal/report"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Brand string
	Steps []StepResult
	Data  *report.Data
	Paths report.Paths
}

// Failed reports whether any step ended with an error.
func (r *Result) Failed() bool {
	for _, step := range r.Steps {
		if step.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline runs the 4-step analysis pipeline. All fields are read-only
// after construction; each Run carries its own state, so concurrent
// runs do not interfere.
type Pipeline struct {
	cfg       *config.Config
	extractor *extract.Extractor
	analyzer  *analyze.Analyzer
	generator *insights.Generator
	reports   *report.Writer
}

// New wires a pipeline from config.
func New(cfg *config.Config) (*Pipeline, error) {
	provider := llm.CreateProvider(
		cfg.Analysis.Provider,
		cfg.Analysis.AnthropicModel,
		cfg.Analysis.APIKeyEnv,
		cfg.Analysis.OpenAIModel,
		cfg.Analysis.OpenAIKeyEnv,
	)

	scraper := agent.NewClient(cfg.Agent.URL, time.Duration(cfg.Agent.TimeoutMinutes)*time.Minute)
	extractor := extract.New(scraper, cfg.Agent.TimeoutMinutes)
	extractor.SetMaxRetries(cfg.Extraction.MaxRetries)

	reports, err := report.NewWriter(filepath.Join(cfg.GetDataDir(), "reports"))
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		extractor: extractor,
		analyzer:  analyze.New(provider, cfg.Analysis.PromptTemplate, cfg.Analysis.MaxTokens),
		generator: insights.NewGenerator(provider),
		reports:   reports,
	}, nil
}

// ReportsDir returns the directory reports are written to.
func (p *Pipeline) ReportsDir() string {
	return p.reports.Dir()
}

// Run executes the full pipeline for one brand.
func (p *Pipeline) Run(ctx context.Context, brand, country string, maxAds int) *Result {
	r := &Result{Brand: brand}

	// Step 1: Extract
	log.Printf("Step 1/4: Extracting ads for %s...", brand)
	extraction := p.extractor.ExtractWithRetry(ctx, brand, country, maxAds)
	if len(extraction.Ads) == 0 {
		reason := extraction.Error
		if reason == "" {
			reason = "no ads found"
		}
		r.Steps = append(r.Steps, StepResult{
			Name: "Extract",
			Err:  fmt.Errorf("extraction for %s returned no ads: %s", brand, reason),
		})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Extract",
		Summary: fmt.Sprintf("Extracted %d ads from the Ad Library", len(extraction.Ads)),
	})

	return p.analyzeAndReport(ctx, r, extraction)
}

// Redo re-runs classification, insights and reporting over a previous
// export, skipping the browser extraction step.
func (p *Pipeline) Redo(ctx context.Context, data *report.Data) *Result {
	r := &Result{Brand: data.Brand}

	plain := make([]ads.Ad, len(data.Ads))
	for i, ad := range data.Ads {
		plain[i] = ad.Ad
	}
	extraction := &ads.Extraction{
		Brand:  data.Brand,
		Market: data.Market,
		Ads:    plain,
	}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Extract",
		Summary: fmt.Sprintf("Loaded %d ads from previous export", len(plain)),
	})
	return p.analyzeAndReport(ctx, r, extraction)
}

func (p *Pipeline) analyzeAndReport(ctx context.Context, r *Result, extraction *ads.Extraction) *Result {
	// Step 2: Analyze
	log.Printf("Step 2/4: Classifying %d ads...", len(extraction.Ads))
	batch := p.analyzer.AnalyzeBatch(ctx, extraction)

	// Exports list the heaviest-delivery ads first.
	sort.SliceStable(batch.Ads, func(i, j int) bool {
		return ads.ImpressionRank(batch.Ads[i].Impressions) > ads.ImpressionRank(batch.Ads[j].Impressions)
	})

	classified := batch.Summary.HookDistribution.Total()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("Classified %d of %d ads", classified, len(batch.Ads)),
	})

	// Step 3: Insights
	log.Println("Step 3/4: Generating insights...")
	ins := p.generator.Generate(ctx, batch.Summary, batch.Ads, extraction.Brand, extraction.Market)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Insights",
		Summary: fmt.Sprintf("Generated %d strategic insights, %d recommendations", len(ins.StrategicInsights), len(ins.Recommendations)),
	})

	// Step 4: Report
	log.Println("Step 4/4: Writing reports...")
	r.Data = &report.Data{
		Brand:     extraction.Brand,
		Market:    extraction.Market,
		Country:   extraction.Country,
		Timestamp: time.Now(),
		Ads:       batch.Ads,
		Summary:   batch.Summary,
		Insights:  ins,
	}
	paths, err := p.reports.WriteAll(r.Data)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Report", Err: err})
		return r
	}
	r.Paths = paths
	r.Steps = append(r.Steps, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Wrote %s", filepath.Base(paths.HTML)),
	})
	return r
}
