// Package extract pulls a brand's running ads out of the Ad Library by
// handing a scripted task to the browser agent and recovering the JSON
// it returns. Agent output is unreliable: it may be wrapped in prose,
// truncated mid-array, or an outright page dump, so everything funnels
// through jsonx.
package extract

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/lmarchal/adscope/internal/agent"
	"github.com/lmarchal/adscope/internal/ads"
	"github.com/lmarchal/adscope/internal/jsonx"
)

const adLibraryBaseURL = "https://www.facebook.com/ads/library/"

const extractionTask = `Go to %s

If a cookie popup appears, click "Decline optional cookies".

Wait 3 seconds for ads to load.

Scroll down slowly 5 times, waiting 2 seconds between scrolls, to load more ads.

Extract ALL ads visible (up to %d) that contain "%s" in the advertiser name.

For EACH ad, extract these details:
- advertiser: exact advertiser name shown
- primary_text: the main ad copy text
- headline: the bold headline/title
- cta: call-to-action button text (Shop Now, Learn More, Book Now, Get Directions, etc.)
- format: Video, Static Image, or Carousel
- first_seen: the start date shown (format: YYYY-MM-DD)
- platforms: list of platform icons visible (facebook, instagram, messenger, audience_network)

Return ONLY this JSON:
{"brand": "%s", "market": "%s", "platform": "Meta", "total_ads": X, "ads": [{"id": 1, "advertiser": "...", "primary_text": "...", "headline": "...", "cta": "...", "format": "...", "first_seen": "YYYY-MM-DD", "platforms": ["facebook", "instagram"]}]}`

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 5 * time.Second
	// Roughly ten seconds of page work per agent step.
	stepsPerMinute = 6
)

// Scraper runs a browser task; satisfied by *agent.Client.
type Scraper interface {
	Run(ctx context.Context, task string, maxSteps int) (*agent.RunResult, error)
}

// Extractor extracts a brand's ads from the Ad Library.
type Extractor struct {
	scraper        Scraper
	timeoutMinutes int
	maxRetries     int
	retryDelay     time.Duration
}

// New creates an Extractor with the default retry policy.
func New(scraper Scraper, timeoutMinutes int) *Extractor {
	if timeoutMinutes <= 0 {
		timeoutMinutes = 10
	}
	return &Extractor{
		scraper:        scraper,
		timeoutMinutes: timeoutMinutes,
		maxRetries:     defaultMaxRetries,
		retryDelay:     defaultRetryDelay,
	}
}

// SetMaxRetries overrides the default retry count. Values below one
// are ignored.
func (e *Extractor) SetMaxRetries(n int) {
	if n > 0 {
		e.maxRetries = n
	}
}

// BuildURL returns the Ad Library search URL for a brand and country.
func BuildURL(brand, country string) string {
	params := url.Values{
		"active_status": {"active"},
		"ad_type":       {"all"},
		"country":       {country},
		"q":             {brand},
	}
	return adLibraryBaseURL + "?" + params.Encode()
}

// Extract runs one extraction attempt. Failures come back as an
// Extraction with a non-empty Error and no ads, never as a Go error:
// the retry loop and the pipeline both branch on the value.
func (e *Extractor) Extract(ctx context.Context, brand, country string, maxAds int) *ads.Extraction {
	if country == "" {
		country = "ALL"
	}
	if maxAds <= 0 {
		maxAds = 20
	}

	pageURL := BuildURL(brand, country)
	task := fmt.Sprintf(extractionTask, pageURL, maxAds, brand, brand, country)

	log.Printf("Extracting ads for %s (country=%s, max=%d)...", brand, country, maxAds)

	run, err := e.scraper.Run(ctx, task, e.timeoutMinutes*stepsPerMinute)
	if err != nil {
		return failedExtraction(brand, country, err.Error())
	}

	// The final answer usually carries the JSON; when it doesn't, fall
	// back through the intermediate action results in order.
	candidates := append([]string{run.FinalResult}, run.ActionResults...)
	for _, text := range candidates {
		if text == "" {
			continue
		}
		if looksLikeHTML(text) {
			text = pageText(text, pageURL)
			if text == "" {
				continue
			}
		}
		parsed := jsonx.Extract(text)
		if parsed == nil {
			continue
		}
		if _, ok := parsed["ads"]; !ok {
			continue
		}

		result := decodeExtraction(parsed)
		result.Ads = filterAds(result.Ads, maxAds)
		if result.Brand == "" {
			result.Brand = brand
		}
		if result.Market == "" {
			result.Market = country
		}
		result.Timestamp = time.Now().Format(time.RFC3339)
		result.Source = "meta_ad_library"
		result.Country = country
		return result
	}

	return failedExtraction(brand, country, "no valid JSON found in extraction result")
}

// ExtractWithRetry retries failed or empty extractions with a fixed
// delay. The result of the last attempt is returned either way; a
// zero-ad result after all retries is the pipeline's terminal failure.
func (e *Extractor) ExtractWithRetry(ctx context.Context, brand, country string, maxAds int) *ads.Extraction {
	var result *ads.Extraction
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		result = e.Extract(ctx, brand, country, maxAds)
		if result.Error == "" && len(result.Ads) > 0 {
			return result
		}

		if attempt < e.maxRetries {
			log.Printf("Extraction attempt %d/%d failed, retrying in %s...", attempt, e.maxRetries, e.retryDelay)
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				return result
			}
		}
	}
	return result
}

func failedExtraction(brand, country, msg string) *ads.Extraction {
	return &ads.Extraction{
		Brand:     brand,
		Market:    country,
		Country:   country,
		Error:     msg,
		Timestamp: time.Now().Format(time.RFC3339),
		Source:    "meta_ad_library",
	}
}

// decodeExtraction maps a recovered JSON object onto the Extraction
// struct field by field. Manual mapping tolerates the type drift agents
// produce (string ids, missing fields, alternate key names).
func decodeExtraction(obj map[string]any) *ads.Extraction {
	ext := &ads.Extraction{
		Brand:    jsonx.String(obj, "brand", ""),
		Market:   jsonx.String(obj, "market", ""),
		Platform: jsonx.String(obj, "platform", ""),
		TotalAds: jsonx.Int(obj, "total_ads", 0),
	}

	arr, _ := obj["ads"].([]any)
	for i, v := range arr {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		ext.Ads = append(ext.Ads, ads.Ad{
			ID:          int64(jsonx.Int(m, "id", i+1)),
			LibraryID:   jsonx.String(m, "library_id", ""),
			Advertiser:  jsonx.String(m, "advertiser", ""),
			PrimaryText: jsonx.String(m, "primary_text", jsonx.String(m, "text", "")),
			Headline:    jsonx.String(m, "headline", ""),
			CTA:         jsonx.String(m, "cta", ""),
			Format:      jsonx.String(m, "format", ""),
			FirstSeen:   jsonx.String(m, "first_seen", jsonx.String(m, "start_date", "")),
			Impressions: jsonx.String(m, "impressions", ""),
			Platforms:   jsonx.ExtractArrayStrings(m, "platforms"),
		})
	}
	return ext
}

// filterAds drops records without ad copy and caps the list. Agents
// occasionally pad the array with placeholder entries.
func filterAds(list []ads.Ad, maxAds int) []ads.Ad {
	var kept []ads.Ad
	for _, ad := range list {
		if ad.PrimaryText == "" {
			continue
		}
		kept = append(kept, ad)
		if len(kept) == maxAds {
			break
		}
	}
	return kept
}

func looksLikeHTML(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "<html")
}

// pageText reduces an HTML page dump to its readable text so the JSON
// scan has a chance on agents that return the whole page.
func pageText(html, pageURL string) string {
	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}
