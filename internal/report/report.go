// Package report writes analysis results to the reports directory as
// HTML, CSV and JSON, and lists what has been written so far.
package report

import (
	"bytes"
	"embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/lmarchal/adscope/internal/ads"
	"github.com/lmarchal/adscope/internal/insights"
)

//go:embed templates/report.html
var templateFS embed.FS

var md = goldmark.New()

// Data is the full payload of one analysis run.
type Data struct {
	Brand     string
	Market    string
	Country   string
	Timestamp time.Time
	Ads       []ads.AnalyzedAd
	Summary   *ads.Summary
	Insights  *insights.Insights
}

// GeneratedOn formats the run timestamp for the report header.
func (d *Data) GeneratedOn() string {
	return d.Timestamp.Format("January 2, 2006 at 15:04")
}

// Paths holds the files written for one run.
type Paths struct {
	HTML string
	CSV  string
	JSON string
}

// Writer renders reports into a directory.
type Writer struct {
	dir  string
	tmpl *template.Template
}

// NewWriter creates the reports directory if needed and parses the
// embedded report template.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating reports dir: %w", err)
	}

	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"badgeClass": badgeClass,
		"scoreLabel": scoreLabel,
	}
	tmpl, err := template.New("report.html").Funcs(funcMap).ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}

	return &Writer{dir: dir, tmpl: tmpl}, nil
}

// Dir returns the reports directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteAll writes the HTML report, the CSV export and the JSON export
// for one run.
func (w *Writer) WriteAll(data *Data) (Paths, error) {
	var paths Paths
	var err error

	if paths.HTML, err = w.WriteHTML(data); err != nil {
		return paths, err
	}
	if paths.CSV, err = w.WriteCSV(data); err != nil {
		return paths, err
	}
	if paths.JSON, err = w.WriteJSON(data); err != nil {
		return paths, err
	}
	return paths, nil
}

// WriteHTML renders the report template to {brand}_{timestamp}.html.
func (w *Writer) WriteHTML(data *Data) (string, error) {
	var buf bytes.Buffer
	if err := w.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}

	path := filepath.Join(w.dir, fileBase(data)+".html")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing HTML report: %w", err)
	}
	return path, nil
}

var csvHeader = []string{
	"Brand", "Library ID", "First Seen", "Platforms", "Impressions",
	"Format", "Headline", "Primary Text", "CTA",
	"Language", "Hook Type", "Market Strategy", "Funnel Stage",
	"Performance", "Score", "Key Insight",
}

// WriteCSV writes one row per ad with the classification columns left
// blank for failed analyses.
func (w *Writer) WriteCSV(data *Data) (string, error) {
	path := filepath.Join(w.dir, fileBase(data)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating CSV export: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return "", fmt.Errorf("writing CSV header: %w", err)
	}

	for _, ad := range data.Ads {
		row := []string{
			data.Brand,
			ad.LibraryID,
			ad.FirstSeen,
			strings.Join(ad.Platforms, ", "),
			ad.Impressions,
			ad.Format,
			ad.Headline,
			ad.PrimaryText,
			ad.CTA,
		}
		if c := ad.Analysis.Classification; c != nil {
			row = append(row,
				c.Language, c.HookType, c.MarketStrategy, c.FunnelStage,
				c.Performance, strconv.Itoa(c.Score), c.KeyInsight,
			)
		} else {
			row = append(row, "", "", "", "", "", "", "")
		}
		if err := cw.Write(row); err != nil {
			return "", fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flushing CSV export: %w", err)
	}
	return path, nil
}

type jsonPayload struct {
	Brand     string             `json:"brand"`
	Market    string             `json:"market"`
	Country   string             `json:"country,omitempty"`
	Timestamp string             `json:"timestamp"`
	TotalAds  int                `json:"total_ads"`
	Ads       []ads.AnalyzedAd   `json:"ads"`
	Summary   *ads.Summary       `json:"analysis_summary,omitempty"`
	Insights  *insights.Insights `json:"insights,omitempty"`
}

// WriteJSON writes the full run payload, re-loadable by LoadJSON.
func (w *Writer) WriteJSON(data *Data) (string, error) {
	payload := jsonPayload{
		Brand:     data.Brand,
		Market:    data.Market,
		Country:   data.Country,
		Timestamp: data.Timestamp.Format(time.RFC3339),
		TotalAds:  len(data.Ads),
		Ads:       data.Ads,
		Summary:   data.Summary,
		Insights:  data.Insights,
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding JSON export: %w", err)
	}

	path := filepath.Join(w.dir, fileBase(data)+".json")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return "", fmt.Errorf("writing JSON export: %w", err)
	}
	return path, nil
}

// fileBase builds the {brand}_{timestamp} stem shared by all three
// exports of a run.
func fileBase(data *Data) string {
	brand := strings.ReplaceAll(strings.ToLower(data.Brand), " ", "_")
	if brand == "" {
		brand = "unknown"
	}
	return brand + "_" + data.Timestamp.Format("20060102_150405")
}

// Entry describes one file in the reports directory.
type Entry struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	SizeKB   float64   `json:"size_kb"`
	Modified time.Time `json:"modified"`
}

// List returns the report files in dir, newest first.
func List(dir string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading reports dir: %w", err)
	}

	var entries []Entry
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(item.Name()), ".")
		switch ext {
		case "html", "csv", "json":
		default:
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:     item.Name(),
			Type:     ext,
			SizeKB:   float64(info.Size()) / 1024,
			Modified: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Modified.After(entries[j].Modified)
	})
	return entries, nil
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func badgeClass(hookType string) string {
	switch hookType {
	case ads.HookEmotional:
		return "badge-emotional"
	case ads.HookRational:
		return "badge-rational"
	case ads.HookSocialProof:
		return "badge-social"
	case ads.HookUrgency:
		return "badge-urgency"
	case ads.HookCuriosity:
		return "badge-curiosity"
	}
	return "badge-unknown"
}

func scoreLabel(a ads.Analysis) string {
	if a.Failed() {
		return "N/A"
	}
	return strconv.Itoa(a.Classification.Score)
}
