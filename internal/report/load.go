package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lmarchal/adscope/internal/ads"
)

// LoadJSON re-loads a previous JSON export so its ads can be
// re-classified.
func LoadJSON(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading JSON export: %w", err)
	}

	var payload jsonPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parsing JSON export: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, payload.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	return &Data{
		Brand:     payload.Brand,
		Market:    payload.Market,
		Country:   payload.Country,
		Timestamp: ts,
		Ads:       payload.Ads,
		Summary:   payload.Summary,
		Insights:  payload.Insights,
	}, nil
}

// LoadCSV rebuilds ads from a previous CSV export. Classification
// columns are ignored; the caller re-runs the classifier.
func LoadCSV(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading CSV export: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV export: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV export %s has no ad rows", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	data := &Data{Market: "ALL", Timestamp: time.Now()}
	for _, row := range rows[1:] {
		if data.Brand == "" {
			data.Brand = field(row, "Brand")
		}

		firstSeen := field(row, "First Seen")
		if firstSeen == "" {
			// older exports used the Ad Library column name
			firstSeen = field(row, "Start Date")
		}
		ad := ads.Ad{
			ID:          int64(len(data.Ads) + 1),
			LibraryID:   field(row, "Library ID"),
			PrimaryText: field(row, "Primary Text"),
			Headline:    field(row, "Headline"),
			CTA:         field(row, "CTA"),
			Format:      field(row, "Format"),
			FirstSeen:   firstSeen,
			Impressions: field(row, "Impressions"),
		}
		if platforms := field(row, "Platforms"); platforms != "" {
			ad.Platforms = strings.Split(platforms, ", ")
		}
		data.Ads = append(data.Ads, ads.AnalyzedAd{Ad: ad})
	}

	if data.Brand == "" {
		data.Brand = "Unknown"
	}
	return data, nil
}
