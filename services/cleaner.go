package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"pf-backoffice/models"
	"pf-backoffice/utils"
)

var (
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	// multiplierRegexp captures abbreviated amounts like "1.2M" or "850K"
	multiplierRegexp = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([mk])\b`)
)

// Cleaner normalises scraped records before analysis.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean drops records without a URL, keeps the first record per URL and
// normalises whitespace in the text fields.
func (c *Cleaner) Clean(raw []models.ScrapedProperty) []models.ScrapedProperty {
	seen := make(map[string]struct{})
	result := make([]models.ScrapedProperty, 0, len(raw))

	for _, r := range raw {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			c.logger.Warn("[cleaner] Dropping property with empty URL: %s", r.Title)
			continue
		}

		if _, dup := seen[url]; dup {
			c.logger.Debug("[cleaner] Duplicate URL skipped: %s", url)
			continue
		}
		seen[url] = struct{}{}

		r.URL = url
		r.Title = normaliseText(r.Title)
		r.Location = normaliseText(r.Location)
		r.Agent = normaliseText(r.Agent)
		r.PropertyType = normaliseText(r.PropertyType)
		result = append(result, r)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d properties (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// ParsePrice extracts the amount from a display price.
// Examples:
//
//	"AED 1,250,000" → 1250000
//	"AED 95,000/year" → 95000
//	"AED 1.2M" → 1200000
func (c *Cleaner) ParsePrice(raw string) float64 {
	if m := multiplierRegexp.FindStringSubmatch(raw); len(m) == 3 {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			if strings.EqualFold(m[2], "m") {
				return n * 1_000_000
			}
			return n * 1_000
		}
	}

	match := priceRegexp.FindString(raw)
	if match == "" {
		return 0
	}

	price, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	return price
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
