package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"pf-backoffice/models"
	"pf-backoffice/utils"
)

// InsightService computes summary statistics over scraped properties.
type InsightService struct {
	cleaner *Cleaner
	logger  *utils.Logger
}

func NewInsightService(cleaner *Cleaner, logger *utils.Logger) *InsightService {
	return &InsightService{cleaner: cleaner, logger: logger}
}

func (s *InsightService) Generate(properties []models.ScrapedProperty) *models.InsightReport {
	report := &models.InsightReport{
		PropertiesByType:     make(map[string]int),
		PropertiesByLocation: make(map[string]int),
	}

	if len(properties) == 0 {
		return report
	}

	report.TotalProperties = len(properties)

	var priced []models.PricedProperty
	for _, p := range properties {
		if amount := s.cleaner.ParsePrice(p.Price); amount > 0 {
			priced = append(priced, models.PricedProperty{ScrapedProperty: p, Amount: amount})
		}
		if p.PropertyType != "" {
			report.PropertiesByType[p.PropertyType]++
		}
		if p.Location != "" {
			report.PropertiesByLocation[p.Location]++
		}
	}

	// Price stats (only properties with a parsable price)
	if len(priced) > 0 {
		report.MinPrice = priced[0].Amount
		report.MaxPrice = priced[0].Amount
		report.MostExpensive = &priced[0]
		var total float64
		for i := range priced {
			p := &priced[i]
			total += p.Amount
			if p.Amount < report.MinPrice {
				report.MinPrice = p.Amount
			}
			if p.Amount > report.MaxPrice {
				report.MaxPrice = p.Amount
				report.MostExpensive = p
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	s.logger.Debug("[insights] %d properties, %d priced", report.TotalProperties, len(priced))
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 PROPERTY SCRAPE INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total properties scraped : \033[1m%d\033[0m\n", r.TotalProperties)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32mAED %s\033[0m\n", utils.FormatAmount(int64(math.Round(r.AveragePrice))))
		fmt.Fprintf(w, "  Minimum price : \033[1;32mAED %s\033[0m\n", utils.FormatAmount(int64(r.MinPrice)))
		fmt.Fprintf(w, "  Maximum price : \033[1;32mAED %s\033[0m\n", utils.FormatAmount(int64(r.MaxPrice)))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	// Most Expensive
	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Property\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Fprintf(w, "  Location : %s\n", r.MostExpensive.Location)
		fmt.Fprintf(w, "  Price    : \033[1;31m%s\033[0m\n", r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	printCounts(w, "Properties by Type", r.PropertiesByType, thin)
	printCounts(w, "Properties by Location", r.PropertiesByLocation, thin)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n")
		return
	}

	type keyCount struct {
		key   string
		count int
	}
	var rows []keyCount
	for k, n := range counts {
		rows = append(rows, keyCount{k, n})
	}
	// Sort by count descending, then name
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})
	for _, kc := range rows {
		bar := strings.Repeat("█", min(kc.count, 40))
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(kc.key, 28), bar, kc.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
