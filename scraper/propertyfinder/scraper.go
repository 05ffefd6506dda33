// Package propertyfinder produces Property Finder search results.
//
// Records are synthesized locally: the generator honours the search filters
// and the pagination shape of the portal, but does not fetch any page.
package propertyfinder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"pf-backoffice/metrics"
	"pf-backoffice/models"
	"pf-backoffice/utils"
)

const (
	defaultPerPage = 25
	maxPages       = 100
	baseURL        = "https://www.propertyfinder.ae/en/property/"
)

// Options configures a Scraper.
type Options struct {
	PerPage   int
	RateLimit time.Duration
	// ProxyURL is the residential proxy the portal would be reached through.
	ProxyURL string
	// Seed fixes the random source; zero seeds from the clock.
	Seed uint64
}

// Batch is the output of one result page.
type Batch struct {
	Page       int
	Properties []models.ScrapedProperty
}

// Scraper generates search results page by page.
type Scraper struct {
	perPage   int
	rateLimit time.Duration
	proxyURL  string
	logger    *utils.Logger
	now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Scraper.
func New(opts Options, logger *utils.Logger) *Scraper {
	if opts.PerPage < 1 {
		opts.PerPage = defaultPerPage
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Scraper{
		perPage:   opts.PerPage,
		rateLimit: opts.RateLimit,
		proxyURL:  opts.ProxyURL,
		logger:    logger,
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// query is a validated ScrapeParams.
type query struct {
	location     string
	rent         bool
	propertyType string
	minPrice     int64
	maxPrice     int64
	bedrooms     int
	anyBedrooms  bool
	pages        int
	sort         string
}

func parseParams(p models.ScrapeParams) (*query, error) {
	q := &query{
		location:     ResolveLocation(p.Location),
		rent:         p.Purpose == models.PurposeRent,
		propertyType: strings.TrimSpace(p.PropertyType),
		pages:        p.Pages,
		sort:         p.Sort,
		anyBedrooms:  true,
	}
	if q.location == "" {
		return nil, models.NewValidationError("location", "Location is required")
	}
	if p.Purpose != "" && p.Purpose != models.PurposeSale && p.Purpose != models.PurposeRent {
		return nil, models.NewValidationError("purpose", "unknown purpose %q", p.Purpose)
	}

	var err error
	if q.minPrice, err = parsePrice("minPrice", p.MinPrice); err != nil {
		return nil, err
	}
	if q.maxPrice, err = parsePrice("maxPrice", p.MaxPrice); err != nil {
		return nil, err
	}
	if q.maxPrice > 0 && q.minPrice > q.maxPrice {
		return nil, models.NewValidationError("maxPrice", "maximum price is below minimum price")
	}

	if b := strings.TrimSpace(p.Bedrooms); b != "" {
		if strings.EqualFold(b, "studio") {
			b = "0"
		}
		n, err := strconv.Atoi(b)
		if err != nil || n < 0 {
			return nil, models.NewValidationError("bedrooms", "%q is not a bedroom count", p.Bedrooms)
		}
		q.bedrooms, q.anyBedrooms = n, false
	}

	if q.pages < 1 {
		q.pages = 1
	}
	if q.pages > maxPages {
		q.pages = maxPages
	}
	return q, nil
}

func parsePrice(field, v string) (int64, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, models.NewValidationError(field, "%q is not a price", v)
	}
	return n, nil
}

// Scrape validates params and starts producing one Batch per page. The
// channel is closed after the last page or when ctx is done. URLs are unique
// within one call.
func (s *Scraper) Scrape(ctx context.Context, params models.ScrapeParams) (<-chan Batch, error) {
	q, err := parseParams(params)
	if err != nil {
		return nil, err
	}

	s.logger.Info("[scraper] Starting scrape: %s %s, %d pages × %d",
		q.location, purposeLabel(q.rent), q.pages, s.perPage)
	s.logger.Debug("[scraper] proxy %s", redact(s.proxyURL))

	out := make(chan Batch, 1)
	go func() {
		defer close(out)
		seen := utils.NewURLSet()
		total := 0

		for page := 1; page <= q.pages; page++ {
			if page > 1 && s.rateLimit > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.rateLimit):
				}
			}

			batch := Batch{Page: page, Properties: s.generatePage(q, page, seen)}
			select {
			case <-ctx.Done():
				s.logger.Warn("[scraper] Cancelled after %d pages", page-1)
				return
			case out <- batch:
			}

			total += len(batch.Properties)
			metrics.ScrapedProperties.Add(float64(len(batch.Properties)))
			s.logger.Debug("[scraper] Page %d done — %d properties so far", page, total)
		}
		s.logger.Info("[scraper] Scrape complete — %d properties", total)
	}()
	return out, nil
}

// Collect drains ch into one slice, in page order.
func Collect(ch <-chan Batch) []models.ScrapedProperty {
	out := make([]models.ScrapedProperty, 0)
	for b := range ch {
		out = append(out, b.Properties...)
	}
	return out
}

func (s *Scraper) generatePage(q *query, page int, seen *utils.URLSet) []models.ScrapedProperty {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := s.now().UnixMilli()
	props := make([]models.ScrapedProperty, 0, s.perPage)
	for i := 0; i < s.perPage; i++ {
		index := (page-1)*s.perPage + i
		props = append(props, s.generate(q, index, page, i+1, stamp, seen))
	}

	switch q.sort {
	case "price_asc", "price_desc":
		amounts := make(map[string]int64, len(props))
		for _, p := range props {
			amounts[p.ID] = displayAmount(p.Price)
		}
		sort.SliceStable(props, func(i, j int) bool {
			if q.sort == "price_asc" {
				return amounts[props[i].ID] < amounts[props[j].ID]
			}
			return amounts[props[i].ID] > amounts[props[j].ID]
		})
		for i := range props {
			props[i].PositionOnPage = i + 1
		}
	}
	return props
}

func (s *Scraper) generate(q *query, index, page, position int, stamp int64, seen *utils.URLSet) models.ScrapedProperty {
	beds := q.bedrooms
	if q.anyBedrooms {
		beds = s.rng.IntN(5) + 1
	}
	baths := max(1, beds-s.rng.IntN(2))

	base := 500000.0
	if q.rent {
		base = 50000
	}
	price := int64(base * float64(max(beds, 1)) * (0.5 + s.rng.Float64()))
	price = s.clampPrice(price, q.minPrice, q.maxPrice)
	size := 500 + beds*300 + s.rng.IntN(500)

	propertyType := q.propertyType
	if propertyType == "" {
		propertyType = propertyTypes[s.rng.IntN(len(propertyTypes))]
	}
	label := fmt.Sprintf("%d BR", beds)
	if beds == 0 {
		label = "Studio"
	}

	display := "AED " + utils.FormatAmount(price)
	if q.rent {
		display += "/year"
	}

	url := baseURL + s.token(10)
	for !seen.Add(url) {
		url = baseURL + s.token(10)
	}

	p := models.ScrapedProperty{
		ID:              fmt.Sprintf("pf-%d-%d-%s", stamp, index, s.token(6)),
		Title:           fmt.Sprintf("%s %s in %s", label, propertyType, q.location),
		Price:           display,
		Location:        q.location + ", Dubai",
		Bedrooms:        strconv.Itoa(beds),
		Bathrooms:       strconv.Itoa(baths),
		Size:            strconv.Itoa(size),
		PropertyType:    propertyType,
		URL:             url,
		Agent:           agencies[s.rng.IntN(len(agencies))],
		Verified:        s.rng.IntN(3) > 0,
		ReferenceNumber: fmt.Sprintf("PF-%06d", s.rng.IntN(1_000_000)),
		PageNumber:      page,
		PositionOnPage:  position,
	}
	if q.rent {
		p.Furnishing = []string{"furnished", "unfurnished", "partly-furnished"}[s.rng.IntN(3)]
	}
	return p
}

// clampPrice redraws price uniformly inside [lo, hi] when it falls outside.
// A zero bound is open.
func (s *Scraper) clampPrice(price, lo, hi int64) int64 {
	if (lo == 0 || price >= lo) && (hi == 0 || price <= hi) {
		return price
	}
	if hi == 0 {
		hi = lo * 2
	}
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Int64N(hi-lo+1)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func (s *Scraper) token(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[s.rng.IntN(len(base36))]
	}
	return string(b)
}

func displayAmount(price string) int64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, price)
	n, _ := strconv.ParseInt(digits, 10, 64)
	return n
}

func purposeLabel(rent bool) string {
	if rent {
		return "for rent"
	}
	return "for sale"
}

func redact(proxyURL string) string {
	if i := strings.Index(proxyURL, "@"); i >= 0 {
		if j := strings.Index(proxyURL, "://"); j >= 0 && j < i {
			return proxyURL[:j+3] + "***" + proxyURL[i:]
		}
	}
	return proxyURL
}
