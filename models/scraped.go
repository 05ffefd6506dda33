package models

import (
	"strings"
	"time"
)

// ScrapedProperty is a listing-shaped record produced by a scrape run.
// Price is a display string prefixed with its currency.
type ScrapedProperty struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Price           string `json:"price"`
	Location        string `json:"location"`
	Bedrooms        string `json:"bedrooms"`
	Bathrooms       string `json:"bathrooms"`
	Size            string `json:"size"`
	PropertyType    string `json:"propertyType"`
	URL             string `json:"url"`
	Agent           string `json:"agent"`
	Verified        bool   `json:"verified,omitempty"`
	PermitNumber    string `json:"permitNumber,omitempty"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	CompletionDate  string `json:"completionDate,omitempty"`
	Furnishing      string `json:"furnishing,omitempty"`
	PageNumber      int    `json:"pageNumber,omitempty"`
	PositionOnPage  int    `json:"positionOnPage,omitempty"`
}

// Scrape purposes.
const (
	PurposeSale = "for-sale"
	PurposeRent = "for-rent"
)

// ScrapeParams describes one scrape request.
type ScrapeParams struct {
	Location     string `json:"location"`
	Purpose      string `json:"purpose"`
	PropertyType string `json:"propertyType"`
	MinPrice     string `json:"minPrice"`
	MaxPrice     string `json:"maxPrice"`
	Bedrooms     string `json:"bedrooms"`
	Pages        int    `json:"pages"`
	Sort         string `json:"sort,omitempty"`
}

// ScrapeMeta summarises a finished scrape.
type ScrapeMeta struct {
	Location  string    `json:"location"`
	Purpose   string    `json:"purpose"`
	Pages     int       `json:"pages"`
	Timestamp time.Time `json:"timestamp"`
}

// MasterEntry is one appended record of the cumulative master list.
// Entries are never deduplicated.
type MasterEntry struct {
	EntryID    string          `json:"entryId"`
	AppendedAt time.Time       `json:"appendedAt"`
	Property   ScrapedProperty `json:"property"`
}

// PricedProperty is a scraped record with its display price parsed.
type PricedProperty struct {
	ScrapedProperty
	Amount float64 `json:"amount"`
}

// InsightReport holds analytics computed over a scrape result set.
type InsightReport struct {
	TotalProperties      int             `json:"totalProperties"`
	AveragePrice         float64         `json:"averagePrice"`
	MinPrice             float64         `json:"minPrice"`
	MaxPrice             float64         `json:"maxPrice"`
	MostExpensive        *PricedProperty `json:"mostExpensive,omitempty"`
	PropertiesByType     map[string]int  `json:"propertiesByType"`
	PropertiesByLocation map[string]int  `json:"propertiesByLocation"`
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
