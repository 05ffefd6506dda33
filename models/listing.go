package models

import "time"

// ListingStatus is the lifecycle state of a locally staged listing.
type ListingStatus string

const (
	StatusDraft  ListingStatus = "draft"
	StatusLive   ListingStatus = "live"
	StatusFailed ListingStatus = "failed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusLive, StatusFailed:
		return true
	}
	return false
}

// Offering types accepted by the listings API.
const (
	OfferingSale = "RS"
	OfferingRent = "RR"
)

// Listing is a property record staged locally before being published upstream.
// Reference is user supplied and unique across all listings.
type Listing struct {
	ID             string         `json:"id"`
	Reference      string         `json:"reference"`
	PermitNumber   string         `json:"permitNumber"`
	LocationName   string         `json:"locationName"`
	LocationID     *int64         `json:"locationId,omitempty"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	PropertyType   string         `json:"propertyType"`
	OfferingType   string         `json:"offeringType,omitempty"`
	FurnishingType string         `json:"furnishingType,omitempty"`
	ProjectStatus  string         `json:"projectStatus,omitempty"`
	Bedrooms       string         `json:"bedrooms"`
	Bathrooms      string         `json:"bathrooms"`
	Size           string         `json:"size"`
	Price          string         `json:"price"`
	AgentName      string         `json:"agentName"`
	Images         []string       `json:"images,omitempty"`
	Status         ListingStatus  `json:"status"`
	PFListingID    string         `json:"pfListingId,omitempty"`
	PFListingURL   string         `json:"pfListingUrl,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	PublishedAt    *time.Time     `json:"publishedAt,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// ListingFields are the caller-controlled fields accepted when creating a listing.
type ListingFields struct {
	Reference      string         `json:"reference"`
	PermitNumber   string         `json:"permitNumber"`
	LocationName   string         `json:"locationName"`
	LocationID     *int64         `json:"locationId,omitempty"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	PropertyType   string         `json:"propertyType"`
	OfferingType   string         `json:"offeringType,omitempty"`
	FurnishingType string         `json:"furnishingType,omitempty"`
	ProjectStatus  string         `json:"projectStatus,omitempty"`
	Bedrooms       string         `json:"bedrooms"`
	Bathrooms      string         `json:"bathrooms"`
	Size           string         `json:"size"`
	Price          string         `json:"price"`
	AgentName      string         `json:"agentName"`
	Images         []string       `json:"images,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// BulkDraft is one entry of a simulated bulk submission.
type BulkDraft struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	Bedrooms     string `json:"bedrooms"`
	Bathrooms    string `json:"bathrooms"`
	Size         string `json:"size"`
	Location     string `json:"location"`
	PropertyType string `json:"propertyType"`
	OfferingType string `json:"offeringType"`
	ReraPermit   string `json:"reraPermit"`
}

// BulkResult is the simulated upstream record produced for a BulkDraft.
type BulkResult struct {
	ID               string  `json:"id"`
	Status           string  `json:"status"`
	TitleEN          string  `json:"title_en"`
	DescriptionEN    string  `json:"description_en"`
	Price            int64   `json:"price"`
	Bedrooms         int     `json:"bedrooms"`
	Bathrooms        int     `json:"bathrooms"`
	Size             float64 `json:"size"`
	PropertyType     string  `json:"property_type"`
	OfferingType     string  `json:"offering_type"`
	Location         string  `json:"location"`
	ReraPermitNumber *string `json:"rera_permit_number"`
}

// BulkError records a draft that could not be transformed.
type BulkError struct {
	Listing string `json:"listing"`
	Error   string `json:"error"`
}
