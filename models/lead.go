package models

// Lead is an enquiry received upstream for one of the account's listings.
type Lead struct {
	ID               string         `json:"id"`
	AccountID        string         `json:"accountId"`
	ListingID        string         `json:"listingId,omitempty"`
	ListingReference string         `json:"listingReference"`
	LocationName     string         `json:"locationName"`
	LeadType         string         `json:"leadType"`
	LeadDate         string         `json:"leadDate"`
	ClientName       string         `json:"clientName"`
	ClientPhone      string         `json:"clientPhone"`
	ClientEmail      string         `json:"clientEmail"`
	Status           string         `json:"status"`
	Notes            string         `json:"notes,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
}
