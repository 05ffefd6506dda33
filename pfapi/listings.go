package pfapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"pf-backoffice/models"
)

// Payload is the body of POST /v1/listings.
type Payload struct {
	Reference      string       `json:"reference"`
	Category       string       `json:"category"`
	Type           string       `json:"type"`
	ProjectStatus  string       `json:"projectStatus"`
	FurnishingType string       `json:"furnishingType"`
	Title          localized    `json:"title"`
	Description    localized    `json:"description"`
	Bedrooms       string       `json:"bedrooms"`
	Bathrooms      int          `json:"bathrooms"`
	Size           float64      `json:"size"`
	Price          payloadPrice `json:"price"`
	Location       *ref         `json:"location,omitempty"`
	Media          payloadMedia `json:"media"`
	Compliance     compliance   `json:"compliance"`
	Amenities      []string     `json:"amenities"`
	CreatedBy      *ref         `json:"createdBy,omitempty"`
	AssignedTo     *ref         `json:"assignedTo,omitempty"`
}

type localized struct {
	EN string `json:"en"`
}

type payloadPrice struct {
	Type    string             `json:"type"`
	Amounts map[string]float64 `json:"amounts"`
}

type ref struct {
	ID int64 `json:"id"`
}

type payloadMedia struct {
	Images []payloadImage `json:"images"`
}

type payloadImage struct {
	Original struct {
		URL string `json:"url"`
	} `json:"original"`
}

type compliance struct {
	Type                       string `json:"type"`
	ListingAdvertisementNumber string `json:"listingAdvertisementNumber"`
}

// BuildPayload maps a staged listing onto the API's listing body. The agent,
// when known, becomes both creator and assignee.
func BuildPayload(l *models.Listing, agent *models.Agent, images []string) (*Payload, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(l.Price), 64)
	if err != nil {
		return nil, models.NewValidationError("price", "price %q is not numeric", l.Price)
	}
	bathrooms, err := parseIntField("bathrooms", l.Bathrooms)
	if err != nil {
		return nil, err
	}
	size, err := parseFloatField("size", l.Size)
	if err != nil {
		return nil, err
	}

	sale := l.OfferingType != models.OfferingRent
	p := &Payload{
		Reference:      l.Reference,
		Category:       "residential_rent",
		Type:           strings.ToLower(l.PropertyType),
		ProjectStatus:  orDefault(l.ProjectStatus, "completed"),
		FurnishingType: orDefault(l.FurnishingType, "unfurnished"),
		Title:          localized{EN: l.Title},
		Description:    localized{EN: l.Description},
		Bedrooms:       NormalizeBedrooms(l.Bedrooms),
		Bathrooms:      bathrooms,
		Size:           size,
		Price:          payloadPrice{Type: "yearly", Amounts: map[string]float64{"rent": price}},
		Compliance:     compliance{Type: "rera", ListingAdvertisementNumber: l.PermitNumber},
		Amenities:      amenities(l.Data),
	}
	if l.LocationID != nil {
		p.Location = &ref{ID: *l.LocationID}
	}
	if agent != nil {
		p.CreatedBy = &ref{ID: agent.ID}
		p.AssignedTo = &ref{ID: agent.ID}
	}
	if sale {
		p.Category = "residential_sale"
		p.Price = payloadPrice{Type: "fixed", Amounts: map[string]float64{"sale": price}}
	}

	p.Media.Images = make([]payloadImage, 0, len(images))
	for _, u := range images {
		var img payloadImage
		img.Original.URL = u
		p.Media.Images = append(p.Media.Images, img)
	}
	return p, nil
}

func parseIntField(field, v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, models.NewValidationError(field, "%q is not a whole number", v)
	}
	return n, nil
}

func parseFloatField(field, v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, models.NewValidationError(field, "%q is not numeric", v)
	}
	return f, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func amenities(data map[string]any) []string {
	out := make([]string, 0)
	raw, ok := data["amenities"].([]any)
	if !ok {
		return out
	}
	for _, a := range raw {
		if s, ok := a.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

type idResponse struct {
	ID   flexID `json:"id"`
	Data *struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

// CreateListing creates an unpublished listing and returns its remote id.
func (c *Client) CreateListing(ctx context.Context, cred models.Credential, payload *Payload) (string, error) {
	var out idResponse
	_, err := c.call(ctx, "create_listing", cred, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(payload).SetResult(&out).Post("/v1/listings")
	})
	if err != nil {
		return "", err
	}

	id := out.ID
	if out.Data != nil && out.Data.ID != "" {
		id = out.Data.ID
	}
	if id == "" {
		return "", &models.UpstreamError{Op: "create_listing", Message: "response carried no listing id"}
	}
	return string(id), nil
}

// PublishListing publishes a created listing.
func (c *Client) PublishListing(ctx context.Context, cred models.Credential, id string) error {
	_, err := c.call(ctx, "publish_listing", cred, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Post("/v1/listings/{id}/publish")
	})
	return err
}

type listingResponse struct {
	Data struct {
		ID      flexID `json:"id"`
		Portals struct {
			PropertyFinder struct {
				URL string `json:"url"`
			} `json:"propertyfinder"`
		} `json:"portals"`
	} `json:"data"`
}

// GetListing returns the public portal URL of a listing, empty until the
// portal has generated it.
func (c *Client) GetListing(ctx context.Context, cred models.Credential, id string) (string, error) {
	var out listingResponse
	_, err := c.call(ctx, "get_listing", cred, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).SetResult(&out).Get("/v1/listings/{id}")
	})
	if err != nil {
		return "", err
	}
	return out.Data.Portals.PropertyFinder.URL, nil
}

// PublishResult is the outcome of CreateAndPublish.
type PublishResult struct {
	ID  string
	URL string
}

// CreateAndPublish creates the listing (unless existingID names one created
// earlier), publishes it and reads back the live URL. The returned result
// carries the remote id even when publishing fails after creation. A failed
// read-back is not an error; URL is then empty.
func (c *Client) CreateAndPublish(ctx context.Context, cred models.Credential, payload *Payload, existingID string) (PublishResult, error) {
	result := PublishResult{ID: existingID}

	if result.ID == "" {
		id, err := c.CreateListing(ctx, cred, payload)
		if err != nil {
			return result, err
		}
		result.ID = id
		c.logger.Info("[pfapi] created listing %s for reference %s", id, payload.Reference)
	}

	if err := c.PublishListing(ctx, cred, result.ID); err != nil {
		return result, err
	}

	if c.settleDelay > 0 {
		select {
		case <-ctx.Done():
			return result, nil
		case <-time.After(c.settleDelay):
		}
	}

	url, err := c.GetListing(ctx, cred, result.ID)
	if err != nil {
		c.logger.Warn("[pfapi] published %s but could not read its URL: %v", result.ID, err)
		return result, nil
	}
	result.URL = url
	return result, nil
}

// Page is one page of a paginated collection.
type Page struct {
	Items []map[string]any `json:"items"`
	Total int              `json:"total"`
}

type pageResponse struct {
	Data []map[string]any `json:"data"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func (c *Client) page(ctx context.Context, op, path string, cred models.Credential, query map[string]string) (*Page, error) {
	var out pageResponse
	_, err := c.call(ctx, op, cred, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(query).SetResult(&out).Get(path)
	})
	if err != nil {
		return nil, err
	}
	items := out.Data
	if items == nil {
		items = make([]map[string]any, 0)
	}
	return &Page{Items: items, Total: out.Meta.Total}, nil
}

func pageQuery(page, limit int) map[string]string {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return map[string]string{"page": strconv.Itoa(page), "limit": strconv.Itoa(limit)}
}

// ListListings returns one page of remote listings, optionally by status.
func (c *Client) ListListings(ctx context.Context, cred models.Credential, status string, page, limit int) (*Page, error) {
	q := pageQuery(page, limit)
	if status != "" {
		q["status"] = status
	}
	return c.page(ctx, "list_listings", "/v1/listings", cred, q)
}

// ListLeads returns one page of leads.
func (c *Client) ListLeads(ctx context.Context, cred models.Credential, page, limit int) (*Page, error) {
	return c.page(ctx, "list_leads", "/v1/leads", cred, pageQuery(page, limit))
}

// FallbackURL is the portal URL assumed when the API does not report one.
func FallbackURL(portalBase, remoteID string) string {
	return fmt.Sprintf("%s/listing-%s", strings.TrimRight(portalBase, "/"), remoteID)
}
