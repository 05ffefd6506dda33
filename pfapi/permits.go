package pfapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"pf-backoffice/models"
)

// Permit is the regulator data behind an advertising permit.
type Permit struct {
	PermitNumber string  `json:"permitNumber"`
	ExpiresAt    string  `json:"expiresAt"`
	Price        float64 `json:"price"`
	Bedrooms     string  `json:"bedrooms"`
	Size         float64 `json:"size"`
	LocationName string  `json:"locationName"`
	ListingType  string  `json:"listingType"`
}

type permitResponse struct {
	Data []struct {
		PermitNumber string `json:"permitNumber"`
		ExpiresAt    string `json:"expiresAt"`
		Property     struct {
			Value        float64 `json:"value"`
			RoomsCount   any     `json:"roomsCount"`
			Size         float64 `json:"size"`
			LocationName string  `json:"locationName"`
			ListingType  string  `json:"listingType"`
		} `json:"property"`
	} `json:"data"`
}

// LookupPermit fetches RERA permit data for a permit and brokerage licence.
func (c *Client) LookupPermit(ctx context.Context, cred models.Credential, permitNumber, licenseNumber string) (*Permit, error) {
	permitNumber = strings.TrimSpace(permitNumber)
	licenseNumber = strings.TrimSpace(licenseNumber)
	if permitNumber == "" {
		return nil, models.NewValidationError("permitNumber", "Permit number is required")
	}
	if licenseNumber == "" {
		return nil, models.NewValidationError("licenseNumber", "License number is required. Configure it in Settings.")
	}

	var out permitResponse
	_, err := c.call(ctx, "permit", cred, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParams(map[string]string{
			"permit":  permitNumber,
			"license": licenseNumber,
		}).SetQueryParam("permitType", "rera").
			SetResult(&out).
			Get("/v1/compliances/{permit}/{license}")
	})
	if IsUpstreamStatus(err, http.StatusNotFound) {
		return nil, &models.NotFoundError{Resource: "permit", Key: permitNumber}
	}
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, &models.NotFoundError{Resource: "permit", Key: permitNumber}
	}

	p := out.Data[0]
	return &Permit{
		PermitNumber: p.PermitNumber,
		ExpiresAt:    p.ExpiresAt,
		Price:        p.Property.Value,
		Bedrooms:     roomsLabel(p.Property.RoomsCount),
		Size:         p.Property.Size,
		LocationName: p.Property.LocationName,
		ListingType:  p.Property.ListingType,
	}, nil
}

// roomsLabel renders a room count the API may send as a number or a string;
// zero rooms is a studio.
func roomsLabel(v any) string {
	switch n := v.(type) {
	case float64:
		if n == 0 {
			return "studio"
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		if n == "0" {
			return "studio"
		}
		return n
	}
	return ""
}

// NormalizeBedrooms maps a bedroom count to the API's label: non-numeric or
// zero values become "studio".
func NormalizeBedrooms(value string) string {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n == 0 {
		return "studio"
	}
	return strconv.Itoa(n)
}
