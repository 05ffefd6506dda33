package pfapi

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"pf-backoffice/models"
)

// DefaultLocationLimit is used when SearchLocations is called with limit <= 0.
const DefaultLocationLimit = 10

// emirates are dropped from location display names.
var emirates = map[string]bool{
	"Dubai":          true,
	"Abu Dhabi":      true,
	"Sharjah":        true,
	"Ajman":          true,
	"Ras Al Khaimah": true,
	"Fujairah":       true,
	"Umm Al Quwain":  true,
}

// Location is a location search hit.
type Location struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
}

type locationsResponse struct {
	Data []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Tree []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"tree"`
	} `json:"data"`
}

// SearchLocations looks locations up by name. Queries shorter than two
// characters return an empty result without touching the network.
func (c *Client) SearchLocations(ctx context.Context, cred models.Credential, query string, limit int) ([]Location, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < 2 {
		return []Location{}, nil
	}
	if limit <= 0 {
		limit = DefaultLocationLimit
	}

	var out locationsResponse
	_, err := c.call(ctx, "locations", cred, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(map[string]string{
			"name":  query,
			"limit": strconv.Itoa(limit),
		}).SetResult(&out).Get("/v1/locations")
	})
	if err != nil {
		return nil, err
	}

	locations := make([]Location, 0, len(out.Data))
	for _, loc := range out.Data {
		parts := make([]string, 0, len(loc.Tree))
		for _, node := range loc.Tree {
			if !emirates[node.Name] {
				parts = append(parts, node.Name)
			}
		}
		fullName := loc.Name
		if len(parts) > 0 {
			fullName = strings.Join(parts, ", ")
		}
		locations = append(locations, Location{ID: loc.ID, Name: loc.Name, FullName: fullName})
	}
	return locations, nil
}
