package pfapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pf-backoffice/models"
)

var testCred = models.Credential{AccountID: "galahome", APIKey: "key-1", APISecret: "secret-1"}

// fakeAPI is an in-process stand-in for the listings API.
type fakeAPI struct {
	*httptest.Server
	authCalls atomic.Int32
	calls     atomic.Int32
	mux       *http.ServeMux
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux()}
	f.mux.HandleFunc("POST /v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		f.authCalls.Add(1)
		var body authRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.APIKey != testCred.APIKey || body.APISecret != testCred.APISecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accessToken": "tok-" + body.APIKey, "expiresIn": 3600})
	})
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-"+testCred.APIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(f *fakeAPI) *Client {
	return New(Options{BaseURL: f.URL, Timeout: 2 * time.Second})
}

func TestAuthenticate(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(f)

	tok, err := c.Authenticate(context.Background(), "key-1", "secret-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-key-1", tok.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)

	_, err = c.Authenticate(context.Background(), "key-1", "wrong")
	var authErr *models.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestTokenIsCachedUntilNearExpiry(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /v1/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})
	c := newTestClient(f)
	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := c.ListAgents(context.Background(), testCred)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, f.authCalls.Load())

	// Inside the one minute safety margin the token is renewed.
	now = now.Add(59*time.Minute + 30*time.Second)
	_, err := c.ListAgents(context.Background(), testCred)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.authCalls.Load())
}

func TestSearchLocationsShortQueryMakesNoCalls(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(f)

	for _, q := range []string{"", "a", " J "} {
		locs, err := c.SearchLocations(context.Background(), testCred, q, 0)
		require.NoError(t, err)
		assert.Empty(t, locs)
	}
	assert.Zero(t, f.calls.Load())
}

func TestSearchLocationsBuildsFullName(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /v1/locations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "marina", r.URL.Query().Get("name"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{
			map[string]any{"id": 50, "name": "Dubai Marina", "tree": []any{
				map[string]any{"name": "Dubai", "type": "CITY"},
				map[string]any{"name": "Dubai Marina", "type": "COMMUNITY"},
				map[string]any{"name": "Marina Gate", "type": "TOWER"},
			}},
			map[string]any{"id": 1, "name": "Dubai", "tree": []any{
				map[string]any{"name": "Dubai", "type": "CITY"},
			}},
			map[string]any{"id": 60, "name": "Al Reem Island", "tree": []any{
				map[string]any{"name": "Abu Dhabi", "type": "CITY"},
				map[string]any{"name": "Al Reem Island", "type": "COMMUNITY"},
			}},
			map[string]any{"id": 61, "name": "Al Khan", "tree": []any{
				map[string]any{"name": "Sharjah", "type": "CITY"},
				map[string]any{"name": "Al Khan", "type": "COMMUNITY"},
			}},
			map[string]any{"id": 62, "name": "Al Nuaimiya", "tree": []any{
				map[string]any{"name": "Ajman", "type": "CITY"},
				map[string]any{"name": "Al Nuaimiya", "type": "COMMUNITY"},
			}},
			map[string]any{"id": 63, "name": "Mina Al Arab", "tree": []any{
				map[string]any{"name": "Ras Al Khaimah", "type": "CITY"},
				map[string]any{"name": "Mina Al Arab", "type": "COMMUNITY"},
				map[string]any{"name": "Marina Apartments", "type": "TOWER"},
			}},
			map[string]any{"id": 64, "name": "Dibba", "tree": []any{
				map[string]any{"name": "Fujairah", "type": "CITY"},
				map[string]any{"name": "Dibba", "type": "COMMUNITY"},
			}},
			map[string]any{"id": 65, "name": "Al Salamah", "tree": []any{
				map[string]any{"name": "Umm Al Quwain", "type": "CITY"},
				map[string]any{"name": "Al Salamah", "type": "COMMUNITY"},
			}},
		}})
	})
	c := newTestClient(f)

	locs, err := c.SearchLocations(context.Background(), testCred, "marina", 0)
	require.NoError(t, err)
	require.Len(t, locs, 8)
	assert.Equal(t, Location{ID: 50, Name: "Dubai Marina", FullName: "Dubai Marina, Marina Gate"}, locs[0])
	assert.Equal(t, "Dubai", locs[1].FullName)

	want := []string{"Al Reem Island", "Al Khan", "Al Nuaimiya", "Mina Al Arab, Marina Apartments", "Dibba", "Al Salamah"}
	emirates := []string{"Dubai", "Abu Dhabi", "Sharjah", "Ajman", "Ras Al Khaimah", "Fujairah", "Umm Al Quwain"}
	for i, full := range want {
		loc := locs[i+2]
		assert.Equal(t, full, loc.FullName, loc.Name)
		for _, e := range emirates {
			assert.NotContains(t, loc.FullName, e, loc.Name)
		}
	}
}

func TestLookupPermit(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /v1/compliances/{permit}/{license}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rera", r.URL.Query().Get("permitType"))
		switch r.PathValue("permit") {
		case "P-STUDIO":
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{map[string]any{
				"permitNumber": "P-STUDIO",
				"expiresAt":    "2027-01-01",
				"property": map[string]any{
					"value": 850000, "roomsCount": 0, "size": 420.5,
					"locationName": "JVC", "listingType": "sale",
				},
			}}})
		case "P-TWO":
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{map[string]any{
				"permitNumber": "P-TWO",
				"property":     map[string]any{"roomsCount": 2},
			}}})
		case "P-STRZERO":
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{map[string]any{
				"permitNumber": "P-STRZERO",
				"property":     map[string]any{"roomsCount": "0"},
			}}})
		case "P-STRTHREE":
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{map[string]any{
				"permitNumber": "P-STRTHREE",
				"property":     map[string]any{"roomsCount": "3"},
			}}})
		case "P-EMPTY":
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
		case "P-BROKEN":
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "compliance backend down"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := newTestClient(f)
	ctx := context.Background()

	p, err := c.LookupPermit(ctx, testCred, "P-STUDIO", "CN-1")
	require.NoError(t, err)
	assert.Equal(t, "studio", p.Bedrooms)
	assert.Equal(t, 850000.0, p.Price)
	assert.Equal(t, "JVC", p.LocationName)

	p, err = c.LookupPermit(ctx, testCred, "P-TWO", "CN-1")
	require.NoError(t, err)
	assert.Equal(t, "2", p.Bedrooms)

	p, err = c.LookupPermit(ctx, testCred, "P-STRZERO", "CN-1")
	require.NoError(t, err)
	assert.Equal(t, "studio", p.Bedrooms)

	p, err = c.LookupPermit(ctx, testCred, "P-STRTHREE", "CN-1")
	require.NoError(t, err)
	assert.Equal(t, "3", p.Bedrooms)

	_, err = c.LookupPermit(ctx, testCred, "P-BROKEN", "CN-1")
	var ue *models.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusInternalServerError, ue.Status)
	assert.False(t, models.IsNotFound(err))

	for _, permit := range []string{"P-EMPTY", "P-MISSING"} {
		_, err = c.LookupPermit(ctx, testCred, permit, "CN-1")
		assert.True(t, models.IsNotFound(err), permit)
	}

	_, err = c.LookupPermit(ctx, testCred, "P-TWO", "")
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestListAgents(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /v1/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{map[string]any{
			"agents": []any{
				map[string]any{"id": "101", "name": "Sara Khan", "publicProfileId": "sk"},
				map[string]any{"id": 102, "name": "Omar Ali"},
			},
		}}})
	})
	c := newTestClient(f)

	agents, err := c.ListAgents(context.Background(), testCred)
	require.NoError(t, err)
	assert.Equal(t, []models.Agent{
		{ID: 101, Name: "Sara Khan", PublicProfileID: "sk"},
		{ID: 102, Name: "Omar Ali"},
	}, agents)
}

func TestCreateAndPublish(t *testing.T) {
	f := newFakeAPI(t)
	var created Payload
	f.handle("POST /v1/listings", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": 9001}})
	})
	f.handle("POST /v1/listings/{id}/publish", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "9001", r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	f.handle("GET /v1/listings/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"id":      9001,
			"portals": map[string]any{"propertyfinder": map[string]any{"url": "https://pf.example/9001"}},
		}})
	})
	c := newTestClient(f)

	loc := int64(50)
	payload, err := BuildPayload(&models.Listing{
		Reference: "REF-1", PermitNumber: "P-1", Title: "Marina view", PropertyType: "Apartment",
		Bedrooms: "0", Bathrooms: "1", Size: "650", Price: "1200000", LocationID: &loc,
	}, &models.Agent{ID: 7}, []string{"https://cdn.example/a.jpg"})
	require.NoError(t, err)

	res, err := c.CreateAndPublish(context.Background(), testCred, payload, "")
	require.NoError(t, err)
	assert.Equal(t, PublishResult{ID: "9001", URL: "https://pf.example/9001"}, res)

	assert.Equal(t, "residential_sale", created.Category)
	assert.Equal(t, "apartment", created.Type)
	assert.Equal(t, "studio", created.Bedrooms)
	assert.Equal(t, "fixed", created.Price.Type)
	assert.Equal(t, 1200000.0, created.Price.Amounts["sale"])
	assert.Equal(t, "rera", created.Compliance.Type)
	assert.Equal(t, int64(7), created.AssignedTo.ID)
	require.Len(t, created.Media.Images, 1)
	assert.Equal(t, int64(50), created.Location.ID)
}

func TestBuildPayloadRent(t *testing.T) {
	p, err := BuildPayload(&models.Listing{
		Reference: "R-2", Price: "95000", OfferingType: models.OfferingRent, Bedrooms: "2",
	}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "residential_rent", p.Category)
	assert.Equal(t, "yearly", p.Price.Type)
	assert.Equal(t, 95000.0, p.Price.Amounts["rent"])
	assert.Equal(t, "2", p.Bedrooms)
	assert.Nil(t, p.Location)
	assert.Nil(t, p.CreatedBy)
	assert.Equal(t, "completed", p.ProjectStatus)
	assert.Equal(t, "unfurnished", p.FurnishingType)

	_, err = BuildPayload(&models.Listing{Price: "abc"}, nil, nil)
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCreateAndPublishKeepsIDWhenPublishFails(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("POST /v1/listings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "abc"})
	})
	f.handle("POST /v1/listings/{id}/publish", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusUnprocessableEntity)
	})
	c := newTestClient(f)

	res, err := c.CreateAndPublish(context.Background(), testCred, &Payload{Reference: "R"}, "")
	assert.Equal(t, "abc", res.ID)
	var ue *models.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnprocessableEntity, ue.Status)
	assert.Contains(t, ue.Message, "quota exceeded")
}

func TestTransportErrors(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /v1/users", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	})
	c := New(Options{BaseURL: f.URL, Timeout: 50 * time.Millisecond})

	_, err := c.ListAgents(context.Background(), testCred)
	var te *models.TransportError
	// The auth call itself may be the one timing out.
	require.True(t, errors.As(err, &te), "got %v", err)
}

func TestMissingCredentials(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(f)

	_, err := c.ListAgents(context.Background(), models.Credential{AccountID: "x"})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, f.calls.Load())
}

func TestPagination(t *testing.T) {
	f := newFakeAPI(t)
	f.handle("GET /v1/leads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []any{map[string]any{"id": "l1"}},
			"meta": map[string]any{"total": 51},
		})
	})
	c := newTestClient(f)

	page, err := c.ListLeads(context.Background(), testCred, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 51, page.Total)
	require.Len(t, page.Items, 1)
}

func TestNormalizeBedrooms(t *testing.T) {
	tests := map[string]string{"0": "studio", "": "studio", "studio": "studio", "3": "3", " 2 ": "2"}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeBedrooms(in), in)
	}
}

func TestFallbackURL(t *testing.T) {
	assert.Equal(t, "https://pf.example/en/property/listing-42", FallbackURL("https://pf.example/en/property/", "42"))
}
