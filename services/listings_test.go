package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pf-backoffice/models"
	"pf-backoffice/pfapi"
)

func draftFields(ref string) models.ListingFields {
	return models.ListingFields{Reference: ref, PermitNumber: "P-1", Title: "2BR Flat", Price: "500000"}
}

// create → publish → delete, against a successful upstream.
func TestListingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.upstream.publish = pfapi.PublishResult{ID: "9001", URL: "https://www.propertyfinder.ae/en/plp/buy/9001.html"}

	l, err := env.listings.Create(ctx, draftFields("R-001"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, l.Status)
	assert.NotEmpty(t, l.ID)
	assert.False(t, l.CreatedAt.IsZero())

	live, err := env.listings.Publish(ctx, l.ID, "galahome", false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, live.Status)
	assert.NotEmpty(t, live.PFListingURL)
	assert.Equal(t, "9001", live.PFListingID)
	require.NotNil(t, live.PublishedAt)

	require.NoError(t, env.listings.Delete(ctx, l.ID))
	all, err := env.listings.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.ListingFields)
		field  string
	}{
		{"missing reference", func(f *models.ListingFields) { f.Reference = " " }, "reference"},
		{"missing permit", func(f *models.ListingFields) { f.PermitNumber = "" }, "permitNumber"},
		{"missing title", func(f *models.ListingFields) { f.Title = "" }, "title"},
		{"missing price", func(f *models.ListingFields) { f.Price = "" }, "price"},
		{"non-numeric price", func(f *models.ListingFields) { f.Price = "cheap" }, "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := draftFields("R-V")
			tt.mutate(&f)
			_, err := env.listings.Create(ctx, f)
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	all, err := env.listings.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateDuplicateReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.listings.Create(ctx, draftFields("R-DUP"))
	require.NoError(t, err)

	dup := draftFields("R-DUP")
	dup.Title = "Other"
	_, err = env.listings.Create(ctx, dup)
	var de *models.DuplicateReferenceError
	require.ErrorAs(t, err, &de)

	all, err := env.listings.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first.Title, all[0].Title)
}

func TestPublishFailureMarksFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.upstream.publish = pfapi.PublishResult{ID: "remote-7"}
	env.upstream.publishErr = &models.UpstreamError{Op: "publish_listing", Status: 422, Message: "invalid permit"}

	l, err := env.listings.Create(ctx, draftFields("R-F"))
	require.NoError(t, err)

	failed, err := env.listings.Publish(ctx, l.ID, "galahome", false)
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "invalid permit")
	assert.Empty(t, failed.PFListingURL)
	assert.Equal(t, "remote-7", failed.PFListingID)

	// Failed listings need force, and the retry reuses the remote listing.
	_, err = env.listings.Publish(ctx, l.ID, "galahome", false)
	var te *models.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, models.StatusFailed, te.From)

	env.upstream.publishErr = nil
	env.upstream.publish = pfapi.PublishResult{ID: "remote-7"}
	live, err := env.listings.Publish(ctx, l.ID, "galahome", true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, live.Status)
	assert.Empty(t, live.ErrorMessage)
	assert.Equal(t, "https://www.propertyfinder.ae/en/property/listing-remote-7", live.PFListingURL)
	assert.Equal(t, []string{"", "remote-7"}, env.upstream.existingIDs)
}

func TestPublishLiveRequiresForce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.upstream.publish = pfapi.PublishResult{ID: "1", URL: "https://pf/1"}

	l, err := env.listings.Create(ctx, draftFields("R-L"))
	require.NoError(t, err)
	_, err = env.listings.Publish(ctx, l.ID, "galahome", false)
	require.NoError(t, err)

	_, err = env.listings.Publish(ctx, l.ID, "galahome", false)
	var te *models.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Len(t, env.upstream.payloads, 1)

	_, err = env.listings.Publish(ctx, l.ID, "galahome", true)
	require.NoError(t, err)
	assert.Len(t, env.upstream.payloads, 2)
}

func TestPublishWithoutCredentialsLeavesDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	l, err := env.listings.Create(ctx, draftFields("R-C"))
	require.NoError(t, err)
	_, err = env.listings.Publish(ctx, l.ID, "vamrealty", false)
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)

	got, err := env.listings.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, got.Status)

	_, err = env.listings.Publish(ctx, "missing", "galahome", false)
	assert.True(t, models.IsNotFound(err))
}

func TestPublishResolvesAgentAndRotatedImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.creds.Save(ctx, &models.Credential{
		AccountID: "galahome", APIKey: "gk", APISecret: "gs",
		Agents: []models.Agent{{ID: 1, Name: "Omar Ali"}, {ID: 2, Name: "Sara Khan"}},
	}))
	env.listings.images = staticPicker("https://cdn.example/marina/1.jpg")
	env.upstream.publish = pfapi.PublishResult{ID: "5", URL: "https://pf/5"}

	f := draftFields("R-A")
	f.AgentName = "sara khan"
	f.LocationName = "Dubai Marina"
	l, err := env.listings.Create(ctx, f)
	require.NoError(t, err)

	_, err = env.listings.Publish(ctx, l.ID, "galahome", false)
	require.NoError(t, err)
	require.Len(t, env.upstream.payloads, 1)
	p := env.upstream.payloads[0]
	assert.Equal(t, int64(2), p.AssignedTo.ID)
	require.Len(t, p.Media.Images, 1)
	assert.Equal(t, "https://cdn.example/marina/1.jpg", p.Media.Images[0].Original.URL)
}

type staticPicker string

func (s staticPicker) NextForLocation(context.Context, string) (string, error) {
	return string(s), nil
}

func TestQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.upstream.publish = pfapi.PublishResult{ID: "1", URL: "https://pf/1"}

	a, err := env.listings.Create(ctx, draftFields("R-1"))
	require.NoError(t, err)
	_, err = env.listings.Create(ctx, draftFields("R-2"))
	require.NoError(t, err)
	_, err = env.listings.Publish(ctx, a.ID, "galahome", false)
	require.NoError(t, err)

	got, err := env.listings.ByReference(ctx, "R-2")
	require.NoError(t, err)
	assert.Equal(t, "R-2", got.Reference)

	live, err := env.listings.ByStatus(ctx, models.StatusLive)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "R-1", live[0].Reference)

	_, err = env.listings.ByStatus(ctx, "archived")
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = env.listings.ByReference(ctx, "R-404")
	assert.True(t, models.IsNotFound(err))
	assert.True(t, models.IsNotFound(env.listings.Delete(ctx, "nope")))
}

func TestSimulateBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report, err := env.listings.SimulateBatch(ctx, "galahome", []models.BulkDraft{
		{Title: "Villa", Price: "2,500,000", Bedrooms: "4", Bathrooms: "5", Size: "4200.5", ReraPermit: "P-9"},
		{Title: "", Price: "100"},
		{Title: "Flat", Price: "n/a"},
		{Title: "Studio", Price: "450000"},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	require.Len(t, report.Errors, 2)

	v := report.Results[0]
	assert.True(t, strings.HasPrefix(v.ID, "PF-"))
	assert.Equal(t, int64(2500000), v.Price)
	assert.Equal(t, 4, v.Bedrooms)
	assert.Equal(t, 4200.5, v.Size)
	assert.Equal(t, "Villa", v.DescriptionEN)
	require.NotNil(t, v.ReraPermitNumber)
	assert.Nil(t, report.Results[1].ReraPermitNumber)
	assert.Equal(t, "Successfully processed 2 listings, 2 failed", report.Message())

	_, err = env.listings.SimulateBatch(ctx, "galahome", nil)
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = env.listings.SimulateBatch(ctx, "vamrealty", []models.BulkDraft{{Title: "x", Price: "1"}})
	assert.ErrorAs(t, err, &ve)

	n, err := env.store.Listings.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
