package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pf-backoffice/models"
	"pf-backoffice/pfapi"
)

func TestLeadsSync(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.upstream.leads = &pfapi.Page{Total: 3, Items: []map[string]any{
		{
			"id": "L-1", "channel": "whatsapp", "status": "new", "createdAt": "2026-10-01T10:00:00Z",
			"listing": map[string]any{"id": "9001", "reference": "R-001", "location": map[string]any{"name": "Dubai Marina"}},
			"sender":  map[string]any{"name": "Aisha", "phone": "+971500000000", "email": "aisha@example.com"},
		},
		{"id": 42.0, "type": "call", "listing": map[string]any{"reference": "R-002"}},
		{"type": "email"},
	}}
	leads := NewLeads(env.store.Leads, env.creds, env.upstream, newTestLogger())

	res, err := leads.Sync(ctx, "galahome", 1, 50)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Synced: 2, Total: 3}, res)

	// Syncing again upserts rather than duplicating.
	_, err = leads.Sync(ctx, "galahome", 1, 50)
	require.NoError(t, err)
	all, err := leads.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byListing, err := leads.ByListing(ctx, "R-001")
	require.NoError(t, err)
	require.Len(t, byListing, 1)
	l := byListing[0]
	assert.Equal(t, "whatsapp", l.LeadType)
	assert.Equal(t, "Aisha", l.ClientName)
	assert.Equal(t, "Dubai Marina", l.LocationName)
	assert.Equal(t, "galahome", l.AccountID)

	second, err := leads.ByListing(ctx, "R-002")
	require.NoError(t, err)
	assert.Equal(t, "42", second[0].ID)

	_, err = leads.Sync(ctx, "vamrealty", 1, 50)
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
}
