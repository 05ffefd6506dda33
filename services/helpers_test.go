package services

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pf-backoffice/config"
	"pf-backoffice/models"
	"pf-backoffice/pfapi"
	"pf-backoffice/storage"
	"pf-backoffice/utils"
)

// fakeUpstream records calls and returns canned answers.
type fakeUpstream struct {
	mu          sync.Mutex
	agents      []models.Agent
	agentsErr   error
	publish     pfapi.PublishResult
	publishErr  error
	payloads    []*pfapi.Payload
	existingIDs []string
	leads       *pfapi.Page
	remote      *pfapi.Page
	remoteArgs  []string
	invalidated []string
	locations   []pfapi.Location
	permit      *pfapi.Permit
	permitArgs  []string
}

func (f *fakeUpstream) ListAgents(_ context.Context, _ models.Credential) ([]models.Agent, error) {
	return f.agents, f.agentsErr
}

func (f *fakeUpstream) SearchLocations(_ context.Context, _ models.Credential, _ string, _ int) ([]pfapi.Location, error) {
	return f.locations, nil
}

func (f *fakeUpstream) LookupPermit(_ context.Context, _ models.Credential, permit, license string) (*pfapi.Permit, error) {
	f.mu.Lock()
	f.permitArgs = []string{permit, license}
	f.mu.Unlock()
	if f.permit == nil {
		return nil, &models.NotFoundError{Resource: "permit", Key: permit}
	}
	return f.permit, nil
}

func (f *fakeUpstream) CreateAndPublish(_ context.Context, _ models.Credential, p *pfapi.Payload, existingID string) (pfapi.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	f.existingIDs = append(f.existingIDs, existingID)
	return f.publish, f.publishErr
}

func (f *fakeUpstream) ListListings(_ context.Context, _ models.Credential, status string, page, limit int) (*pfapi.Page, error) {
	f.mu.Lock()
	f.remoteArgs = []string{status, strconv.Itoa(page), strconv.Itoa(limit)}
	f.mu.Unlock()
	return f.remote, nil
}

func (f *fakeUpstream) ListLeads(_ context.Context, _ models.Credential, _, _ int) (*pfapi.Page, error) {
	return f.leads, nil
}

func (f *fakeUpstream) Invalidate(apiKey string) {
	f.mu.Lock()
	f.invalidated = append(f.invalidated, apiKey)
	f.mu.Unlock()
}

var testAccounts = []config.Account{
	{ID: "galahome", APIKey: "gk", APISecret: "gs", LicenseNumber: "CN-1100636"},
	{ID: "vamrealty"},
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Options{
		Driver: "sqlite", URL: filepath.Join(t.TempDir(), "svc.db"), ConnectRetries: 1,
	}, utils.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewStore(db)
}

type testEnv struct {
	store    *storage.Store
	upstream *fakeUpstream
	creds    *Credentials
	listings *Listings
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := openTestStore(t)
	up := &fakeUpstream{}
	logger := newTestLogger()
	creds := NewCredentials(store.Settings, testAccounts, up, logger)
	listings := NewListings(store.Listings, creds, up, nil, "https://www.propertyfinder.ae/en/property", logger)
	return &testEnv{store: store, upstream: up, creds: creds, listings: listings}
}
