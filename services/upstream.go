package services

import (
	"context"

	"pf-backoffice/models"
	"pf-backoffice/pfapi"
)

// Upstream is the part of the listings API client the services use.
// *pfapi.Client implements it.
type Upstream interface {
	ListAgents(ctx context.Context, cred models.Credential) ([]models.Agent, error)
	SearchLocations(ctx context.Context, cred models.Credential, query string, limit int) ([]pfapi.Location, error)
	LookupPermit(ctx context.Context, cred models.Credential, permitNumber, licenseNumber string) (*pfapi.Permit, error)
	CreateAndPublish(ctx context.Context, cred models.Credential, payload *pfapi.Payload, existingID string) (pfapi.PublishResult, error)
	ListListings(ctx context.Context, cred models.Credential, status string, page, limit int) (*pfapi.Page, error)
	ListLeads(ctx context.Context, cred models.Credential, page, limit int) (*pfapi.Page, error)
	Invalidate(apiKey string)
}

var _ Upstream = (*pfapi.Client)(nil)
