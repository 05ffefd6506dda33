package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pf-backoffice/config"
	"pf-backoffice/models"
	"pf-backoffice/pfapi"
	"pf-backoffice/storage"
	"pf-backoffice/utils"
)

// Credentials stores the upstream credentials of each brokerage account.
// Saved settings take precedence over the configured defaults.
type Credentials struct {
	repo     storage.Repository[models.Credential]
	accounts []config.Account
	upstream Upstream
	logger   *utils.Logger
}

// NewCredentials creates the credential store.
func NewCredentials(repo storage.Repository[models.Credential], accounts []config.Account, upstream Upstream, logger *utils.Logger) *Credentials {
	return &Credentials{repo: repo, accounts: accounts, upstream: upstream, logger: logger}
}

// Get returns the credential of accountID. Unknown accounts yield a
// NotFoundError; the returned keys may be empty.
func (s *Credentials) Get(ctx context.Context, accountID string) (*models.Credential, error) {
	stored, err := s.repo.Get(ctx, accountID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("credentials: load %s: %w", accountID, err)
	}
	if stored != nil && stored.APIKey != "" {
		return stored, nil
	}

	for _, a := range s.accounts {
		if a.ID != accountID {
			continue
		}
		cred := &models.Credential{
			AccountID:     a.ID,
			APIKey:        a.APIKey,
			APISecret:     a.APISecret,
			LicenseNumber: a.LicenseNumber,
		}
		if stored != nil {
			cred.Agents = stored.Agents
			if stored.LicenseNumber != "" {
				cred.LicenseNumber = stored.LicenseNumber
			}
		}
		return cred, nil
	}

	if stored != nil {
		return stored, nil
	}
	return nil, &models.NotFoundError{Resource: "account", Key: accountID}
}

// Resolve is Get for callers that need usable keys.
func (s *Credentials) Resolve(ctx context.Context, accountID string) (*models.Credential, error) {
	cred, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if cred.APIKey == "" || cred.APISecret == "" {
		return nil, models.NewValidationError("credentials", "API credentials not configured for %s", accountID)
	}
	return cred, nil
}

// Save overwrites the stored credential of cred.AccountID.
func (s *Credentials) Save(ctx context.Context, cred *models.Credential) error {
	cred.AccountID = strings.TrimSpace(cred.AccountID)
	if cred.AccountID == "" {
		return models.NewValidationError("userId", "account id is required")
	}
	if err := s.repo.Put(ctx, cred); err != nil {
		return fmt.Errorf("credentials: save %s: %w", cred.AccountID, err)
	}
	if s.upstream != nil && cred.APIKey != "" {
		s.upstream.Invalidate(cred.APIKey)
	}
	s.logger.Info("[credentials] saved settings for %s", cred.AccountID)
	return nil
}

// TestConnection authenticates with a fresh token and returns the agents
// linked to the key.
func (s *Credentials) TestConnection(ctx context.Context, apiKey, apiSecret string) ([]models.Agent, error) {
	apiKey, apiSecret = strings.TrimSpace(apiKey), strings.TrimSpace(apiSecret)
	if apiKey == "" || apiSecret == "" {
		return nil, models.NewValidationError("", "API Key and Secret are required")
	}
	s.upstream.Invalidate(apiKey)
	return s.upstream.ListAgents(ctx, models.Credential{APIKey: apiKey, APISecret: apiSecret})
}

// RefreshAgents re-reads the agent list of accountID and caches it.
func (s *Credentials) RefreshAgents(ctx context.Context, accountID string) (*models.Credential, error) {
	cred, err := s.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	agents, err := s.TestConnection(ctx, cred.APIKey, cred.APISecret)
	if err != nil {
		return nil, err
	}
	cred.Agents = agents

	// Keys resolved from config are not persisted; Get merges them back in.
	stored, err := s.repo.Get(ctx, accountID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("credentials: load %s: %w", accountID, err)
	}
	keep := cred
	if stored == nil || stored.APIKey == "" {
		keep = &models.Credential{AccountID: cred.AccountID, Agents: agents}
		if stored != nil {
			keep.LicenseNumber = stored.LicenseNumber
		}
	}
	if err := s.Save(ctx, keep); err != nil {
		return nil, err
	}
	s.logger.Info("[credentials] cached %d agents for %s", len(agents), accountID)
	return cred, nil
}

// SearchLocations runs a location search with the account's credentials.
// Short queries return no results without resolving credentials.
func (s *Credentials) SearchLocations(ctx context.Context, accountID, query string) ([]pfapi.Location, error) {
	if len([]rune(strings.TrimSpace(query))) < 2 {
		return []pfapi.Location{}, nil
	}
	cred, err := s.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.upstream.SearchLocations(ctx, *cred, query, pfapi.DefaultLocationLimit)
}

// LookupPermit fetches permit data with the account's credentials. An empty
// licence number falls back to the account's stored licence.
func (s *Credentials) LookupPermit(ctx context.Context, accountID, permitNumber, licenseNumber string) (*pfapi.Permit, error) {
	if strings.TrimSpace(permitNumber) == "" {
		return nil, models.NewValidationError("permitNumber", "Permit number is required")
	}
	cred, err := s.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(licenseNumber) == "" {
		licenseNumber = cred.LicenseNumber
	}
	return s.upstream.LookupPermit(ctx, *cred, permitNumber, licenseNumber)
}

// RemoteListings returns one page of the account's listings as the portal
// reports them.
func (s *Credentials) RemoteListings(ctx context.Context, accountID, status string, page, limit int) (*pfapi.Page, error) {
	cred, err := s.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.upstream.ListListings(ctx, *cred, strings.TrimSpace(status), page, limit)
}
