package services

import (
	"context"
	"fmt"
	"strconv"

	"pf-backoffice/models"
	"pf-backoffice/storage"
	"pf-backoffice/utils"
)

// Leads mirrors the enquiries received upstream into the local store.
type Leads struct {
	repo     storage.Repository[models.Lead]
	creds    *Credentials
	upstream Upstream
	logger   *utils.Logger
}

// NewLeads creates the lead service.
func NewLeads(repo storage.Repository[models.Lead], creds *Credentials, upstream Upstream, logger *utils.Logger) *Leads {
	return &Leads{repo: repo, creds: creds, upstream: upstream, logger: logger}
}

// SyncResult reports one page of synchronised leads.
type SyncResult struct {
	Synced int `json:"synced"`
	Total  int `json:"total"`
}

// Sync pulls one page of leads for accountID and upserts them.
func (s *Leads) Sync(ctx context.Context, accountID string, page, limit int) (*SyncResult, error) {
	cred, err := s.creds.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	p, err := s.upstream.ListLeads(ctx, *cred, page, limit)
	if err != nil {
		return nil, err
	}

	synced := 0
	for _, item := range p.Items {
		lead := leadFromAPI(accountID, item)
		if lead.ID == "" {
			s.logger.Warn("[leads] skipping lead without id")
			continue
		}
		if err := s.repo.Put(ctx, lead); err != nil {
			return nil, fmt.Errorf("leads: store %s: %w", lead.ID, err)
		}
		synced++
	}
	s.logger.Info("[leads] synced %d of %d leads for %s", synced, p.Total, accountID)
	return &SyncResult{Synced: synced, Total: p.Total}, nil
}

// All returns every stored lead.
func (s *Leads) All(ctx context.Context) ([]*models.Lead, error) {
	return s.repo.List(ctx)
}

// ByListing returns the leads for a listing reference.
func (s *Leads) ByListing(ctx context.Context, reference string) ([]*models.Lead, error) {
	return s.repo.Find(ctx, func(l *models.Lead) bool { return l.ListingReference == reference })
}

func leadFromAPI(accountID string, m map[string]any) *models.Lead {
	listing := object(m, "listing")
	sender := object(m, "sender")
	if sender == nil {
		sender = object(m, "client")
	}
	return &models.Lead{
		ID:               str(m, "id"),
		AccountID:        accountID,
		ListingID:        str(listing, "id"),
		ListingReference: str(listing, "reference"),
		LocationName:     str(object(listing, "location"), "name"),
		LeadType:         firstOf(str(m, "channel"), str(m, "type")),
		LeadDate:         str(m, "createdAt"),
		ClientName:       str(sender, "name"),
		ClientPhone:      firstOf(str(sender, "phone"), str(sender, "mobile")),
		ClientEmail:      str(sender, "email"),
		Status:           str(m, "status"),
		Data:             m,
	}
}

func object(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
