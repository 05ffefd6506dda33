package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pf-backoffice/models"
	"pf-backoffice/storage"
	"pf-backoffice/utils"
)

// Master is the persisted, cumulative list of scraped properties. Appends are
// never deduplicated.
type Master struct {
	repo   storage.Repository[models.MasterEntry]
	logger *utils.Logger
	now    func() time.Time
}

// NewMaster creates the master list service.
func NewMaster(repo storage.Repository[models.MasterEntry], logger *utils.Logger) *Master {
	return &Master{repo: repo, logger: logger, now: time.Now}
}

// Append adds records to the master list in one transaction and returns the
// new list size.
func (s *Master) Append(ctx context.Context, records []models.ScrapedProperty) (int, error) {
	at := s.now().UTC()
	entries := make([]*models.MasterEntry, len(records))
	for i, r := range records {
		entries[i] = &models.MasterEntry{EntryID: uuid.NewString(), AppendedAt: at, Property: r}
	}
	if err := s.repo.Append(ctx, entries...); err != nil {
		return 0, fmt.Errorf("master: append: %w", err)
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("master: count: %w", err)
	}
	s.logger.Info("[master] appended %d records, %d total", len(records), n)
	return n, nil
}

// List returns the master list in append order.
func (s *Master) List(ctx context.Context) ([]models.ScrapedProperty, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("master: list: %w", err)
	}
	out := make([]models.ScrapedProperty, len(entries))
	for i, e := range entries {
		out[i] = e.Property
	}
	return out, nil
}

// Clear empties the master list.
func (s *Master) Clear(ctx context.Context) (int64, error) {
	n, err := s.repo.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("master: clear: %w", err)
	}
	s.logger.Info("[master] cleared %d records", n)
	return n, nil
}
