package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pf-backoffice/metrics"
	"pf-backoffice/models"
	"pf-backoffice/pfapi"
	"pf-backoffice/storage"
	"pf-backoffice/utils"
)

// ImagePicker hands out the next image URL to use for a location.
type ImagePicker interface {
	NextForLocation(ctx context.Context, location string) (string, error)
}

// Listings manages the draft/live/failed lifecycle of staged listings.
type Listings struct {
	repo       storage.Repository[models.Listing]
	creds      *Credentials
	upstream   Upstream
	images     ImagePicker
	portalBase string
	logger     *utils.Logger
	now        func() time.Time
}

// NewListings creates the listing service. images may be nil.
func NewListings(repo storage.Repository[models.Listing], creds *Credentials, upstream Upstream, images ImagePicker, portalBase string, logger *utils.Logger) *Listings {
	return &Listings{
		repo:       repo,
		creds:      creds,
		upstream:   upstream,
		images:     images,
		portalBase: portalBase,
		logger:     logger,
		now:        time.Now,
	}
}

// Create validates fields and stores them as a new draft.
func (s *Listings) Create(ctx context.Context, f models.ListingFields) (*models.Listing, error) {
	f.Reference = strings.TrimSpace(f.Reference)
	f.PermitNumber = strings.TrimSpace(f.PermitNumber)
	f.Title = strings.TrimSpace(f.Title)
	f.Price = strings.TrimSpace(f.Price)

	switch {
	case f.Reference == "":
		return nil, models.NewValidationError("reference", "reference is required")
	case f.PermitNumber == "":
		return nil, models.NewValidationError("permitNumber", "permit number is required")
	case f.Title == "":
		return nil, models.NewValidationError("title", "title is required")
	case f.Price == "":
		return nil, models.NewValidationError("price", "price is required")
	}
	if _, err := strconv.ParseFloat(f.Price, 64); err != nil {
		return nil, models.NewValidationError("price", "price %q is not numeric", f.Price)
	}

	if _, err := s.repo.FindByUnique(ctx, f.Reference); err == nil {
		return nil, &models.DuplicateReferenceError{Reference: f.Reference}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("listings: check reference: %w", err)
	}

	l := &models.Listing{
		ID:             uuid.NewString(),
		Reference:      f.Reference,
		PermitNumber:   f.PermitNumber,
		LocationName:   strings.TrimSpace(f.LocationName),
		LocationID:     f.LocationID,
		Title:          f.Title,
		Description:    f.Description,
		PropertyType:   strings.TrimSpace(f.PropertyType),
		OfferingType:   strings.ToUpper(strings.TrimSpace(f.OfferingType)),
		FurnishingType: strings.TrimSpace(f.FurnishingType),
		ProjectStatus:  strings.TrimSpace(f.ProjectStatus),
		Bedrooms:       strings.TrimSpace(f.Bedrooms),
		Bathrooms:      strings.TrimSpace(f.Bathrooms),
		Size:           strings.TrimSpace(f.Size),
		Price:          f.Price,
		AgentName:      strings.TrimSpace(f.AgentName),
		Images:         f.Images,
		Status:         models.StatusDraft,
		CreatedAt:      s.now().UTC(),
		Data:           f.Data,
	}

	if err := s.repo.Insert(ctx, l); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, &models.DuplicateReferenceError{Reference: f.Reference}
		}
		return nil, fmt.Errorf("listings: create: %w", err)
	}
	s.logger.Info("[listings] created draft %s (%s)", l.Reference, l.ID)
	return l, nil
}

// Publish pushes a listing to the portal with accountID's credentials. Only
// drafts publish without force. The outcome is recorded on the listing: live
// with its URL, or failed with the upstream error text.
func (s *Listings) Publish(ctx context.Context, id, accountID string, force bool) (*models.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != models.StatusDraft && !force {
		return nil, &models.InvalidTransitionError{From: l.Status, To: models.StatusLive}
	}

	cred, err := s.creds.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result, pubErr := s.attempt(ctx, l, cred)

	// The outcome is recorded even when the caller has gone away.
	updated, err := s.repo.Update(context.WithoutCancel(ctx), id, func(cur *models.Listing) error {
		if result.ID != "" {
			cur.PFListingID = result.ID
		}
		if pubErr != nil {
			cur.Status = models.StatusFailed
			cur.ErrorMessage = pubErr.Error()
			cur.PFListingURL = ""
			return nil
		}
		published := s.now().UTC()
		cur.Status = models.StatusLive
		cur.ErrorMessage = ""
		cur.PFListingURL = result.URL
		if cur.PFListingURL == "" {
			cur.PFListingURL = pfapi.FallbackURL(s.portalBase, result.ID)
		}
		cur.PublishedAt = &published
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &models.NotFoundError{Resource: "listing", Key: id}
		}
		return nil, fmt.Errorf("listings: record publish outcome: %w", err)
	}

	if pubErr != nil {
		metrics.PublishOutcomes.WithLabelValues(string(models.StatusFailed)).Inc()
		s.logger.Warn("[listings] publish of %s failed: %v", l.Reference, pubErr)
		return updated, pubErr
	}
	metrics.PublishOutcomes.WithLabelValues(string(models.StatusLive)).Inc()
	s.logger.Info("[listings] %s is live at %s", l.Reference, updated.PFListingURL)
	return updated, nil
}

// attempt builds the payload and runs the create/publish calls. A remote id
// from an earlier failed attempt is reused instead of creating again.
func (s *Listings) attempt(ctx context.Context, l *models.Listing, cred *models.Credential) (pfapi.PublishResult, error) {
	var agent *models.Agent
	if a, ok := cred.AgentByName(l.AgentName); ok {
		agent = &a
	} else if len(cred.Agents) > 0 {
		if l.AgentName != "" {
			s.logger.Warn("[listings] agent %q not linked to %s, assigning %s", l.AgentName, cred.AccountID, cred.Agents[0].Name)
		}
		agent = &cred.Agents[0]
	}

	images := l.Images
	if len(images) == 0 && s.images != nil && l.LocationName != "" {
		url, err := s.images.NextForLocation(ctx, l.LocationName)
		switch {
		case err == nil:
			images = []string{url}
		case models.IsNotFound(err):
		default:
			s.logger.Warn("[listings] no rotated image for %s: %v", l.LocationName, err)
		}
	}

	payload, err := pfapi.BuildPayload(l, agent, images)
	if err != nil {
		return pfapi.PublishResult{ID: l.PFListingID}, err
	}
	return s.upstream.CreateAndPublish(ctx, *cred, payload, l.PFListingID)
}

// Get returns the listing with id.
func (s *Listings) Get(ctx context.Context, id string) (*models.Listing, error) {
	l, err := s.repo.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &models.NotFoundError{Resource: "listing", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("listings: get %s: %w", id, err)
	}
	return l, nil
}

// Delete removes a listing unconditionally.
func (s *Listings) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.NotFoundError{Resource: "listing", Key: id}
	}
	if err != nil {
		return fmt.Errorf("listings: delete %s: %w", id, err)
	}
	s.logger.Info("[listings] deleted %s", id)
	return nil
}

// All returns every listing in creation order.
func (s *Listings) All(ctx context.Context) ([]*models.Listing, error) {
	return s.repo.List(ctx)
}

// ByReference returns the listing with the given reference.
func (s *Listings) ByReference(ctx context.Context, reference string) (*models.Listing, error) {
	l, err := s.repo.FindByUnique(ctx, reference)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &models.NotFoundError{Resource: "listing", Key: reference}
	}
	return l, err
}

// ByStatus returns the listings in the given lifecycle state.
func (s *Listings) ByStatus(ctx context.Context, status models.ListingStatus) ([]*models.Listing, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("status", "unknown status %q", status)
	}
	return s.repo.Find(ctx, func(l *models.Listing) bool { return l.Status == status })
}

// BatchReport is the outcome of SimulateBatch.
type BatchReport struct {
	Results []models.BulkResult `json:"results"`
	Errors  []models.BulkError  `json:"errors"`
}

// Message summarises the batch the way the dashboard displays it.
func (r *BatchReport) Message() string {
	msg := fmt.Sprintf("Successfully processed %d listings", len(r.Results))
	if len(r.Errors) > 0 {
		msg += fmt.Sprintf(", %d failed", len(r.Errors))
	}
	return msg
}

// SimulateBatch converts drafts into the API's flat listing shape and assigns
// simulated remote ids. Nothing is sent upstream or stored. Invalid drafts are
// reported individually.
func (s *Listings) SimulateBatch(ctx context.Context, accountID string, drafts []models.BulkDraft) (*BatchReport, error) {
	if len(drafts) == 0 {
		return nil, models.NewValidationError("listings", "No listings provided")
	}
	if _, err := s.creds.Resolve(ctx, accountID); err != nil {
		return nil, err
	}

	report := &BatchReport{Results: make([]models.BulkResult, 0, len(drafts)), Errors: make([]models.BulkError, 0)}
	for _, d := range drafts {
		res, err := s.simulate(d)
		if err != nil {
			report.Errors = append(report.Errors, models.BulkError{Listing: d.Title, Error: err.Error()})
			continue
		}
		report.Results = append(report.Results, res)
	}
	s.logger.Info("[listings] simulated batch for %s: %s", accountID, report.Message())
	return report, nil
}

func (s *Listings) simulate(d models.BulkDraft) (models.BulkResult, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return models.BulkResult{}, errors.New("title is required")
	}
	price, ok := leadingNumber(d.Price)
	if !ok {
		return models.BulkResult{}, fmt.Errorf("price %q is not numeric", d.Price)
	}

	desc := d.Description
	if strings.TrimSpace(desc) == "" {
		desc = title
	}
	bedrooms, _ := leadingNumber(d.Bedrooms)
	bathrooms, _ := leadingNumber(d.Bathrooms)
	size, _ := strconv.ParseFloat(strings.TrimSpace(d.Size), 64)

	var permit *string
	if p := strings.TrimSpace(d.ReraPermit); p != "" {
		permit = &p
	}

	return models.BulkResult{
		ID:               fmt.Sprintf("PF-%d-%s", s.now().UnixMilli(), utils.RandomToken(9)),
		Status:           "success",
		TitleEN:          title,
		DescriptionEN:    desc,
		Price:            int64(price),
		Bedrooms:         int(bedrooms),
		Bathrooms:        int(bathrooms),
		Size:             size,
		PropertyType:     d.PropertyType,
		OfferingType:     d.OfferingType,
		Location:         d.Location,
		ReraPermitNumber: permit,
	}, nil
}

// leadingNumber parses the integer prefix of s, ignoring thousands separators.
func leadingNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && s[end] == '-') {
		end++
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
