package server

import (
	"io"
	"net/http"
	"strings"

	"pf-backoffice/images"
	"pf-backoffice/models"
)

type bulkListingRequest struct {
	Listings []models.BulkDraft `json:"listings"`
	User     string             `json:"user"`
}

// POST /api/bulk-listing
func (s *Server) handleBulkListing(w http.ResponseWriter, r *http.Request) {
	var req bulkListingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	report, err := s.deps.Listings.SimulateBatch(r.Context(), req.User, req.Listings)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, report.Message(), envelope{
		"results": report.Results,
		"errors":  report.Errors,
	})
}

// POST /api/bulk-listing/csv (multipart: file, user)
func (s *Server) handleCSVImport(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, models.NewValidationError("file", "CSV file is required"), nil)
		return
	}
	defer file.Close()

	result, err := s.deps.Importer.Import(r.Context(), file, nil)
	if err != nil {
		s.fail(w, r, err, envelope{"result": result})
		return
	}
	msg := "Imported " + plural(result.Created, "listing")
	if result.Failed > 0 {
		msg += ", " + plural(result.Failed, "row") + " failed"
	}
	respond(w, http.StatusOK, msg, envelope{
		"processed": result.Processed,
		"created":   result.Created,
		"failed":    result.Failed,
		"errors":    result.Errors,
	})
}

// POST /api/image-upload (multipart: images, location)
func (s *Server) handleImageUpload(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	files := make([]images.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, images.File{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	stored, err := s.deps.Images.Upload(r.Context(), r.FormValue("location"), files)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "Uploaded "+plural(len(stored), "image"), envelope{"images": stored})
}

// GET /api/image-folders
func (s *Server) handleImageFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.deps.Images.Folders(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"folders": folders})
}

// GET /api/listings?status=&reference=
func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if ref := strings.TrimSpace(q.Get("reference")); ref != "" {
		l, err := s.deps.Listings.ByReference(ctx, ref)
		if err != nil {
			s.fail(w, r, err, nil)
			return
		}
		respond(w, http.StatusOK, "", envelope{"listings": []*models.Listing{l}})
		return
	}

	var (
		listings []*models.Listing
		err      error
	)
	if status := strings.TrimSpace(q.Get("status")); status != "" {
		listings, err = s.deps.Listings.ByStatus(ctx, models.ListingStatus(status))
	} else {
		listings, err = s.deps.Listings.All(ctx)
	}
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"listings": listings})
}

// POST /api/listings
func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var f models.ListingFields
	if err := decodeJSON(w, r, &f); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	l, err := s.deps.Listings.Create(r.Context(), f)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusCreated, "Listing created", envelope{"listing": l})
}

// GET /api/listings/{id}
func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.deps.Listings.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"listing": l})
}

// DELETE /api/listings/{id}
func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Listings.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "Listing deleted", nil)
}

type publishRequest struct {
	ListingID string `json:"listingId"`
	UserID    string `json:"userId"`
	Force     bool   `json:"force"`
}

// POST /api/listings/publish
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if strings.TrimSpace(req.ListingID) == "" {
		s.fail(w, r, models.NewValidationError("listingId", "listingId is required"), nil)
		return
	}

	l, err := s.deps.Listings.Publish(r.Context(), req.ListingID, req.UserID, req.Force)
	if err != nil {
		var fields envelope
		if l != nil {
			fields = envelope{"listing": l}
		}
		s.fail(w, r, err, fields)
		return
	}
	respond(w, http.StatusOK, "Listing published successfully", envelope{
		"pfUrl":       l.PFListingURL,
		"pfListingId": l.PFListingID,
		"listing":     l,
	})
}
