package server

import (
	"fmt"
	"net/http"
	"strings"

	"pf-backoffice/models"
)

type syncLeadsRequest struct {
	UserID string `json:"userId"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

// POST /api/leads/sync
func (s *Server) handleSyncLeads(w http.ResponseWriter, r *http.Request) {
	var req syncLeadsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	res, err := s.deps.Leads.Sync(r.Context(), req.UserID, req.Page, req.Limit)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("Synced %d of %d leads", res.Synced, res.Total), envelope{
		"synced": res.Synced,
		"total":  res.Total,
	})
}

// GET /api/leads?listing=
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	var (
		leads []*models.Lead
		err   error
	)
	if ref := strings.TrimSpace(r.URL.Query().Get("listing")); ref != "" {
		leads, err = s.deps.Leads.ByListing(r.Context(), ref)
	} else {
		leads, err = s.deps.Leads.All(r.Context())
	}
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"leads": leads})
}
