package server

import (
	"errors"
	"net/http"
	"strconv"

	"pf-backoffice/models"
)

type locationsRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

// POST /api/pf/locations
func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	var req locationsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	locations, err := s.deps.Credentials.SearchLocations(r.Context(), req.UserID, req.Query)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"locations": locations})
}

type permitRequest struct {
	PermitNumber  string `json:"permitNumber"`
	LicenseNumber string `json:"licenseNumber"`
	UserID        string `json:"userId"`
}

// POST /api/pf/permit
func (s *Server) handlePermit(w http.ResponseWriter, r *http.Request) {
	var req permitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	permit, err := s.deps.Credentials.LookupPermit(r.Context(), req.UserID, req.PermitNumber, req.LicenseNumber)
	if err != nil {
		var nf *models.NotFoundError
		if errors.As(err, &nf) && nf.Resource == "permit" {
			respond(w, http.StatusNotFound, "Permit not found", nil)
			return
		}
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"permit": permit})
}

type testConnectionRequest struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// POST /api/pf/test-connection
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req testConnectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	agents, err := s.deps.Credentials.TestConnection(r.Context(), req.APIKey, req.APISecret)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "Connection successful", envelope{"agents": agents})
}

// GET /api/pf/listings?userId=&status=&page=&limit=
func (s *Server) handleRemoteListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	res, err := s.deps.Credentials.RemoteListings(r.Context(), q.Get("userId"), q.Get("status"), page, limit)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"listings": res.Items, "total": res.Total})
}
