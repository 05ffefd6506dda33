package server

import (
	"fmt"
	"net/http"

	"pf-backoffice/models"
	"pf-backoffice/scraper/propertyfinder"
)

// POST /api/scraper
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var params models.ScrapeParams
	if err := decodeJSON(w, r, &params); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	batches, err := s.deps.Scraper.Scrape(r.Context(), params)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	properties := propertyfinder.Collect(batches)
	if err := r.Context().Err(); err != nil {
		return
	}

	respond(w, http.StatusOK, fmt.Sprintf("Scraped %d properties", len(properties)), envelope{
		"properties": properties,
		"meta": models.ScrapeMeta{
			Location:  propertyfinder.ResolveLocation(params.Location),
			Purpose:   params.Purpose,
			Pages:     params.Pages,
			Timestamp: s.now().UTC(),
		},
	})
}

type propertiesRequest struct {
	Properties []models.ScrapedProperty `json:"properties"`
	Location   string                   `json:"location"`
}

// POST /api/scraper/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req propertiesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if len(req.Properties) == 0 {
		s.fail(w, r, models.NewValidationError("properties", "No properties to export"), nil)
		return
	}
	data, err := propertyfinder.ExportCSV(req.Properties)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}

	name := propertyfinder.ExportFilename(req.Location, s.now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GET /api/scraper/master
func (s *Server) handleMasterList(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Master.List(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"properties": records, "total": len(records)})
}

// POST /api/scraper/master
func (s *Server) handleMasterAppend(w http.ResponseWriter, r *http.Request) {
	var req propertiesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if len(req.Properties) == 0 {
		s.fail(w, r, models.NewValidationError("properties", "No properties to append"), nil)
		return
	}
	total, err := s.deps.Master.Append(r.Context(), req.Properties)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("Added %d properties to master list", len(req.Properties)), envelope{"total": total})
}

// DELETE /api/scraper/master
func (s *Server) handleMasterClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Master.Clear(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("Removed %d properties from master list", n), nil)
}

// GET /api/scraper/insights reports over the master list.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Master.List(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"insights": s.deps.Insights.Generate(records)})
}
