// Package server exposes the back office operations over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pf-backoffice/images"
	"pf-backoffice/metrics"
	"pf-backoffice/scraper/propertyfinder"
	"pf-backoffice/services"
	"pf-backoffice/storage"
	"pf-backoffice/templates"
	"pf-backoffice/utils"
)

const (
	maxBodyBytes      = 1 << 20  // 1 MiB
	maxMultipartBytes = 32 << 20 // 32 MiB
)

// Deps are the services the handlers call into.
type Deps struct {
	DB          *storage.DB
	Credentials *services.Credentials
	Listings    *services.Listings
	Importer    *services.Importer
	Leads       *services.Leads
	Master      *services.Master
	Insights    *services.InsightService
	Templates   *templates.Service
	Images      *images.Uploader
	Scraper     *propertyfinder.Scraper
}

// Server routes API requests to the services.
type Server struct {
	deps   Deps
	logger *utils.Logger
	mux    *http.ServeMux
	now    func() time.Time
}

// New creates a Server with every route registered.
func New(deps Deps, logger *utils.Logger) *Server {
	s := &Server{deps: deps, logger: logger, mux: http.NewServeMux(), now: time.Now}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.mux.HandleFunc("POST /api/bulk-listing", s.handleBulkListing)
	s.mux.HandleFunc("POST /api/bulk-listing/csv", s.handleCSVImport)
	s.mux.HandleFunc("POST /api/image-upload", s.handleImageUpload)
	s.mux.HandleFunc("GET /api/image-folders", s.handleImageFolders)

	s.mux.HandleFunc("GET /api/listings", s.handleListListings)
	s.mux.HandleFunc("POST /api/listings", s.handleCreateListing)
	s.mux.HandleFunc("POST /api/listings/publish", s.handlePublish)
	s.mux.HandleFunc("GET /api/listings/{id}", s.handleGetListing)
	s.mux.HandleFunc("DELETE /api/listings/{id}", s.handleDeleteListing)

	s.mux.HandleFunc("POST /api/pf/locations", s.handleLocations)
	s.mux.HandleFunc("POST /api/pf/permit", s.handlePermit)
	s.mux.HandleFunc("POST /api/pf/test-connection", s.handleTestConnection)
	s.mux.HandleFunc("GET /api/pf/listings", s.handleRemoteListings)

	s.mux.HandleFunc("POST /api/scraper", s.handleScrape)
	s.mux.HandleFunc("POST /api/scraper/export", s.handleExport)
	s.mux.HandleFunc("GET /api/scraper/master", s.handleMasterList)
	s.mux.HandleFunc("POST /api/scraper/master", s.handleMasterAppend)
	s.mux.HandleFunc("DELETE /api/scraper/master", s.handleMasterClear)
	s.mux.HandleFunc("GET /api/scraper/insights", s.handleInsights)

	s.mux.HandleFunc("GET /api/settings/{account}", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings/{account}", s.handleSaveSettings)
	s.mux.HandleFunc("POST /api/settings/{account}/agents", s.handleRefreshAgents)

	s.mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	s.mux.HandleFunc("POST /api/templates", s.handleSaveTemplate)
	s.mux.HandleFunc("GET /api/templates/{id}", s.handleGetTemplate)
	s.mux.HandleFunc("DELETE /api/templates/{id}", s.handleDeleteTemplate)
	s.mux.HandleFunc("POST /api/templates/{id}/render", s.handleRenderTemplate)

	s.mux.HandleFunc("POST /api/leads/sync", s.handleSyncLeads)
	s.mux.HandleFunc("GET /api/leads", s.handleListLeads)
}

// Handler returns the routed handler wrapped in request logging and metrics.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[http] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("[http] shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			respond(w, http.StatusServiceUnavailable, "store unavailable", nil)
			return
		}
	}
	respond(w, http.StatusOK, "ok", nil)
}
