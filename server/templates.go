package server

import (
	"net/http"
	"strings"

	"pf-backoffice/models"
)

// GET /api/templates?type=&category=
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	var (
		list []*models.Template
		err  error
	)
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		list, err = s.deps.Templates.ByCategory(r.Context(), category)
	} else {
		list, err = s.deps.Templates.List(r.Context(), models.TemplateType(r.URL.Query().Get("type")))
	}
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"templates": list})
}

// POST /api/templates creates, or replaces when the body carries an id.
func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.Template
	if err := decodeJSON(w, r, &t); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	saved, err := s.deps.Templates.Save(r.Context(), &t)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "Template saved", envelope{"template": saved})
}

// GET /api/templates/{id}
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Templates.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"template": t})
}

// DELETE /api/templates/{id}
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Templates.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "Template deleted", nil)
}

type renderRequest struct {
	Variables map[string]string `json:"variables"`
}

// POST /api/templates/{id}/render
func (s *Server) handleRenderTemplate(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	out, err := s.deps.Templates.RenderByID(r.Context(), r.PathValue("id"), req.Variables)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"rendered": out})
}
