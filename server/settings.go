package server

import (
	"net/http"

	"pf-backoffice/models"
)

// credentialView is a Credential with the secret withheld.
type credentialView struct {
	AccountID     string         `json:"userId"`
	APIKey        string         `json:"pfApiKey"`
	HasSecret     bool           `json:"hasSecret"`
	LicenseNumber string         `json:"licenseNumber"`
	Agents        []models.Agent `json:"agents"`
}

func viewOf(c *models.Credential) credentialView {
	agents := c.Agents
	if agents == nil {
		agents = []models.Agent{}
	}
	return credentialView{
		AccountID:     c.AccountID,
		APIKey:        c.APIKey,
		HasSecret:     c.APISecret != "",
		LicenseNumber: c.LicenseNumber,
		Agents:        agents,
	}
}

// GET /api/settings/{account}
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cred, err := s.deps.Credentials.Get(r.Context(), r.PathValue("account"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "", envelope{"settings": viewOf(cred)})
}

// PUT /api/settings/{account}
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var cred models.Credential
	if err := decodeJSON(w, r, &cred); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	cred.AccountID = r.PathValue("account")
	if err := s.deps.Credentials.Save(r.Context(), &cred); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "Settings saved", envelope{"settings": viewOf(&cred)})
}

// POST /api/settings/{account}/agents
func (s *Server) handleRefreshAgents(w http.ResponseWriter, r *http.Request) {
	cred, err := s.deps.Credentials.RefreshAgents(r.Context(), r.PathValue("account"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	respond(w, http.StatusOK, "Agents refreshed", envelope{"settings": viewOf(cred)})
}
