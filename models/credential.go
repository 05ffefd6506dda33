package models

// Agent is a brokerage agent linked to an upstream account.
type Agent struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	PublicProfileID string `json:"publicProfileId"`
}

// Credential holds the upstream API credentials of one brokerage account.
// It is overwritten wholesale on save and never expires.
type Credential struct {
	AccountID     string  `json:"userId"`
	APIKey        string  `json:"pfApiKey"`
	APISecret     string  `json:"pfApiSecret"`
	LicenseNumber string  `json:"licenseNumber"`
	Agents        []Agent `json:"agents"`
}

// AgentByName returns the cached agent whose name matches, ignoring case.
func (c *Credential) AgentByName(name string) (Agent, bool) {
	for _, a := range c.Agents {
		if equalFold(a.Name, name) {
			return a, true
		}
	}
	return Agent{}, false
}
