package models

import "time"

// TemplateType classifies a stored text template.
type TemplateType string

const (
	TemplateEmail    TemplateType = "email"
	TemplateProperty TemplateType = "property"
	TemplateWhatsApp TemplateType = "whatsapp"
)

// Valid reports whether t is a known template type.
func (t TemplateType) Valid() bool {
	switch t {
	case TemplateEmail, TemplateProperty, TemplateWhatsApp:
		return true
	}
	return false
}

// Template is a text template with {{var}} placeholders. Variables is derived
// from Content and Subject on every save.
type Template struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      TemplateType `json:"type"`
	Category  string       `json:"category"`
	Subject   string       `json:"subject,omitempty"`
	Content   string       `json:"content"`
	Variables []string     `json:"variables"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// RenderResult is a template with its placeholders substituted.
type RenderResult struct {
	Subject string `json:"subject,omitempty"`
	Content string `json:"content"`
}
