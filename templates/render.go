// Package templates stores message templates and fills their placeholders.
package templates

import (
	"regexp"

	"pf-backoffice/models"
)

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ExtractVariables returns the placeholder names used in content and then
// subject, each once, in order of first appearance.
func ExtractVariables(content, subject string) []string {
	seen := make(map[string]bool)
	vars := make([]string, 0)
	for _, text := range []string{content, subject} {
		for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				vars = append(vars, m[1])
			}
		}
	}
	return vars
}

// Render substitutes vars into the template's content and subject.
// Placeholders without a value are left as they are.
func Render(t *models.Template, vars map[string]string) models.RenderResult {
	return models.RenderResult{
		Subject: fill(t.Subject, vars),
		Content: fill(t.Content, vars),
	}
}

func fill(text string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := vars[m[2:len(m)-2]]; ok {
			return v
		}
		return m
	})
}
