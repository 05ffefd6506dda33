package templates

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"pf-backoffice/models"
	"pf-backoffice/storage"
	"pf-backoffice/utils"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Service manages stored templates.
type Service struct {
	repo   storage.Repository[models.Template]
	logger *utils.Logger
	now    func() time.Time
}

// NewService creates a template Service.
func NewService(repo storage.Repository[models.Template], logger *utils.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Save validates and stores t. A template without id is created; otherwise the
// stored one is replaced, keeping its creation time. Variables are always
// recomputed from the text.
func (s *Service) Save(ctx context.Context, t *models.Template) (*models.Template, error) {
	t.Name = strings.TrimSpace(t.Name)
	t.Type = models.TemplateType(strings.ToLower(strings.TrimSpace(string(t.Type))))
	switch {
	case t.Name == "":
		return nil, models.NewValidationError("name", "name is required")
	case strings.TrimSpace(t.Content) == "":
		return nil, models.NewValidationError("content", "content is required")
	case !t.Type.Valid():
		return nil, models.NewValidationError("type", "type must be email, property or whatsapp")
	}
	if t.Type != models.TemplateEmail {
		t.Subject = ""
	}

	now := s.now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
		t.CreatedAt = now
	} else {
		existing, err := s.repo.Get(ctx, t.ID)
		switch {
		case err == nil:
			t.CreatedAt = existing.CreatedAt
		case errors.Is(err, storage.ErrNotFound):
			t.CreatedAt = now
		default:
			return nil, fmt.Errorf("templates: load %s: %w", t.ID, err)
		}
	}
	t.UpdatedAt = now
	t.Variables = ExtractVariables(t.Content, t.Subject)

	if err := s.repo.Put(ctx, t); err != nil {
		return nil, fmt.Errorf("templates: save %s: %w", t.ID, err)
	}
	return t, nil
}

// Get returns the template with id.
func (s *Service) Get(ctx context.Context, id string) (*models.Template, error) {
	t, err := s.repo.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &models.NotFoundError{Resource: "template", Key: id}
	}
	return t, err
}

// List returns the templates of the given type, or all when typ is empty.
func (s *Service) List(ctx context.Context, typ models.TemplateType) ([]*models.Template, error) {
	if typ == "" {
		return s.repo.List(ctx)
	}
	if !typ.Valid() {
		return nil, models.NewValidationError("type", "unknown template type %q", typ)
	}
	return s.repo.Find(ctx, func(t *models.Template) bool { return t.Type == typ })
}

// ByCategory returns the templates filed under category, ignoring case.
func (s *Service) ByCategory(ctx context.Context, category string) ([]*models.Template, error) {
	return s.repo.Find(ctx, func(t *models.Template) bool {
		return strings.EqualFold(t.Category, strings.TrimSpace(category))
	})
}

// Delete removes the template with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.NotFoundError{Resource: "template", Key: id}
	}
	return err
}

// RenderByID loads a template and renders it with vars.
func (s *Service) RenderByID(ctx context.Context, id string, vars map[string]string) (models.RenderResult, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return models.RenderResult{}, err
	}
	return Render(t, vars), nil
}

type defaultTemplate struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Category string `yaml:"category"`
	Subject  string `yaml:"subject"`
	Content  string `yaml:"content"`
}

// SeedDefaults stores the built-in templates when no template exists yet and
// returns how many were added.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("templates: count: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	var file struct {
		Templates []defaultTemplate `yaml:"templates"`
	}
	if err := yaml.Unmarshal(defaultsYAML, &file); err != nil {
		return 0, fmt.Errorf("templates: parse defaults: %w", err)
	}

	for _, d := range file.Templates {
		_, err := s.Save(ctx, &models.Template{
			Name:     d.Name,
			Type:     models.TemplateType(d.Type),
			Category: d.Category,
			Subject:  d.Subject,
			Content:  d.Content,
		})
		if err != nil {
			return 0, fmt.Errorf("templates: seed %q: %w", d.Name, err)
		}
	}
	s.logger.Info("[templates] seeded %d default templates", len(file.Templates))
	return len(file.Templates), nil
}
