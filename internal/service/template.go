package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/Shivanand-hulikatti/content-roster/internal/repository"
	"github.com/Shivanand-hulikatti/content-roster/internal/roster"
)

// TemplateSummary reports a saved template.
type TemplateSummary struct {
	Name    string     `json:"name"`
	Parties [][]string `json:"parties"`
	Text    string     `json:"text"`
	Roles   int        `json:"roles"`
}

func summarize(t *model.Template) *TemplateSummary {
	return &TemplateSummary{
		Name:    t.Name,
		Parties: t.Parties,
		Text:    roster.FormatTemplateText(t.Parties),
		Roles:   t.RoleCount(),
	}
}

// TemplateService manages templates. Contents built from a template are
// never touched by edits or removal.
type TemplateService struct {
	store repository.TemplateStore
}

// NewTemplateService constructs a TemplateService.
func NewTemplateService(store repository.TemplateStore) *TemplateService {
	return &TemplateService{store: store}
}

// Get returns a normalized template.
func (s *TemplateService) Get(ctx context.Context, name string) (*TemplateSummary, error) {
	tpl, err := loadTemplate(ctx, s.store, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	return summarize(tpl), nil
}

// Edit returns the text form of a template for editing. Party grouping
// survives a Save of the same text.
func (s *TemplateService) Edit(ctx context.Context, name string) (string, error) {
	tpl, err := loadTemplate(ctx, s.store, strings.TrimSpace(name))
	if err != nil {
		return "", err
	}
	return roster.FormatTemplateText(tpl.Parties), nil
}

// Save replaces a template wholesale, from the text form when given and
// from parties otherwise.
func (s *TemplateService) Save(ctx context.Context, name string, req model.SaveTemplateRequest) (*TemplateSummary, error) {
	var (
		parties [][]string
		err     error
	)
	if strings.TrimSpace(req.Text) != "" {
		parties, err = roster.ParseTemplateText(req.Text)
	} else {
		parties, err = roster.CleanParties(req.Parties)
	}
	if err != nil {
		return nil, err
	}
	return s.SaveParties(ctx, name, parties)
}

// SaveParties stores already-normalized parties under name.
func (s *TemplateService) SaveParties(ctx context.Context, name string, parties [][]string) (*TemplateSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: template name is required", model.ErrInvalid)
	}
	parties, err := roster.CleanParties(parties)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveTemplate(ctx, name, parties); err != nil {
		return nil, fmt.Errorf("save template %q: %w", name, err)
	}

	tpl := &model.Template{Name: name, Parties: parties}
	slog.Info("template saved",
		slog.String("template", name),
		slog.Int("parties", len(parties)),
		slog.Int("roles", tpl.RoleCount()),
	)
	return summarize(tpl), nil
}

// Exists reports whether a template is stored, without decoding it.
func (s *TemplateService) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.store.GetTemplate(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case model.Kind(err) == model.ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

// Remove deletes a template.
func (s *TemplateService) Remove(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := s.store.DeleteTemplate(ctx, name); err != nil {
		return err
	}
	slog.Info("template removed", slog.String("template", name))
	return nil
}

// List returns every template name, sorted.
func (s *TemplateService) List(ctx context.Context) ([]string, error) {
	return s.store.ListTemplateNames(ctx)
}

// Choices offers template names matching current.
func (s *TemplateService) Choices(ctx context.Context, current string) ([]model.Choice, error) {
	names, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return roster.FilterChoices(names, current), nil
}
