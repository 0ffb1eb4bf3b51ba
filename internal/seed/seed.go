// Package seed loads templates from a YAML file at startup:
//
//	templates:
//	  zvz:
//	    - [Tank, Healer]
//	    - [DPS, DPS, Support]
//	  gank: [Caller, Tank, DPS]
//	  legacy:
//	    - name: Tank
//	    - name: Healer
//
// Each entry may use either stored template shape; both are normalized
// before saving.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/Shivanand-hulikatti/content-roster/internal/roster"
	"github.com/Shivanand-hulikatti/content-roster/internal/service"
)

type file struct {
	Templates map[string]any `yaml:"templates"`
}

// Template is one normalized seed entry.
type Template struct {
	Name    string
	Parties [][]string
}

// Parse decodes a seed payload. Templates come back sorted by name.
func Parse(data []byte) ([]Template, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}

	out := make([]Template, 0, len(f.Templates))
	for name, raw := range f.Templates {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("seed: %w: template with empty name", model.ErrInvalid)
		}
		parties, _, err := roster.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("seed: template %q: %w", name, err)
		}
		out = append(out, Template{Name: name, Parties: parties})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// LoadFile reads and parses a seed file.
func LoadFile(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	templates, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return templates, nil
}

// Saver is the slice of TemplateService seeding needs.
type Saver interface {
	Exists(ctx context.Context, name string) (bool, error)
	SaveParties(ctx context.Context, name string, parties [][]string) (*service.TemplateSummary, error)
}

// Result lists what Apply did.
type Result struct {
	Saved   []string
	Skipped []string
}

// Apply saves templates. Existing templates are left alone unless
// overwrite is set.
func Apply(ctx context.Context, svc Saver, templates []Template, overwrite bool) (Result, error) {
	var res Result
	for _, t := range templates {
		if !overwrite {
			exists, err := svc.Exists(ctx, t.Name)
			if err != nil {
				return res, err
			}
			if exists {
				res.Skipped = append(res.Skipped, t.Name)
				continue
			}
		}
		if _, err := svc.SaveParties(ctx, t.Name, t.Parties); err != nil {
			return res, err
		}
		res.Saved = append(res.Saved, t.Name)
	}
	slog.Info("templates seeded",
		slog.Int("saved", len(res.Saved)),
		slog.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}
