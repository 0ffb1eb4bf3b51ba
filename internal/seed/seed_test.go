package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/Shivanand-hulikatti/content-roster/internal/repository"
	"github.com/Shivanand-hulikatti/content-roster/internal/seed"
	"github.com/Shivanand-hulikatti/content-roster/internal/service"
)

const sample = `
templates:
  zvz:
    - [Tank, Healer]
    - [DPS, DPS, Support]
  gank: [Caller, Tank, DPS]
  legacy:
    - name: Tank
    - name: Healer
`

func TestParse_BothShapes(t *testing.T) {
	templates, err := seed.Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []seed.Template{
		{Name: "gank", Parties: [][]string{{"Caller", "Tank", "DPS"}}},
		{Name: "legacy", Parties: [][]string{{"Tank", "Healer"}}},
		{Name: "zvz", Parties: [][]string{{"Tank", "Healer"}, {"DPS", "DPS", "Support"}}},
	}, templates)
}

func TestParse_Errors(t *testing.T) {
	_, err := seed.Parse([]byte("templates:\n  bad: {name: Tank}\n"))
	assert.ErrorIs(t, err, model.ErrDataCorruption)

	_, err = seed.Parse([]byte("templates: [unterminated"))
	assert.Error(t, err)

	templates, err := seed.Parse([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestLoadFileAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	templates, err := seed.LoadFile(path)
	require.NoError(t, err)

	ctx := context.Background()
	svc := service.NewTemplateService(repository.NewMemoryStore())
	_, err = svc.Save(ctx, "zvz", model.SaveTemplateRequest{Text: "Caller"})
	require.NoError(t, err)

	res, err := seed.Apply(ctx, svc, templates, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"gank", "legacy"}, res.Saved)
	assert.Equal(t, []string{"zvz"}, res.Skipped)

	kept, err := svc.Get(ctx, "zvz")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Caller"}}, kept.Parties, "existing template kept")

	res, err = seed.Apply(ctx, svc, templates, true)
	require.NoError(t, err)
	assert.Len(t, res.Saved, 3)

	replaced, err := svc.Get(ctx, "zvz")
	require.NoError(t, err)
	assert.Equal(t, 5, replaced.Roles)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := seed.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
