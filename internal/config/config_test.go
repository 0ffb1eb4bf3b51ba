package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "roster.db", cfg.SQLitePath)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.TemplatesOverwrite)
	assert.False(t, cfg.IsProduction())

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_DRIVER", " Postgres ")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_MAX_CONNS", "5")
	t.Setenv("TEMPLATES_FILE", "templates.yaml")
	t.Setenv("TEMPLATES_OVERWRITE", "true")
	t.Setenv("SERVER_WRITE_TIMEOUT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "templates.yaml", cfg.TemplatesFile)
	assert.True(t, cfg.TemplatesOverwrite)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	db := cfg.Database()
	assert.Equal(t, "db", db.Host)
	assert.Equal(t, int32(5), db.MaxConns)

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_ENV")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}
