package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-report-builder/internal/model"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
backend:
  base_url: "https://reports.example.com/"
  timeout_seconds: 5
reports:
  default_timezone: "America/New_York"
  default_format: "xlsx"
worker_pool:
  size: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://reports.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "America/New_York", cfg.Reports.DefaultTimezone)
	assert.Equal(t, model.FormatXLSX, cfg.Reports.DefaultFormat)
	assert.Equal(t, 2*time.Second, cfg.Reports.Highlight)
	assert.Equal(t, 3, cfg.WorkerPool.Size)
	assert.Equal(t, 1, cfg.Reports.DefaultDaysWithoutSignal)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000", cfg.Backend.BaseURL)
	assert.Equal(t, "UTC", cfg.Reports.DefaultTimezone)
	assert.Equal(t, model.FormatPDF, cfg.Reports.DefaultFormat)
	assert.Equal(t, 30*time.Minute, cfg.Reports.ArtifactTTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  base_url: \"http://file\"\n"), 0o600))

	t.Setenv(EnvBackendURL, "http://env:3000/")
	t.Setenv(EnvPort, "9999")
	t.Setenv(EnvDatabaseDSN, "postgres://u@db/reports")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env:3000", cfg.Backend.BaseURL)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres://u@db/reports", cfg.Database.DSN)

	t.Setenv(EnvPort, "not-a-port")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
