package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "pokefuta", cfg.Scan.Source)
	assert.Equal(t, 1, cfg.Scan.Min)
	assert.Equal(t, 1500, cfg.Scan.Max)
	assert.False(t, cfg.Scan.Resume)
	assert.Equal(t, 0, cfg.Scan.NewLimit)

	assert.Equal(t, 15, cfg.Fetch.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.InDelta(t, 0.4, cfg.Fetch.RequestDelaySeconds, 1e-9)

	assert.Equal(t, "pokefuta.ndjson", cfg.Dataset.OutputPath)
	assert.Equal(t, "ndjson", cfg.Dataset.Format)

	assert.False(t, cfg.Geocode.Enabled)
	assert.Equal(t, "gsi", cfg.Geocode.Provider)
	assert.InDelta(t, 1.1, cfg.Geocode.SleepSeconds, 1e-9)

	assert.Equal(t, "https://local.pokemon.jp/manhole/", cfg.Sources.Pokefuta.BaseURL)
	assert.Equal(t, "https://www.g-manhole.net/about/", cfg.Sources.Gmanhole.BaseURL)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("SCAN_MAX", "40")
	t.Setenv("SCAN_RESUME", "true")
	t.Setenv("FETCH_REQUEST_DELAY_SECONDS", "0.25")
	t.Setenv("DATASET_OUTPUT_PATH", "/tmp/out.ndjson")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Scan.Max)
	assert.True(t, cfg.Scan.Resume)
	assert.InDelta(t, 0.25, cfg.Fetch.RequestDelaySeconds, 1e-9)
	assert.Equal(t, "/tmp/out.ndjson", cfg.Dataset.OutputPath)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	env := "GEOCODE_ENABLED=true\nGEOCODE_PROVIDER=nominatim\nSCAN_SOURCE=gmanhole\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("GEOCODE_ENABLED")
		os.Unsetenv("GEOCODE_PROVIDER")
		os.Unsetenv("SCAN_SOURCE")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.True(t, cfg.Geocode.Enabled)
	assert.Equal(t, "nominatim", cfg.Geocode.Provider)
	assert.Equal(t, "gmanhole", cfg.Scan.Source)
}
