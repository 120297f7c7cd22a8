package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "median", cfg.Cleaning.ImputationMethod)
	assert.Equal(t, 3.0, cfg.Cleaning.ZThreshold)
	assert.Equal(t, 0.05, cfg.Cleaning.MissingThreshold)
	assert.Equal(t, "Timestamp", cfg.Cleaning.TimestampColumn)
	assert.Equal(t, "GHI", cfg.Cleaning.PrimaryMetric)
	assert.Equal(t, []string{"GHI", "DNI", "DHI"}, cfg.Cleaning.Metrics)
	assert.True(t, filepath.IsAbs(cfg.Paths.CleanDir))
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solarcli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
cleaning:
  imputation_method: mean
  z_threshold: 2.5
sites:
  - name: atacama
    file: atacama.csv
  - name: sahara
    file: sahara.csv
    timestamp_layout: "02/01/2006 15:04"
`), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mean", cfg.Cleaning.ImputationMethod)
	assert.Equal(t, 2.5, cfg.Cleaning.ZThreshold)
	require.Len(t, cfg.Sites, 2)

	// per-site layout overrides the global default
	assert.Equal(t, "02/01/2006 15:04", cfg.SiteLayout(cfg.Sites[1]))
	assert.Equal(t, cfg.Cleaning.TimestampLayout, cfg.SiteLayout(cfg.Sites[0]))
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solarcli.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("SOLAR_SERVER_PORT", "7070")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestFileValuesSurviveEnvPass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solarcli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
cleaning:
  z_threshold: 2.5
`), 0644))

	// an unrelated env override must not reset file-configured fields
	t.Setenv("SOLAR_SERVER_PORT", "7070")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Cleaning.ZThreshold)
	assert.Equal(t, "median", cfg.Cleaning.ImputationMethod)
}

func TestValidateRejectsBadMethod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solarcli.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cleaning:\n  imputation_method: geometric\n"), 0644))

	_, err := LoadFrom(path)
	require.Error(t, err)
}

func TestValidateRejectsDuplicateSites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solarcli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sites:
  - name: atacama
    file: a.csv
  - name: atacama
    file: b.csv
`), 0644))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate site name")
}

func TestPathHelpers(t *testing.T) {
	p := PathsConfig{CleanDir: "/tmp/clean", LogsDir: "/tmp/logs"}

	assert.Equal(t, "/tmp/clean/desert_rock_clean.csv", p.CleanFilePath("Desert Rock"))
	assert.Equal(t, "/tmp/clean/desert_rock_cleaning_report.json", p.ReportFilePath("Desert Rock"))
	assert.Equal(t, "/tmp/clean/all_sites_combined.csv", p.CombinedFilePath())
	assert.Equal(t, "/tmp/logs/web.log", p.LogFilePath("web.log"))
}
