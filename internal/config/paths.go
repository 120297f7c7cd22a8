package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	// DataDir is the configurable default directory for source files.
	DataDir  string `yaml:"data_dir" envconfig:"DATA_DIR"`
	RawDir   string `yaml:"raw_dir" envconfig:"RAW_DIR"`
	CleanDir string `yaml:"clean_dir" envconfig:"CLEAN_DIR"`
	LogsDir  string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// resolvePaths makes all configured paths absolute relative to the working
// directory so later chdir calls cannot change their meaning.
func (c *Config) resolvePaths() error {
	for _, p := range []*string{
		&c.Paths.DataDir,
		&c.Paths.RawDir,
		&c.Paths.CleanDir,
		&c.Paths.LogsDir,
	} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("failed to resolve path %q: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *PathsConfig) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.RawDir, p.CleanDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CleanFilePath returns the cleaned-output CSV path for a site
func (p *PathsConfig) CleanFilePath(site string) string {
	return filepath.Join(p.CleanDir, fmt.Sprintf("%s_clean.csv", slugify(site)))
}

// CombinedFilePath returns the path of the combined all-sites CSV
func (p *PathsConfig) CombinedFilePath() string {
	return filepath.Join(p.CleanDir, "all_sites_combined.csv")
}

// ReportFilePath returns the cleaning-report JSON path for a site
func (p *PathsConfig) ReportFilePath(site string) string {
	return filepath.Join(p.CleanDir, fmt.Sprintf("%s_cleaning_report.json", slugify(site)))
}

// LogFilePath returns the path of a log file inside the logs directory
func (p *PathsConfig) LogFilePath(name string) string {
	return filepath.Join(p.LogsDir, name)
}
