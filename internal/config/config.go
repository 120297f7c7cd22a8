package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "solarcli/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Cleaning CleaningConfig `yaml:"cleaning" envconfig:"CLEANING"`
	Sites    []SiteConfig   `yaml:"sites"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// CleaningConfig contains the defaults for the cleaning pipeline
type CleaningConfig struct {
	ImputationMethod string  `yaml:"imputation_method" envconfig:"IMPUTATION_METHOD" validate:"oneof=median mean mode"`
	ZThreshold       float64 `yaml:"z_threshold" envconfig:"Z_THRESHOLD" validate:"gt=0"`
	MissingThreshold float64 `yaml:"missing_threshold" envconfig:"MISSING_THRESHOLD" validate:"gte=0,lte=1"`

	// TimestampColumn names the date-time column every source must carry.
	TimestampColumn string `yaml:"timestamp_column" envconfig:"TIMESTAMP_COLUMN"`
	// TimestampLayout is the Go reference layout used for sources that do not
	// override it. One explicit layout per source, never guessed.
	TimestampLayout string `yaml:"timestamp_layout" envconfig:"TIMESTAMP_LAYOUT"`

	// PrimaryMetric orders the cross-site summary table.
	PrimaryMetric string   `yaml:"primary_metric" envconfig:"PRIMARY_METRIC"`
	Metrics       []string `yaml:"metrics" envconfig:"METRICS"`
}

// SiteConfig describes one measurement site and its raw source file
type SiteConfig struct {
	Name string `yaml:"name" validate:"required"`
	File string `yaml:"file" validate:"required"`
	// TimestampLayout overrides the global layout for this source.
	TimestampLayout string `yaml:"timestamp_layout"`
}

// defaultConfig returns the built-in defaults. Defaults live here rather
// than in struct tags: envconfig applies tag defaults whenever the env var
// is absent, which would clobber file-configured values on the override
// pass.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:  "data",
			RawDir:   "data/raw",
			CleanDir: "data/clean",
			LogsDir:  "logs",
		},
		Cleaning: CleaningConfig{
			ImputationMethod: "median",
			ZThreshold:       3.0,
			MissingThreshold: 0.05,
			TimestampColumn:  "Timestamp",
			TimestampLayout:  "2006-01-02 15:04:05",
			PrimaryMetric:    "GHI",
			Metrics:          []string{"GHI", "DNI", "DHI"},
		},
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom loads configuration using the given YAML file path.
// Precedence: environment variables over file values over defaults. The
// file overlays the defaults, then envconfig applies only variables that
// are actually set (no tag defaults), so file values survive.
func LoadFrom(configFile string) (*Config, error) {
	cfg := defaultConfig()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := loadFromFile(configFile, &cfg); err != nil {
				return nil, apperrors.NewConfigError("failed to load config from file", err).WithContext("file", configFile)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, apperrors.NewConfigError("failed to resolve paths", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	seen := make(map[string]bool, len(c.Sites))
	for _, site := range c.Sites {
		if seen[site.Name] {
			return fmt.Errorf("duplicate site name: %s", site.Name)
		}
		seen[site.Name] = true
	}

	return nil
}

// SiteLayout returns the timestamp layout effective for the given site
func (c *Config) SiteLayout(site SiteConfig) string {
	if site.TimestampLayout != "" {
		return site.TimestampLayout
	}
	return c.Cleaning.TimestampLayout
}
