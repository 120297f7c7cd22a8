package config

import "strings"

const (
	// EnvPrefix is the prefix for all environment variable overrides.
	EnvPrefix = "SOLAR"

	// DefaultConfigFile is the YAML configuration file looked up by Load.
	DefaultConfigFile = "solarcli.yaml"
)

// slugify converts a site name into a file-name friendly form, matching the
// naming of the cleaned output files ("Sierra Leone" -> "sierra_leone").
func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
