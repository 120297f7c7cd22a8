// Package config loads application configuration from a YAML file merged
// with SOLAR_-prefixed environment variables, resolves all file system paths
// to absolute form, and validates the result before any component starts.
package config
