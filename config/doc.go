// Package config loads recall settings from defaults, an optional YAML file
// and environment variables.
package config
