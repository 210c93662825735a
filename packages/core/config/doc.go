// Package config handles configuration loading and management for hitcase.
//
// It provides functionality for:
//   - Loading configuration from .hitcase.yaml or hitcase.config.json files
//   - Default configuration values
//   - Named environments overriding base URLs and variables
//   - Merging command-line overrides over file values
package config
