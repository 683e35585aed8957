// Package config loads the SeiChat runtime configuration from a JSON file,
// an optional .env file and process environment variables, then fills in
// defaults for every section.
package config
