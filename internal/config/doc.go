// Package config loads the server process configuration from multiple sources
// (YAML files, environment variables, CLI flags) with precedence: CLI flags >
// YAML config > Environment variables > Defaults. It names the override
// sources to serve but never contributes values to the registry itself.
package config
