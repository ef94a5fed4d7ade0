// Package config defines the application configuration structure and loading
// logic. Configuration is read from an optional YAML file and FORGE_-prefixed
// environment variables, with environment taking precedence, then validated
// before use.
package config
