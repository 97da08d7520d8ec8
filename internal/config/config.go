// Package config loads the client configuration from YAML with environment
// variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	// Token is the GroupMe API access token. Required.
	Token string `yaml:"token"`

	// APIURL overrides the REST endpoint. Empty = production.
	APIURL string `yaml:"api_url"`

	// PushURL overrides the push endpoint. Empty = production.
	PushURL string `yaml:"push_url"`

	Archive  ArchiveConfig  `yaml:"archive"`
	Callback CallbackConfig `yaml:"callback"`
}

// ArchiveConfig controls local message archiving.
type ArchiveConfig struct {
	// Path is the SQLite database file. Empty disables archiving.
	Path string `yaml:"path"`

	// Groups lists the group ids to sync.
	Groups []string `yaml:"groups"`

	// Schedule is a 5-field cron expression for periodic syncs.
	Schedule string `yaml:"schedule"`
}

// CallbackConfig controls the bot callback HTTP server.
type CallbackConfig struct {
	// Bind is the listen address, e.g. "127.0.0.1:8080".
	Bind string `yaml:"bind"`

	// Token, when set, must accompany every callback as ?token=.
	Token string `yaml:"token"`
}

// defaults fills in zero values.
func (c *Config) defaults() {
	if c.Archive.Schedule == "" {
		c.Archive.Schedule = "*/5 * * * *"
	}
	if c.Callback.Bind == "" {
		c.Callback.Bind = "127.0.0.1:8080"
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("config: token is required")
	}
	if len(c.Archive.Groups) > 0 && c.Archive.Path == "" {
		return errors.New("config: archive.path is required when archive.groups is set")
	}
	return nil
}

// FromEnv builds a configuration from environment variables alone, for use
// when no config file is present. GROUPME_TOKEN supplies the token.
func FromEnv() *Config {
	cfg := &Config{
		Token:  os.Getenv("GROUPME_TOKEN"),
		APIURL: os.Getenv("GROUPME_API_URL"),
	}
	cfg.defaults()
	return cfg
}

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// parses it, and applies defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.defaults()
	return &cfg, nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// Returns an error listing all unresolved variables (no default, no env value).
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil
		defaultVal := ""
		if hasDefault {
			defaultVal = string(subs[2])
		}

		value, ok := os.LookupEnv(name)
		if ok {
			return []byte(value)
		}

		if hasDefault {
			return []byte(defaultVal)
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
