// Package config loads and validates the jirafeed configuration file. All
// validation failures are fatal setup errors: they abort startup rather than
// degrade into per-filter failures.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimeoutSeconds = 30
	defaultMaxResults     = 100
	defaultRefreshMinutes = 5
)

// ValidationError marks a configuration problem that must abort startup.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Filter configures one saved filter to aggregate. Name overrides the
// server-side filter name when set.
type Filter struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

// Config is the jirafeed configuration file.
type Config struct {
	Endpoint     string `yaml:"endpoint"`
	Email        string `yaml:"email"`
	APIToken     string `yaml:"api_token,omitempty"`
	APITokenFile string `yaml:"api_token_file,omitempty"`
	// VerifySSL defaults to true when unset
	VerifySSL      *bool    `yaml:"verify_ssl,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	MaxResults     int      `yaml:"max_results,omitempty"`
	RefreshMinutes int      `yaml:"refresh_minutes,omitempty"`
	Filters        []Filter `yaml:"filters"`
}

// Load reads and parses the configuration file, applying defaults for optional
// fields. It does not validate; call Validate before use.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read configuration file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse configuration file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.MaxResults == 0 {
		c.MaxResults = defaultMaxResults
	}
	if c.RefreshMinutes == 0 {
		c.RefreshMinutes = defaultRefreshMinutes
	}
}

// Validate checks that every required field is present and that no value looks
// like an unedited placeholder from a sample configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return &ValidationError{Field: "endpoint", Reason: "must not be empty"}
	}
	if c.Email == "" {
		return &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	if c.APIToken == "" && c.APITokenFile == "" {
		return &ValidationError{Field: "api_token", Reason: "either api_token or api_token_file must be set"}
	}
	if len(c.Filters) == 0 {
		return &ValidationError{Field: "filters", Reason: "at least one filter must be configured"}
	}

	for field, value := range map[string]string{
		"endpoint":  c.Endpoint,
		"email":     c.Email,
		"api_token": c.APIToken,
	} {
		if value != "" && looksLikePlaceholder(value) {
			return &ValidationError{Field: field, Reason: "looks like a placeholder, update the configuration file"}
		}
	}

	for i, filter := range c.Filters {
		if filter.ID == "" {
			return &ValidationError{Field: fmt.Sprintf("filters[%d].id", i), Reason: "must not be empty"}
		}
	}

	return nil
}

// Token returns the API token, reading it from APITokenFile when the inline
// value is not set.
func (c *Config) Token() (string, error) {
	if c.APIToken != "" {
		return c.APIToken, nil
	}

	data, err := os.ReadFile(c.APITokenFile)
	if err != nil {
		return "", fmt.Errorf("cannot read API token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", &ValidationError{Field: "api_token_file", Reason: "file is empty"}
	}
	return token, nil
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RefreshInterval returns the long-lived refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshMinutes) * time.Minute
}

// VerifyTLS reports whether TLS certificates should be verified.
func (c *Config) VerifyTLS() bool {
	return c.VerifySSL == nil || *c.VerifySSL
}

func looksLikePlaceholder(value string) bool {
	lowered := strings.ToLower(value)
	return strings.HasPrefix(lowered, "your_") ||
		strings.Contains(lowered, "your-") ||
		strings.Contains(lowered, "your ")
}
