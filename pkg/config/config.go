// Package config provides the unified configuration for the tap.
// A single Config structure covers credentials, the extraction window,
// catalog selection, export staging, and the reliability/observability
// sections every component reads from.
package config

import (
	"fmt"
	"time"
)

// DefaultBaseURL is the hosted API root.
const DefaultBaseURL = "https://api.intercom.io"

// DefaultPageSize is the per-page record count requested from list and
// search endpoints. The API caps pages at 150.
const DefaultPageSize = 150

// Config is the single configuration structure the tap runs from.
type Config struct {
	// Credentials for the API
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// API endpoint settings
	API APIConfig `yaml:"api" json:"api"`

	// Window bounds the extraction date range
	Window WindowConfig `yaml:"window" json:"window"`

	// Catalog controls stream selection and key overrides
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Export configures the content-export staging flow
	Export ExportConfig `yaml:"export" json:"export"`

	// Timeouts define request timeout durations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Reliability settings for retries, rate limiting, circuit breaking
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`

	// Observability settings for logging and metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// CredentialsConfig holds API authentication material. AccessToken is the
// common path; the OAuth2 fields switch the client to a refreshing token
// source when all three are set.
type CredentialsConfig struct {
	AccessToken  string `yaml:"access_token" json:"access_token"`
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	TokenURL     string `yaml:"token_url" json:"token_url"`
}

// UsesOAuth2 reports whether client-credentials OAuth2 is configured.
func (c *CredentialsConfig) UsesOAuth2() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TokenURL != ""
}

// APIConfig holds endpoint settings.
type APIConfig struct {
	// BaseURL is the API root, overridable for regional hosts and tests
	BaseURL string `yaml:"base_url" json:"base_url"`
	// PageSize is the per_page value for list/search requests (1..150)
	PageSize int `yaml:"page_size" json:"page_size"`
	// Version is sent as the Intercom-Version header when set
	Version string `yaml:"version" json:"version"`
	// UserAgent identifies the tap to the API
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// WindowConfig bounds the extraction range. Dates are RFC3339.
type WindowConfig struct {
	StartDate string `yaml:"start_date" json:"start_date"`
	EndDate   string `yaml:"end_date" json:"end_date"`
}

// StartTime parses the window start. A zero time means unbounded.
func (w *WindowConfig) StartTime() (time.Time, error) {
	return parseDate(w.StartDate)
}

// EndTime parses the window end. A zero time means "now".
func (w *WindowConfig) EndTime() (time.Time, error) {
	return parseDate(w.EndDate)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// CatalogConfig controls which streams sync and how records are keyed.
type CatalogConfig struct {
	// Streams selects a subset of the catalog; empty means all
	Streams []string `yaml:"streams" json:"streams"`
	// PrimaryKeyOverrides replaces the declared key properties per stream
	PrimaryKeyOverrides map[string][]string `yaml:"primary_key_overrides" json:"primary_key_overrides"`
}

// ExportConfig configures the asynchronous content-export flow.
type ExportConfig struct {
	// Streams names the content-export tables to sync
	Streams []string `yaml:"streams" json:"streams"`
	// ScratchDir stages downloaded archives and extracted CSV files
	ScratchDir string `yaml:"scratch_dir" json:"scratch_dir"`
	// PollInterval is the wait between job status checks
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	// PollTimeout bounds how long a job may stay incomplete
	PollTimeout time.Duration `yaml:"poll_timeout" json:"poll_timeout"`
}

// TimeoutConfig contains timeout-related settings.
type TimeoutConfig struct {
	// Request timeout for individual API calls
	Request time.Duration `yaml:"request" json:"request"`
	// Download timeout for export archive downloads
	Download time.Duration `yaml:"download" json:"download"`
}

// ReliabilityConfig contains reliability and error handling settings.
type ReliabilityConfig struct {
	// RetryAttempts sets maximum attempts for failed requests
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelay is the initial delay between retries
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// RetryMultiplier increases delay exponentially
	RetryMultiplier float64 `yaml:"retry_multiplier" json:"retry_multiplier"`
	// MaxRetryDelay caps the retry delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
	// RateLimitPerSec limits API calls per second (0 = unlimited)
	RateLimitPerSec int `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// CircuitBreaker enables circuit breaker protection
	CircuitBreaker bool `yaml:"circuit_breaker" json:"circuit_breaker"`
	// CheckpointInterval emits a STATE message every N records (0 = per stream)
	CheckpointInterval int `yaml:"checkpoint_interval" json:"checkpoint_interval"`
}

// ObservabilityConfig contains logging and metrics settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// EnableMetrics activates the Prometheus collectors
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
}

// New creates a Config with production defaults.
func New() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			PageSize:  DefaultPageSize,
			Version:   "2.10",
			UserAgent: "tap-intercom/1.0",
		},
		Export: ExportConfig{
			ScratchDir:   "/tmp/intercom_data",
			PollInterval: 10 * time.Second,
			PollTimeout:  time.Hour,
		},
		Timeouts: TimeoutConfig{
			Request:  30 * time.Second,
			Download: 5 * time.Minute,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:      3,
			RetryDelay:         time.Second,
			RetryMultiplier:    2.0,
			MaxRetryDelay:      60 * time.Second,
			RateLimitPerSec:    0,
			CircuitBreaker:     true,
			CheckpointInterval: 0,
		},
		Observability: ObservabilityConfig{
			LogLevel:      "info",
			EnableMetrics: true,
		},
	}
}

// Validate validates the configuration for correctness. Stream-name checks
// against the catalog happen at catalog build time, where the registry is
// known.
func (c *Config) Validate() error {
	if c.Credentials.AccessToken == "" && !c.Credentials.UsesOAuth2() {
		return fmt.Errorf("credentials: access_token or oauth2 client credentials are required")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api: base_url is required")
	}
	if c.API.PageSize <= 0 || c.API.PageSize > 150 {
		return fmt.Errorf("api: page_size must be in 1..150, got %d", c.API.PageSize)
	}
	if _, err := c.Window.StartTime(); err != nil {
		return fmt.Errorf("window: start_date: %w", err)
	}
	end, err := c.Window.EndTime()
	if err != nil {
		return fmt.Errorf("window: end_date: %w", err)
	}
	if start, _ := c.Window.StartTime(); !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("window: end_date precedes start_date")
	}
	if c.Export.ScratchDir == "" {
		return fmt.Errorf("export: scratch_dir is required")
	}
	if c.Export.PollInterval <= 0 {
		return fmt.Errorf("export: poll_interval must be positive")
	}
	if c.Reliability.RetryAttempts < 0 {
		return fmt.Errorf("reliability: retry_attempts cannot be negative")
	}
	if c.Reliability.RateLimitPerSec < 0 {
		return fmt.Errorf("reliability: rate_limit_per_sec cannot be negative")
	}
	return nil
}
