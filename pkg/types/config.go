// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by provider adapters.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperfinder/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search orchestration loop and the
// provider adapters.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the per-request result cap passed to adapters
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MaxVariants caps how many priority <= 2 name variants one job
	// searches (default 8).
	MaxVariants int `json:"max_variants" yaml:"max_variants"`

	// UnitPause is the fixed pause between consecutive (variant,
	// provider) units, a flat throttle toward upstream rate limits
	// (default 600ms).
	UnitPause time.Duration `json:"unit_pause" yaml:"unit_pause"`

	// Providers names the adapters enabled by default when a submission
	// does not select any.
	Providers []string `json:"providers" yaml:"providers"`

	// OpenAlexEmail joins the OpenAlex polite pool when set.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// CrossrefMailto is the contact address sent to Crossref.
	CrossrefMailto string `json:"crossref_mailto,omitempty" yaml:"crossref_mailto,omitempty"`

	// SerpAPIKey enables the scholar adapter. Without it the adapter
	// stays registered but returns no results.
	SerpAPIKey string `json:"serpapi_key,omitempty" yaml:"serpapi_key,omitempty"`
}

// StoreConfig holds settings for the SQLite store.
type StoreConfig struct {
	// Path is the database file location (default "paperfinder.db").
	Path string `json:"path" yaml:"path"`
}

// QueueConfig holds settings for deferred job execution.
type QueueConfig struct {
	// Workers is the number of concurrent job slots (default 2). Units
	// within one job always run sequentially; workers only parallelize
	// across jobs.
	Workers int `json:"workers" yaml:"workers"`

	// MaxAttempts bounds whole-job retries on unhandled faults
	// (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// RetryBaseDelay is the base for exponential backoff between
	// attempts (default 2s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`
}

// AppConfig groups all stage configurations.
type AppConfig struct {
	Search SearchConfig `json:"search" yaml:"search"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Queue  QueueConfig  `json:"queue" yaml:"queue"`
	Server ServerConfig `json:"server" yaml:"server"`
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c AppConfig) WithDefaults() AppConfig {
	if c.Search.Timeout <= 0 {
		c.Search.Timeout = 15 * time.Second
	}
	if c.Search.UserAgent == "" {
		c.Search.UserAgent = "paperfinder/0.1"
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 20
	}
	if c.Search.MaxVariants <= 0 {
		c.Search.MaxVariants = 8
	}
	if c.Search.UnitPause <= 0 {
		c.Search.UnitPause = 600 * time.Millisecond
	}
	if len(c.Search.Providers) == 0 {
		c.Search.Providers = []string{"openalex", "crossref", "arxiv"}
	}
	if c.Store.Path == "" {
		c.Store.Path = "paperfinder.db"
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.RetryBaseDelay <= 0 {
		c.Queue.RetryBaseDelay = 2 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	return c
}
