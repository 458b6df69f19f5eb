// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StoreDriver identifies the backing store for papers and citations.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
)

// StoreConfig holds settings for the paper and citation store.
type StoreConfig struct {
	// Driver selects the store implementation: sqlite or postgres.
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Path is the SQLite database file (e.g. "data/icite.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// EmbeddingConfig holds settings for the embedding provider.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: openai or ollama.
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the embedding model name.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Dimensions is the expected vector length. Zero disables the check.
	Dimensions int `json:"dimensions" yaml:"dimensions" mapstructure:"dimensions"`

	// APIKey authenticates against hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// ChatConfig holds settings for the chat model that writes answers.
type ChatConfig struct {
	// Provider selects the chat backend: anthropic or openai.
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the chat model identifier (e.g. "claude-3-haiku-20240307").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// MaxTokens caps the length of the answer (default 1000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// APIKey authenticates against the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// ArchiveConfig holds settings for full-text retrieval from arXiv.
type ArchiveConfig struct {
	// CacheDir stores combined TeX sources between runs. Empty disables caching.
	CacheDir string `json:"cache_dir" yaml:"cache_dir" mapstructure:"cache_dir"`

	// RateInterval is the minimum spacing between archive requests (default 3s).
	RateInterval time.Duration `json:"rate_interval" yaml:"rate_interval" mapstructure:"rate_interval"`

	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is sent with every archive request.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ExpansionConfig holds settings for citation-graph expansion.
type ExpansionConfig struct {
	// MaxPapers caps the total number of papers, seeds included. It must be
	// positive; zero in a hand-built config takes citegraph.DefaultMaxPapers.
	MaxPapers int `json:"max_papers" yaml:"max_papers" mapstructure:"max_papers"`

	// MaxDepth limits hops per direction. Zero means unlimited.
	MaxDepth int `json:"max_depth" yaml:"max_depth" mapstructure:"max_depth"`

	// Strategy selects edge lookup: scan (full scan per node) or index.
	Strategy string `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
}

// RankingConfig holds settings for similarity re-ranking.
type RankingConfig struct {
	// ComplementWindow is the number of papers fetched just outside the
	// expanded set for diversity. Zero disables the complement query.
	ComplementWindow int `json:"complement_window" yaml:"complement_window" mapstructure:"complement_window"`
}

// PipelineConfig holds settings for the query orchestrator.
type PipelineConfig struct {
	// TopK is the default number of initial candidates (default 3).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// MaxContextPapers caps the papers whose text is sent to the chat model (default 5).
	MaxContextPapers int `json:"max_context_papers" yaml:"max_context_papers" mapstructure:"max_context_papers"`

	// MaxContextChars truncates the assembled context (default 200000).
	MaxContextChars int `json:"max_context_chars" yaml:"max_context_chars" mapstructure:"max_context_chars"`

	// Timeout bounds a single request at the application layer.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	Expansion ExpansionConfig `json:"expansion" yaml:"expansion" mapstructure:"expansion"`
	Ranking   RankingConfig   `json:"ranking" yaml:"ranking" mapstructure:"ranking"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// LogConfig holds settings for structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings for the icite binary.
type Config struct {
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Chat      ChatConfig      `json:"chat" yaml:"chat" mapstructure:"chat"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive" mapstructure:"archive"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
