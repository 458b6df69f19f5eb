// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/icite/internal/archive"
	"github.com/pdiddy/icite/internal/citegraph"
	"github.com/pdiddy/icite/internal/pipeline"
	"github.com/pdiddy/icite/internal/secrets"
	"github.com/pdiddy/icite/pkg/types"
)

// setDefaults registers every config key so that ICITE_* environment
// variables are honoured even when no config file sets them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", string(types.DriverSQLite))
	v.SetDefault("store.path", "data/icite.db")
	v.SetDefault("store.dsn", "")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.api_key", "")

	v.SetDefault("chat.provider", "anthropic")
	v.SetDefault("chat.model", "")
	v.SetDefault("chat.max_tokens", 1000)
	v.SetDefault("chat.api_key", "")

	v.SetDefault("archive.cache_dir", "data/eprints")
	v.SetDefault("archive.rate_interval", archive.DefaultRateInterval)
	v.SetDefault("archive.timeout", archive.DefaultTimeout)
	v.SetDefault("archive.user_agent", archive.DefaultUserAgent)

	v.SetDefault("pipeline.top_k", pipeline.DefaultTopK)
	v.SetDefault("pipeline.max_context_papers", pipeline.DefaultMaxContextPapers)
	v.SetDefault("pipeline.max_context_chars", pipeline.DefaultMaxContextChars)
	v.SetDefault("pipeline.timeout", 2*time.Minute)
	v.SetDefault("pipeline.expansion.max_papers", citegraph.DefaultMaxPapers)
	v.SetDefault("pipeline.expansion.max_depth", 0)
	v.SetDefault("pipeline.expansion.strategy", citegraph.ScanStrategy.String())
	v.SetDefault("pipeline.ranking.complement_window", 0)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// loadConfig decodes v into a Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	switch cfg.Store.Driver {
	case types.DriverSQLite, types.DriverPostgres:
	default:
		return types.Config{}, fmt.Errorf("unsupported store.driver %q: use sqlite or postgres", cfg.Store.Driver)
	}
	if cfg.Pipeline.Expansion.MaxPapers <= 0 {
		return types.Config{}, fmt.Errorf("pipeline.expansion.max_papers must be positive, got %d", cfg.Pipeline.Expansion.MaxPapers)
	}
	return cfg, nil
}

// applySecrets fills API keys left empty by the config from the secrets
// directory or the provider's environment variable.
func applySecrets(cfg *types.Config, s secrets.Set) {
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider != "ollama" {
		cfg.Embedding.APIKey = s.Lookup(secrets.OpenAIAPIKey)
	}
	if cfg.Chat.APIKey == "" {
		switch cfg.Chat.Provider {
		case "openai":
			cfg.Chat.APIKey = s.Lookup(secrets.OpenAIAPIKey)
		default:
			cfg.Chat.APIKey = s.Lookup(secrets.AnthropicAPIKey)
		}
	}
}
