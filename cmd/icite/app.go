// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/pdiddy/icite/internal/archive"
	"github.com/pdiddy/icite/internal/chat"
	"github.com/pdiddy/icite/internal/embedding"
	"github.com/pdiddy/icite/internal/metrics"
	"github.com/pdiddy/icite/internal/pipeline"
	"github.com/pdiddy/icite/internal/secrets"
	"github.com/pdiddy/icite/internal/store"
	"github.com/pdiddy/icite/internal/store/pgvector"
	"github.com/pdiddy/icite/pkg/types"
)

// corpusStore is what both store drivers provide to the pipeline.
type corpusStore interface {
	pipeline.CitationStore
	pipeline.SimilarityIndex
	pipeline.TitleMatcher
	Close() error
}

// app holds the collaborators built from configuration for one command.
type app struct {
	cfg   types.Config
	store corpusStore
	orch  *pipeline.Orchestrator
}

// appOptions selects which optional collaborators newApp builds.
type appOptions struct {
	chat    bool
	archive bool

	// chatOptional leaves the chat model unset, with a warning, when no
	// API key is available instead of failing.
	chatOptional bool
}

// newApp loads configuration, opens the store and builds the orchestrator.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	applySecrets(&cfg, loadedSecrets)

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		st.Close()
		return nil, err
	}
	checkEmbedder(ctx, emb, slog.Default())

	deps := pipeline.Deps{
		Embedder: emb,
		Edges:    st,
		Index:    st,
		Logger:   slog.Default(),
		Metrics:  metrics.NewPipeline(prometheus.DefaultRegisterer),
	}
	c, err := newChat(cfg.Chat, opts, slog.Default())
	if err != nil {
		st.Close()
		return nil, err
	}
	if c != nil {
		deps.Chat = c
	}
	if opts.archive {
		deps.Archive = newArchive(cfg.Archive)
	}

	orch, err := pipeline.New(deps, cfg.Pipeline)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &app{cfg: cfg, store: st, orch: orch}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// modelChecker is implemented by providers that can report whether their
// model is available.
type modelChecker interface {
	HasModel(ctx context.Context) (bool, error)
}

// newChat builds the chat model opts asks for. It returns nil when none is
// wanted or when chat is optional and no API key is set.
func newChat(cfg types.ChatConfig, opts appOptions, log *slog.Logger) (chat.Completer, error) {
	switch {
	case opts.chatOptional && cfg.APIKey == "":
		log.Warn("no chat API key, ask is disabled", "provider", cfg.Provider)
		return nil, nil
	case opts.chat || opts.chatOptional:
		return chat.New(cfg)
	default:
		return nil, nil
	}
}

// checkEmbedder logs the embedding model and warns when a local provider
// does not have it. Startup continues either way.
func checkEmbedder(ctx context.Context, emb embedding.Provider, log *slog.Logger) {
	log = log.With("model", emb.ModelName(), "dimensions", emb.Dimensions())
	log.Debug("embedding provider ready")
	mc, ok := emb.(modelChecker)
	if !ok {
		return
	}
	found, err := mc.HasModel(ctx)
	switch {
	case err != nil:
		log.Warn("cannot check embedding model", "error", err)
	case !found:
		log.Warn("embedding model not pulled")
	}
}

// openStore opens the configured store driver.
func openStore(ctx context.Context, cfg types.StoreConfig) (corpusStore, error) {
	switch cfg.Driver {
	case types.DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("store.dsn is required for the postgres driver")
		}
		// pgx reads PGPASSWORD when the DSN carries no password.
		if pw := loadedSecrets.Lookup(secrets.DatabasePassword); pw != "" && os.Getenv("PGPASSWORD") == "" {
			os.Setenv("PGPASSWORD", pw)
		}
		st, err := pgvector.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := store.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// openSQLite opens the SQLite store for corpus maintenance commands.
func openSQLite(cfg types.StoreConfig) (*store.SQLite, error) {
	if cfg.Driver != types.DriverSQLite {
		return nil, fmt.Errorf("corpus commands require store.driver sqlite, got %q", cfg.Driver)
	}
	return store.Open(cfg.Path)
}

func newArchive(cfg types.ArchiveConfig) *archive.Arxiv {
	opts := []archive.Option{
		archive.WithCacheDir(cfg.CacheDir),
		archive.WithLogger(slog.Default()),
	}
	if cfg.RateInterval > 0 {
		opts = append(opts, archive.WithRateInterval(cfg.RateInterval))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, archive.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, archive.WithUserAgent(cfg.UserAgent))
	}
	return archive.New(opts...)
}
