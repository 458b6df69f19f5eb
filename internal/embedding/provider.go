// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding turns query and paper text into dense vectors using a
// hosted (OpenAI) or local (Ollama) model.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/icite/pkg/types"
)

var (
	// ErrEmptyInput is returned for blank text.
	ErrEmptyInput = errors.New("empty embedding input")

	// ErrDimensionMismatch is returned when the model answers with a
	// vector of unexpected length.
	ErrDimensionMismatch = errors.New("unexpected embedding dimensions")
)

// Provider generates embeddings from text.
type Provider interface {
	// Embed returns the embedding of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector length, zero when unchecked.
	Dimensions() int
}

// Provider names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// New builds the provider named in cfg.
func New(cfg types.EmbeddingConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, errors.New("openai embedding provider requires an API key")
		}
		opts := []OpenAIOption{WithOpenAIDimensions(cfg.Dimensions)}
		if cfg.Model != "" {
			opts = append(opts, WithOpenAIModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
		}
		return NewOpenAI(cfg.APIKey, opts...), nil
	case ProviderOllama:
		var opts []OllamaOption
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Dimensions > 0 {
			opts = append(opts, WithDimensions(cfg.Dimensions))
		}
		return NewOllama(opts...), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// checkInput rejects blank text before any network call.
func checkInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	return nil
}

// checkDimensions verifies v has want components; want of zero accepts
// any non-empty vector.
func checkDimensions(v []float32, want int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if want > 0 && len(v) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), want)
	}
	return nil
}
