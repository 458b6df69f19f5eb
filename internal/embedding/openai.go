// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the OpenAI embedding model used when none is configured.
const DefaultOpenAIModel = string(openai.SmallEmbedding3)

// OpenAI generates embeddings through the OpenAI embeddings API.
type OpenAI struct {
	client     *openai.Client
	model      string
	dimensions int
	baseURL    string
}

// OpenAIOption configures an OpenAI provider.
type OpenAIOption func(*OpenAI)

// WithOpenAIModel sets the embedding model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAI) { p.model = model }
}

// WithOpenAIDimensions requests vectors of n components. Zero keeps the
// model's native size and disables the length check.
func WithOpenAIDimensions(n int) OpenAIOption {
	return func(p *OpenAI) { p.dimensions = n }
}

// WithOpenAIBaseURL points the client at an OpenAI-compatible endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAI) { p.baseURL = url }
}

// NewOpenAI returns a provider authenticated with apiKey.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	p := &OpenAI{model: DefaultOpenAIModel}
	for _, opt := range opts {
		opt(p)
	}
	cfg := openai.DefaultConfig(apiKey)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	p.client = openai.NewClientWithConfig(cfg)
	return p
}

// Embed returns the embedding of text.
func (p *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := checkInput(text); err != nil {
		return nil, err
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: no data in response")
	}

	v := resp.Data[0].Embedding
	if err := checkDimensions(v, p.dimensions); err != nil {
		return nil, err
	}
	return v, nil
}

// ModelName returns the name of the embedding model.
func (p *OpenAI) ModelName() string {
	return p.model
}

// Dimensions returns the requested vector length.
func (p *OpenAI) Dimensions() int {
	return p.dimensions
}
