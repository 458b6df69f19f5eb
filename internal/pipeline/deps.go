// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"log/slog"

	"github.com/pdiddy/icite/internal/metrics"
	"github.com/pdiddy/icite/pkg/types"
)

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CitationStore returns the full citation edge list.
type CitationStore interface {
	AllEdges(ctx context.Context) ([]types.CitationEdge, error)
}

// SimilarityIndex answers nearest-neighbour queries over stored papers.
type SimilarityIndex interface {
	TopK(ctx context.Context, vector []float32, k int) ([]types.Paper, error)
	TopKRestricted(ctx context.Context, vector []float32, ids []string) ([]types.Paper, error)
}

// ArchiveFetcher returns the full text of every id, in order, or an error.
type ArchiveFetcher interface {
	FullText(ctx context.Context, ids []string) ([]string, error)
}

// ChatCompletion writes an answer to question grounded on contextText.
type ChatCompletion interface {
	Answer(ctx context.Context, contextText, question string) (string, error)
}

// TitleMatcher is implemented by stores that support title substring search.
type TitleMatcher interface {
	MatchTitles(ctx context.Context, substring string) ([]types.Paper, error)
}

// Deps are the collaborators of an Orchestrator. Embedder, Edges and Index
// are required. Archive and Chat are needed only by Ask; without an
// Archive, answers are written from abstracts alone.
type Deps struct {
	Embedder Embedder
	Edges    CitationStore
	Index    SimilarityIndex
	Archive  ArchiveFetcher
	Chat     ChatCompletion

	Logger  *slog.Logger
	Metrics *metrics.Pipeline
}
