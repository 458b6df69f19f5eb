// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank re-orders a set of papers by vector similarity to a query.
package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pdiddy/icite/pkg/types"
)

// ErrInvalidVector is returned when the query vector is empty or holds
// NaN or infinite components.
var ErrInvalidVector = errors.New("invalid query vector")

// SimilarityIndex answers nearest-neighbour queries over stored paper
// embeddings. Results are ordered by similarity descending.
type SimilarityIndex interface {
	TopK(ctx context.Context, vector []float32, k int) ([]types.Paper, error)
	TopKRestricted(ctx context.Context, vector []float32, ids []string) ([]types.Paper, error)
}

// Ranker scores papers against a query vector through a SimilarityIndex.
// It holds no mutable state and is safe for concurrent use.
type Ranker struct {
	index SimilarityIndex
}

// New returns a Ranker backed by index.
func New(index SimilarityIndex) *Ranker {
	return &Ranker{index: index}
}

// Validate reports ErrInvalidVector for an unusable query vector.
func Validate(vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidVector)
	}
	for i, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrInvalidVector, i, v)
		}
	}
	return nil
}

// Rank returns the papers among ids ordered by similarity to vector,
// highest first. The result never contains a paper outside ids nor the
// same identifier twice. An empty ids returns nil without consulting the
// index.
func (r *Ranker) Rank(ctx context.Context, vector []float32, ids []string) ([]types.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := Validate(vector); err != nil {
		return nil, err
	}

	papers, err := r.index.TopKRestricted(ctx, vector, ids)
	if err != nil {
		return nil, fmt.Errorf("restricted similarity search: %w", err)
	}

	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}

	out := make([]types.Paper, 0, len(papers))
	seen := make(map[string]struct{}, len(papers))
	for _, p := range papers {
		if _, ok := allowed[p.Identifier]; !ok {
			continue
		}
		if _, dup := seen[p.Identifier]; dup {
			continue
		}
		if p.Similarity == nil {
			continue
		}
		seen[p.Identifier] = struct{}{}
		out = append(out, p)
	}

	SortBySimilarity(out)
	return out, nil
}

// Complement returns up to window papers that rank highest against
// vector but are not in exclude. A window of zero or less returns nil.
func (r *Ranker) Complement(ctx context.Context, vector []float32, exclude []string, window int) ([]types.Paper, error) {
	if window <= 0 {
		return nil, nil
	}
	if err := Validate(vector); err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	papers, err := r.index.TopK(ctx, vector, len(skip)+window)
	if err != nil {
		return nil, fmt.Errorf("complement similarity search: %w", err)
	}

	var out []types.Paper
	for _, p := range papers {
		if _, ok := skip[p.Identifier]; ok {
			continue
		}
		skip[p.Identifier] = struct{}{}
		out = append(out, p)
		if len(out) == window {
			break
		}
	}
	SortBySimilarity(out)
	return out, nil
}

// SortBySimilarity orders papers by similarity descending. Ties keep
// their input order.
func SortBySimilarity(papers []types.Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].Score() > papers[j].Score()
	})
}
