// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/icite/pkg/types"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty input")
	}
	return f.vector, f.err
}

// fakeStore scores papers by a fixed similarity table.
type fakeStore struct {
	papers []types.Paper
	edges  []types.CitationEdge

	edgesErr error
	topKErr  error
	restrErr error

	topKCalls       int
	restrictedCalls int
	lastRestricted  []string
}

func (f *fakeStore) AllEdges(context.Context) ([]types.CitationEdge, error) {
	return f.edges, f.edgesErr
}

func (f *fakeStore) TopK(_ context.Context, _ []float32, k int) ([]types.Paper, error) {
	f.topKCalls++
	if f.topKErr != nil {
		return nil, f.topKErr
	}
	sorted := f.sorted()
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted, nil
}

func (f *fakeStore) TopKRestricted(_ context.Context, _ []float32, ids []string) ([]types.Paper, error) {
	f.restrictedCalls++
	f.lastRestricted = ids
	if f.restrErr != nil {
		return nil, f.restrErr
	}
	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	var out []types.Paper
	for _, p := range f.sorted() {
		if allowed[p.Identifier] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) sorted() []types.Paper {
	out := append([]types.Paper(nil), f.papers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score() > out[j].Score() })
	return out
}

type matchingStore struct {
	*fakeStore
}

func (m matchingStore) MatchTitles(_ context.Context, substring string) ([]types.Paper, error) {
	var out []types.Paper
	for _, p := range m.papers {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(substring)) {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeArchive fails any request that includes an id in bad.
type fakeArchive struct {
	mu       sync.Mutex
	bad      map[string]bool
	requests [][]string
}

func (f *fakeArchive) FullText(_ context.Context, ids []string) ([]string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, append([]string(nil), ids...))
	f.mu.Unlock()

	texts := make([]string, len(ids))
	for i, id := range ids {
		if f.bad[id] {
			return nil, errors.New("no source for " + id)
		}
		texts[i] = "full text of " + id
	}
	return texts, nil
}

type fakeChat struct {
	contextText string
	question    string
	err         error
}

func (f *fakeChat) Answer(_ context.Context, contextText, question string) (string, error) {
	f.contextText = contextText
	f.question = question
	if f.err != nil {
		return "", f.err
	}
	return "answer citing [P1]", nil
}

func paper(id string, sim float64) types.Paper {
	return types.Paper{
		Identifier: id,
		Title:      "Title " + id,
		Abstract:   "Abstract " + id,
		Similarity: types.Float(sim),
	}
}

func edge(source, citedBy string) types.CitationEdge {
	return types.CitationEdge{Source: source, CitedBy: citedBy}
}

func ids(papers []types.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.Identifier
	}
	return out
}
