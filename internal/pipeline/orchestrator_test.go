// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/icite/internal/citegraph"
	"github.com/pdiddy/icite/internal/metrics"
	"github.com/pdiddy/icite/internal/rank"
	"github.com/pdiddy/icite/pkg/types"
)

// corpus: P1 is cited by P2 and P3, P2 is cited by P4. P5 is unconnected.
func corpus() *fakeStore {
	return &fakeStore{
		papers: []types.Paper{
			paper("P1", 0.9),
			paper("P2", 0.5),
			paper("P3", 0.7),
			paper("P4", 0.6),
			paper("P5", 0.8),
		},
		edges: []types.CitationEdge{
			edge("P1", "P2"),
			edge("P1", "P3"),
			edge("P2", "P4"),
		},
	}
}

func newTestOrchestrator(t *testing.T, st SimilarityIndex, edges CitationStore, cfg types.PipelineConfig, extra ...func(*Deps)) *Orchestrator {
	t.Helper()
	deps := Deps{
		Embedder: &fakeEmbedder{vector: []float32{1, 0}},
		Edges:    edges,
		Index:    st,
	}
	for _, fn := range extra {
		fn(&deps)
	}
	o, err := New(deps, cfg)
	require.NoError(t, err)
	return o
}

func TestNewRequiresCollaborators(t *testing.T) {
	st := corpus()
	emb := &fakeEmbedder{vector: []float32{1}}

	_, err := New(Deps{Edges: st, Index: st}, types.PipelineConfig{})
	assert.Error(t, err)
	_, err = New(Deps{Embedder: emb, Index: st}, types.PipelineConfig{})
	assert.Error(t, err)
	_, err = New(Deps{Embedder: emb, Edges: st}, types.PipelineConfig{})
	assert.Error(t, err)

	o, err := New(Deps{Embedder: emb, Edges: st, Index: st}, types.PipelineConfig{})
	require.NoError(t, err)
	cfg := o.Config()
	assert.Equal(t, DefaultTopK, cfg.TopK)
	assert.Equal(t, DefaultMaxContextPapers, cfg.MaxContextPapers)
	assert.Equal(t, DefaultMaxContextChars, cfg.MaxContextChars)
	assert.Equal(t, citegraph.DefaultMaxPapers, cfg.Expansion.MaxPapers)
}

func TestFindInitialCandidates(t *testing.T) {
	tests := []struct {
		name string
		topK int
		want []string
	}{
		{name: "default top k", topK: 0, want: []string{"P1", "P5", "P3"}},
		{name: "negative uses default", topK: -1, want: []string{"P1", "P5", "P3"}},
		{name: "explicit", topK: 2, want: []string{"P1", "P5"}},
		{name: "larger than corpus", topK: 10, want: []string{"P1", "P5", "P3", "P4", "P2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := corpus()
			o := newTestOrchestrator(t, st, st, types.PipelineConfig{})
			got, err := o.FindInitialCandidates(context.Background(), "query", tt.topK)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, 0, st.restrictedCalls)
		})
	}
}

func TestFindInitialCandidatesNoResults(t *testing.T) {
	st := &fakeStore{}
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{})
	_, err := o.FindInitialCandidates(context.Background(), "query", 3)
	assert.ErrorIs(t, err, ErrNoResults)
	assert.False(t, IsCollaboratorError(err))
}

func TestFindInitialCandidatesDedupes(t *testing.T) {
	st := &fakeStore{papers: []types.Paper{paper("P1", 0.9), paper("P1", 0.8), paper("P2", 0.1)}}
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{})
	got, err := o.FindInitialCandidates(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, ids(got))
}

func TestCollaboratorFailures(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name         string
		mutate       func(*fakeStore, *fakeEmbedder)
		collaborator string
		related      bool
	}{
		{name: "embedder", mutate: func(_ *fakeStore, e *fakeEmbedder) { e.err = cause }, collaborator: CollaboratorEmbedder},
		{name: "top k", mutate: func(s *fakeStore, _ *fakeEmbedder) { s.topKErr = cause }, collaborator: CollaboratorIndex},
		{name: "edges", mutate: func(s *fakeStore, _ *fakeEmbedder) { s.edgesErr = cause }, collaborator: CollaboratorEdges, related: true},
		{name: "restricted", mutate: func(s *fakeStore, _ *fakeEmbedder) { s.restrErr = cause }, collaborator: CollaboratorIndex, related: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := corpus()
			emb := &fakeEmbedder{vector: []float32{1, 0}}
			tt.mutate(st, emb)
			o, err := New(Deps{Embedder: emb, Edges: st, Index: st}, types.PipelineConfig{})
			require.NoError(t, err)

			if tt.related {
				_, err = o.FindRelatedPapers(context.Background(), "q", []string{"P2"})
			} else {
				_, err = o.FindInitialCandidates(context.Background(), "q", 3)
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, cause)
			var ce *CollaboratorError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.collaborator, ce.Collaborator)
		})
	}
}

func TestInvalidVector(t *testing.T) {
	st := corpus()
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{}, func(d *Deps) {
		d.Embedder = &fakeEmbedder{vector: []float32{float32(math.NaN())}}
	})
	_, err := o.FindInitialCandidates(context.Background(), "q", 3)
	assert.ErrorIs(t, err, rank.ErrInvalidVector)
	assert.Equal(t, 0, st.topKCalls)
}

func TestFindRelatedPapers(t *testing.T) {
	st := corpus()
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{})

	got, err := o.FindRelatedPapers(context.Background(), "q", []string{"P2"})
	require.NoError(t, err)

	// Backward from P2 reaches P1, forward from P2 reaches P4. P3 is a
	// sibling and is not reached.
	assert.ElementsMatch(t, []string{"P1", "P4"}, st.lastRestricted)
	assert.Equal(t, []string{"P1", "P4"}, ids(got.Papers))
	assert.Equal(t, []types.CitationEdge{edge("P1", "P2"), edge("P2", "P4")}, got.UsedEdges)
	assert.Nil(t, got.Complement)
}

func TestFindRelatedPapersEmptyExpansion(t *testing.T) {
	st := corpus()
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{})

	got, err := o.FindRelatedPapers(context.Background(), "q", []string{"P5"})
	require.NoError(t, err)
	assert.Empty(t, got.Papers)
	assert.NotNil(t, got.Papers)
	assert.Empty(t, got.UsedEdges)
	assert.Equal(t, 0, st.restrictedCalls)
}

func TestFindRelatedPapersEmptyRankingIsNotAnError(t *testing.T) {
	st := corpus()
	// Edge to a paper that has no stored row.
	st.edges = append(st.edges, edge("P5", "GHOST"))
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{})

	got, err := o.FindRelatedPapers(context.Background(), "q", []string{"P5"})
	require.NoError(t, err)
	assert.Equal(t, []string{"GHOST"}, st.lastRestricted)
	assert.Empty(t, got.Papers)
}

func TestFindRelatedPapersBounds(t *testing.T) {
	st := corpus()
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{
		Expansion: types.ExpansionConfig{MaxPapers: 2, Strategy: "index"},
	})

	got, err := o.FindRelatedPapers(context.Background(), "q", []string{"P2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, ids(got.Papers))

	got, err = o.FindRelatedPapers(context.Background(), "q", []string{"P2"}, WithMaxPapers(10))
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P4"}, ids(got.Papers))
}

func TestFindRelatedPapersNegativeBound(t *testing.T) {
	st := corpus()
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{
		Expansion: types.ExpansionConfig{MaxPapers: -1},
	})

	got, err := o.FindRelatedPapers(context.Background(), "q", []string{"P2"})
	require.NoError(t, err)
	assert.Empty(t, got.Papers)
	assert.Equal(t, 0, st.restrictedCalls)
}

func TestFindRelatedPapersComplement(t *testing.T) {
	st := corpus()
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{
		Ranking: types.RankingConfig{ComplementWindow: 2},
	})

	got, err := o.FindRelatedPapers(context.Background(), "q", []string{"P2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P4"}, ids(got.Papers))
	assert.Equal(t, []string{"P5", "P3"}, ids(got.Complement))
}

func TestMatchTitles(t *testing.T) {
	st := corpus()
	st.papers[0].Title = "Attention Is All You Need"
	o := newTestOrchestrator(t, matchingStore{st}, st, types.PipelineConfig{})

	got, err := o.MatchTitles(context.Background(), "attention")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, ids(got))

	plain := newTestOrchestrator(t, st, st, types.PipelineConfig{})
	_, err = plain.MatchTitles(context.Background(), "attention")
	assert.Error(t, err)
}

func TestAsk(t *testing.T) {
	st := corpus()
	archive := &fakeArchive{bad: map[string]bool{"P3": true}}
	chat := &fakeChat{}
	reg := prometheus.NewRegistry()
	m := metrics.NewPipeline(reg)

	o := newTestOrchestrator(t, st, st, types.PipelineConfig{TopK: 2, MaxContextPapers: 3}, func(d *Deps) {
		d.Archive = archive
		d.Chat = chat
		d.Metrics = m
	})

	// Seeds P1, P5. Expansion of P1 reaches P2, P3 then P4; ranked P3, P4, P2.
	ans, err := o.Ask(context.Background(), "what is attention?")
	require.NoError(t, err)

	assert.Equal(t, "answer citing [P1]", ans.Text)
	assert.Equal(t, []string{"P1", "P5", "P3"}, ids(ans.Sources))
	assert.Equal(t, 2, ans.FullTextCount)
	assert.Equal(t, "full text of P1", ans.Sources[0].Content)
	assert.Equal(t, "full text of P5", ans.Sources[1].Content)
	assert.Empty(t, ans.Sources[2].Content)
	assert.Len(t, ans.UsedEdges, 3)

	assert.Equal(t, [][]string{{"P1", "P5", "P3"}, {"P1", "P5"}}, archive.requests)
	assert.Equal(t, 1.0, counterValue(t, reg, "icite_pipeline_fetch_shrinks_total"))

	assert.Equal(t, "what is attention?", chat.question)
	assert.Contains(t, chat.contextText, "[P1] Title P1\nAbstract P1\n\nfull text of P1\n")
	assert.Contains(t, chat.contextText, "[P3] Title P3\nAbstract P3\n")
	assert.NotContains(t, chat.contextText, "full text of P3")
}

func TestAskEmbedsOnce(t *testing.T) {
	st := corpus()
	emb := &fakeEmbedder{vector: []float32{1, 0}}
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{}, func(d *Deps) {
		d.Embedder = emb
		d.Chat = &fakeChat{}
	})
	_, err := o.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
}

func TestAskWithoutArchiveUsesAbstracts(t *testing.T) {
	st := corpus()
	chat := &fakeChat{}
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{}, func(d *Deps) { d.Chat = chat })

	ans, err := o.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Zero(t, ans.FullTextCount)
	assert.Contains(t, chat.contextText, "Abstract P1")
}

func TestAskErrors(t *testing.T) {
	t.Run("no chat", func(t *testing.T) {
		st := corpus()
		o := newTestOrchestrator(t, st, st, types.PipelineConfig{})
		_, err := o.Ask(context.Background(), "q")
		assert.ErrorIs(t, err, ErrNoChat)
	})

	t.Run("no results", func(t *testing.T) {
		st := &fakeStore{}
		o := newTestOrchestrator(t, st, st, types.PipelineConfig{}, func(d *Deps) { d.Chat = &fakeChat{} })
		_, err := o.Ask(context.Background(), "q")
		assert.ErrorIs(t, err, ErrNoResults)
	})

	t.Run("chat failure", func(t *testing.T) {
		st := corpus()
		cause := errors.New("overloaded")
		o := newTestOrchestrator(t, st, st, types.PipelineConfig{}, func(d *Deps) { d.Chat = &fakeChat{err: cause} })
		_, err := o.Ask(context.Background(), "q")
		assert.ErrorIs(t, err, cause)
		var ce *CollaboratorError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, CollaboratorChat, ce.Collaborator)
	})

	t.Run("every fetch fails", func(t *testing.T) {
		st := corpus()
		archive := &fakeArchive{bad: map[string]bool{"P1": true}}
		o := newTestOrchestrator(t, st, st, types.PipelineConfig{}, func(d *Deps) {
			d.Chat = &fakeChat{}
			d.Archive = archive
		})
		ans, err := o.Ask(context.Background(), "q")
		require.NoError(t, err)
		assert.Zero(t, ans.FullTextCount)
	})
}

func TestQueryIDLogged(t *testing.T) {
	var buf bytes.Buffer
	st := corpus()
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{}, func(d *Deps) {
		d.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	})
	_, err := o.FindInitialCandidates(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "query_id=")
	assert.Contains(t, buf.String(), "op=candidates")
}

func TestStageMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := corpus()
	o := newTestOrchestrator(t, st, st, types.PipelineConfig{}, func(d *Deps) { d.Metrics = metrics.NewPipeline(reg) })

	_, err := o.FindRelatedPapers(context.Background(), "q", []string{"P5"})
	require.NoError(t, err)

	// embed ok, edges ok, expand empty.
	n, err := testutil.GatherAndCount(reg, "icite_pipeline_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.Len(t, f.GetMetric(), 1)
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}
