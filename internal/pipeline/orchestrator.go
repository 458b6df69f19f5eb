// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a query through the retrieval stages: semantic
// recall of seed papers, citation-graph expansion and re-ranking of the
// expanded set, and optionally answer generation over the gathered papers.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/icite/internal/citegraph"
	"github.com/pdiddy/icite/internal/metrics"
	"github.com/pdiddy/icite/internal/rank"
	"github.com/pdiddy/icite/pkg/types"
)

// DefaultTopK is the number of initial candidates when none is configured.
const DefaultTopK = 3

// Stage names used in logs and metrics.
const (
	StageEmbed      = "embed"
	StageCandidates = "candidates"
	StageEdges      = "edges"
	StageExpand     = "expand"
	StageRank       = "rank"
	StageComplement = "complement"
	StageFetch      = "fetch"
	StageAnswer     = "answer"
	StageMatch      = "match"
)

// Orchestrator wires the collaborators into the query pipeline. It holds
// no per-query state and is safe for concurrent use.
type Orchestrator struct {
	deps   Deps
	cfg    types.PipelineConfig
	ranker *rank.Ranker
	log    *slog.Logger
	m      *metrics.Pipeline
}

// New returns an Orchestrator. Zero config values take package defaults.
func New(deps Deps, cfg types.PipelineConfig) (*Orchestrator, error) {
	if deps.Embedder == nil {
		return nil, errors.New("pipeline: embedder is required")
	}
	if deps.Edges == nil {
		return nil, errors.New("pipeline: citation store is required")
	}
	if deps.Index == nil {
		return nil, errors.New("pipeline: similarity index is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxContextPapers <= 0 {
		cfg.MaxContextPapers = DefaultMaxContextPapers
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	if cfg.Expansion.MaxPapers == 0 {
		cfg.Expansion.MaxPapers = citegraph.DefaultOptions().MaxPapers
	}
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		ranker: rank.New(deps.Index),
		log:    log,
		m:      deps.Metrics,
	}, nil
}

// Config returns the effective pipeline configuration.
func (o *Orchestrator) Config() types.PipelineConfig {
	return o.cfg
}

// RelatedOption adjusts a single FindRelatedPapers call.
type RelatedOption func(*citegraph.Options)

// WithMaxPapers overrides the expansion bound for one call. Values of zero
// or less keep the configured bound.
func WithMaxPapers(n int) RelatedOption {
	return func(o *citegraph.Options) {
		if n > 0 {
			o.MaxPapers = n
		}
	}
}

// FindInitialCandidates returns the topK papers most similar to query.
// topK of zero or less uses the configured default. An empty result is
// reported as ErrNoResults.
func (o *Orchestrator) FindInitialCandidates(ctx context.Context, query string, topK int) ([]types.Paper, error) {
	log := o.queryLogger("candidates")
	vector, err := o.embed(ctx, log, query)
	if err != nil {
		return nil, err
	}
	return o.candidates(ctx, log, vector, topK)
}

// FindRelatedPapers expands seeds through the citation graph and ranks the
// reached papers by similarity to query. Empty expansions and empty
// rankings are returned without error.
func (o *Orchestrator) FindRelatedPapers(ctx context.Context, query string, seeds []string, opts ...RelatedOption) (types.Related, error) {
	log := o.queryLogger("related")
	vector, err := o.embed(ctx, log, query)
	if err != nil {
		return types.Related{}, err
	}
	return o.related(ctx, log, vector, seeds, opts...)
}

// MatchTitles returns papers whose title contains substring, ignoring case.
func (o *Orchestrator) MatchTitles(ctx context.Context, substring string) ([]types.Paper, error) {
	matcher, ok := o.deps.Index.(TitleMatcher)
	if !ok {
		return nil, errors.New("pipeline: store does not support title matching")
	}
	start := time.Now()
	papers, err := matcher.MatchTitles(ctx, substring)
	if err != nil {
		o.m.ObserveStage(StageMatch, metrics.StatusError, time.Since(start))
		return nil, collaboratorErr(CollaboratorIndex, err)
	}
	o.observe(StageMatch, start, len(papers))
	return papers, nil
}

// Ask answers question from the papers the pipeline retrieves for it. The
// question is embedded once; seeds come from the initial search and are
// expanded and ranked, then the leading papers are fetched in full and
// handed to the chat model. Full-text failures narrow the fetched set
// instead of failing the query.
func (o *Orchestrator) Ask(ctx context.Context, question string) (types.Answer, error) {
	if o.deps.Chat == nil {
		return types.Answer{}, ErrNoChat
	}
	log := o.queryLogger("ask")

	vector, err := o.embed(ctx, log, question)
	if err != nil {
		return types.Answer{}, err
	}
	seeds, err := o.candidates(ctx, log, vector, o.cfg.TopK)
	if err != nil {
		return types.Answer{}, err
	}
	related, err := o.related(ctx, log, vector, identifiers(seeds))
	if err != nil {
		return types.Answer{}, err
	}

	papers := SelectContextPapers(seeds, related.Papers, o.cfg.MaxContextPapers)

	start := time.Now()
	texts, err := fetchWithDegradation(ctx, o.deps.Archive, identifiers(papers), log, o.m.IncFetchShrink)
	if err != nil {
		o.m.ObserveStage(StageFetch, metrics.StatusError, time.Since(start))
		return types.Answer{}, err
	}
	o.observe(StageFetch, start, len(texts))
	for i, text := range texts {
		papers[i] = papers[i].WithContent(text)
	}
	log.Info("context assembled", "papers", len(papers), "full_text", len(texts))

	start = time.Now()
	text, err := o.deps.Chat.Answer(ctx, BuildContext(papers, o.cfg.MaxContextChars), question)
	if err != nil {
		o.m.ObserveStage(StageAnswer, metrics.StatusError, time.Since(start))
		log.Error("answer failed", "error", err)
		return types.Answer{}, collaboratorErr(CollaboratorChat, err)
	}
	o.m.ObserveStage(StageAnswer, metrics.StatusOK, time.Since(start))

	return types.Answer{
		Text:          text,
		Sources:       papers,
		UsedEdges:     related.UsedEdges,
		FullTextCount: len(texts),
	}, nil
}

func (o *Orchestrator) embed(ctx context.Context, log *slog.Logger, text string) ([]float32, error) {
	start := time.Now()
	vector, err := o.deps.Embedder.Embed(ctx, text)
	if err != nil {
		o.m.ObserveStage(StageEmbed, metrics.StatusError, time.Since(start))
		log.Error("embedding failed", "error", err)
		return nil, collaboratorErr(CollaboratorEmbedder, err)
	}
	if err := rank.Validate(vector); err != nil {
		o.m.ObserveStage(StageEmbed, metrics.StatusError, time.Since(start))
		return nil, err
	}
	o.m.ObserveStage(StageEmbed, metrics.StatusOK, time.Since(start))
	return vector, nil
}

func (o *Orchestrator) candidates(ctx context.Context, log *slog.Logger, vector []float32, topK int) ([]types.Paper, error) {
	if topK <= 0 {
		topK = o.cfg.TopK
	}
	start := time.Now()
	papers, err := o.deps.Index.TopK(ctx, vector, topK)
	if err != nil {
		o.m.ObserveStage(StageCandidates, metrics.StatusError, time.Since(start))
		log.Error("similarity search failed", "error", err)
		return nil, collaboratorErr(CollaboratorIndex, err)
	}
	papers = dedupe(papers)
	o.observe(StageCandidates, start, len(papers))
	if len(papers) == 0 {
		log.Info("no initial candidates", "top_k", topK)
		return nil, ErrNoResults
	}
	log.Info("initial candidates", "top_k", topK, "found", len(papers))
	return papers, nil
}

func (o *Orchestrator) related(ctx context.Context, log *slog.Logger, vector []float32, seeds []string, opts ...RelatedOption) (types.Related, error) {
	start := time.Now()
	edges, err := o.deps.Edges.AllEdges(ctx)
	if err != nil {
		o.m.ObserveStage(StageEdges, metrics.StatusError, time.Since(start))
		log.Error("reading citations failed", "error", err)
		return types.Related{}, collaboratorErr(CollaboratorEdges, err)
	}
	o.observe(StageEdges, start, len(edges))

	expandOpts := citegraph.Options{
		MaxPapers: o.cfg.Expansion.MaxPapers,
		MaxDepth:  o.cfg.Expansion.MaxDepth,
		Strategy:  citegraph.ParseStrategy(o.cfg.Expansion.Strategy),
	}
	for _, opt := range opts {
		opt(&expandOpts)
	}

	start = time.Now()
	exp := citegraph.Expand(seeds, edges, expandOpts)
	o.observe(StageExpand, start, len(exp.Expanded))
	log.Info("citation expansion", "seeds", len(seeds), "expanded", len(exp.Expanded), "edges_used", len(exp.UsedEdges))

	result := types.Related{Papers: []types.Paper{}, UsedEdges: exp.UsedEdges}
	if exp.IsEmpty() {
		return result, nil
	}

	start = time.Now()
	ranked, err := o.ranker.Rank(ctx, vector, exp.Expanded)
	if err != nil {
		o.m.ObserveStage(StageRank, metrics.StatusError, time.Since(start))
		log.Error("ranking failed", "error", err)
		return types.Related{}, collaboratorErr(CollaboratorIndex, err)
	}
	o.observe(StageRank, start, len(ranked))
	if ranked != nil {
		result.Papers = ranked
	}

	if window := o.cfg.Ranking.ComplementWindow; window > 0 {
		exclude := append(append([]string(nil), seeds...), exp.Expanded...)
		start = time.Now()
		complement, err := o.ranker.Complement(ctx, vector, exclude, window)
		if err != nil {
			o.m.ObserveStage(StageComplement, metrics.StatusError, time.Since(start))
			log.Error("complement search failed", "error", err)
			return types.Related{}, collaboratorErr(CollaboratorIndex, err)
		}
		o.observe(StageComplement, start, len(complement))
		result.Complement = complement
	}
	return result, nil
}

// observe records a finished stage, marking it empty when it produced nothing.
func (o *Orchestrator) observe(stage string, start time.Time, n int) {
	status := metrics.StatusOK
	if n == 0 {
		status = metrics.StatusEmpty
	}
	o.m.ObserveStage(stage, status, time.Since(start))
	o.m.ObservePapers(stage, n)
}

func (o *Orchestrator) queryLogger(op string) *slog.Logger {
	return o.log.With("query_id", uuid.NewString(), "op", op)
}

func identifiers(papers []types.Paper) []string {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.Identifier
	}
	return ids
}

func dedupe(papers []types.Paper) []types.Paper {
	seen := make(map[string]bool, len(papers))
	out := papers[:0:0]
	for _, p := range papers {
		if seen[p.Identifier] {
			continue
		}
		seen[p.Identifier] = true
		out = append(out, p)
	}
	return out
}
