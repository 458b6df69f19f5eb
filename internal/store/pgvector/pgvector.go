// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pgvector is a paper and citation store backed by PostgreSQL
// with the pgvector extension. Similarity is computed by the database
// using the cosine distance operator.
//
// The expected schema is
//
//	papers(id bigserial, doi text unique, title text, abstract text,
//	       date text, embedding vector, title_embedding vector)
//	citations(source_paper text, cited_by text)
//
// Schema management is left to the operator.
package pgvector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/pdiddy/icite/pkg/types"
)

// Store queries papers and citations over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database named by dsn and registers the vector
// types on every pooled connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases all pooled connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const (
	topKQuery = `SELECT id, doi, title, abstract,
		1 - (embedding <=> $1) AS similarity,
		1 - (title_embedding <=> $1) AS title_similarity
	FROM papers
	WHERE embedding IS NOT NULL
	ORDER BY similarity DESC, id
	LIMIT $2`

	restrictedQuery = `SELECT id, doi, title, abstract,
		1 - (embedding <=> $1) AS similarity,
		1 - (title_embedding <=> $1) AS title_similarity
	FROM papers
	WHERE embedding IS NOT NULL AND doi = ANY($2)
	ORDER BY similarity DESC, id`

	matchQuery = `SELECT id, doi, coalesce(title, ''), coalesce(abstract, '')
	FROM papers
	WHERE strpos(lower(title), lower($1)) > 0
	ORDER BY id`
)

// AllEdges returns every citation edge in physical table order, which is
// stable between calls while the table is not rewritten.
func (s *Store) AllEdges(ctx context.Context) ([]types.CitationEdge, error) {
	rows, err := s.pool.Query(ctx, `SELECT source_paper, cited_by FROM citations ORDER BY ctid`)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	edges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.CitationEdge, error) {
		var e types.CitationEdge
		err := row.Scan(&e.Source, &e.CitedBy)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning citations: %w", err)
	}
	return edges, nil
}

// TopK returns the k papers closest to vector.
func (s *Store) TopK(ctx context.Context, vector []float32, k int) ([]types.Paper, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, topKQuery, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return collectScored(rows)
}

// TopKRestricted scores only the papers whose identifier is in ids.
func (s *Store) TopKRestricted(ctx context.Context, vector []float32, ids []string) ([]types.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, restrictedQuery, pgvector.NewVector(vector), ids)
	if err != nil {
		return nil, fmt.Errorf("restricted similarity search: %w", err)
	}
	return collectScored(rows)
}

// MatchTitles returns papers whose title contains substring, ignoring case.
func (s *Store) MatchTitles(ctx context.Context, substring string) ([]types.Paper, error) {
	rows, err := s.pool.Query(ctx, matchQuery, substring)
	if err != nil {
		return nil, fmt.Errorf("matching titles: %w", err)
	}
	papers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Paper, error) {
		var p types.Paper
		err := row.Scan(&p.ID, &p.Identifier, &p.Title, &p.Abstract)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning papers: %w", err)
	}
	return papers, nil
}

func collectScored(rows pgx.Rows) ([]types.Paper, error) {
	papers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Paper, error) {
		var (
			p          types.Paper
			sim, tsim  *float64
			title, abs *string
		)
		if err := row.Scan(&p.ID, &p.Identifier, &title, &abs, &sim, &tsim); err != nil {
			return p, err
		}
		if title != nil {
			p.Title = *title
		}
		if abs != nil {
			p.Abstract = *abs
		}
		p.Similarity = sim
		p.TitleSimilarity = tsim
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning papers: %w", err)
	}
	return papers, nil
}
