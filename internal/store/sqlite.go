// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists papers, their embeddings and the citation graph
// in SQLite, and answers similarity queries over the stored embeddings.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/icite/pkg/types"
)

// SQLite is a paper and citation store backed by a single SQLite file.
// Similarity is computed in process over the stored vectors, which suits
// corpora that fit in memory. Safe for concurrent use.
type SQLite struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema
// exists. The parent directory is created if needed.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doi TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			abstract TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			embedding BLOB,
			title_embedding BLOB
		)`,
		`CREATE TABLE IF NOT EXISTS citations (
			source_paper TEXT NOT NULL,
			cited_by TEXT NOT NULL,
			UNIQUE (source_paper, cited_by)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_citations_cited_by ON citations(cited_by)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// AllEdges returns every citation edge in insertion order.
func (s *SQLite) AllEdges(ctx context.Context) ([]types.CitationEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_paper, cited_by FROM citations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()

	var edges []types.CitationEdge
	for rows.Next() {
		var e types.CitationEdge
		if err := rows.Scan(&e.Source, &e.CitedBy); err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

const paperColumns = `id, doi, title, abstract, date, embedding, title_embedding`

// TopK returns the k papers most similar to vector over the whole corpus.
func (s *SQLite) TopK(ctx context.Context, vector []float32, k int) ([]types.Paper, error) {
	if k <= 0 {
		return nil, nil
	}
	papers, err := s.scored(ctx, vector,
		`SELECT `+paperColumns+` FROM papers WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	if len(papers) > k {
		papers = papers[:k]
	}
	return papers, nil
}

// TopKRestricted scores only the papers whose identifier is in ids.
// Unknown identifiers are ignored.
func (s *SQLite) TopKRestricted(ctx context.Context, vector []float32, ids []string) ([]types.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encoding identifiers: %w", err)
	}
	return s.scored(ctx, vector,
		`SELECT `+paperColumns+` FROM papers
		 WHERE embedding IS NOT NULL AND doi IN (SELECT value FROM json_each(?))
		 ORDER BY id`, string(idsJSON))
}

// scored runs query, computes similarity for each row and returns the
// papers by similarity descending. Rows whose embedding length differs
// from vector are skipped.
func (s *SQLite) scored(ctx context.Context, vector []float32, query string, args ...any) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		var (
			p         types.Paper
			emb, temb []byte
		)
		if err := rows.Scan(&p.ID, &p.Identifier, &p.Title, &p.Abstract, &p.Date, &emb, &temb); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}

		sim, ok := cosine(vector, decodeVector(emb))
		if !ok {
			continue
		}
		p.Similarity = types.Float(sim)
		if tsim, ok := cosine(vector, decodeVector(temb)); ok {
			p.TitleSimilarity = types.Float(tsim)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(papers, func(i, j int) bool {
		return *papers[i].Similarity > *papers[j].Similarity
	})
	return papers, nil
}

// MatchTitles returns papers whose title contains substring, ignoring
// case, in row order. SQLite's lower() folds ASCII only, so titles are
// folded in Go to match the Postgres store.
func (s *SQLite) MatchTitles(ctx context.Context, substring string) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doi, title, abstract, date FROM papers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("matching titles: %w", err)
	}
	defer rows.Close()

	needle := strings.ToLower(substring)
	var papers []types.Paper
	for rows.Next() {
		var p types.Paper
		if err := rows.Scan(&p.ID, &p.Identifier, &p.Title, &p.Abstract, &p.Date); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		if strings.Contains(strings.ToLower(p.Title), needle) {
			papers = append(papers, p)
		}
	}
	return papers, rows.Err()
}

// PaperCount pairs a paper identifier with a citation count.
type PaperCount struct {
	Paper string `json:"paper" yaml:"paper"`
	Count int    `json:"count" yaml:"count"`
}

// Stats summarises the store contents.
type Stats struct {
	Papers    int `json:"papers" yaml:"papers"`
	Embedded  int `json:"embedded" yaml:"embedded"`
	Citations int `json:"citations" yaml:"citations"`
	// MostCited is the paper cited by the most others and MostCiting the
	// paper citing the most others. Both are zero without citations.
	MostCited  PaperCount `json:"most_cited" yaml:"most_cited"`
	MostCiting PaperCount `json:"most_citing" yaml:"most_citing"`
}

// Stats counts papers, embedded papers and citation edges, and finds the
// most cited and most citing papers. Ties go to the smaller identifier.
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT count(*) FROM papers),
			(SELECT count(*) FROM papers WHERE embedding IS NOT NULL),
			(SELECT count(*) FROM citations)`,
	).Scan(&st.Papers, &st.Embedded, &st.Citations)
	if err != nil {
		return Stats{}, fmt.Errorf("counting rows: %w", err)
	}
	if st.MostCited, err = s.topPaper(ctx, "source_paper"); err != nil {
		return Stats{}, err
	}
	if st.MostCiting, err = s.topPaper(ctx, "cited_by"); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// topPaper returns the value of column that occurs in the most citation
// rows. column is one of the two citations columns, never user input.
func (s *SQLite) topPaper(ctx context.Context, column string) (PaperCount, error) {
	var pc PaperCount
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %[1]s, count(*) AS n FROM citations
		 GROUP BY %[1]s ORDER BY n DESC, %[1]s LIMIT 1`, column),
	).Scan(&pc.Paper, &pc.Count)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return PaperCount{}, nil
	case err != nil:
		return PaperCount{}, fmt.Errorf("counting citations by %s: %w", column, err)
	}
	return pc, nil
}
