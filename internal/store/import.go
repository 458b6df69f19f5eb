// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/icite/pkg/types"
)

// PaperRecord is one entry of a papers file: paper metadata plus optional
// precomputed embeddings. Papers files are YAML or JSON sequences.
type PaperRecord struct {
	types.Paper `yaml:",inline"`

	Embedding      []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	TitleEmbedding []float32 `json:"title_embedding,omitempty" yaml:"title_embedding,omitempty"`
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ImportSummary holds counts from one import run.
type ImportSummary struct {
	Papers    int
	Citations int
	Embedded  int
	Failed    int
}

// ReadPapers decodes a YAML or JSON sequence of paper records. Records
// without an identifier are rejected.
func ReadPapers(r io.Reader) ([]PaperRecord, error) {
	var records []PaperRecord
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding papers: %w", err)
	}
	for i, rec := range records {
		if strings.TrimSpace(rec.Identifier) == "" {
			return nil, fmt.Errorf("paper %d has no doi", i+1)
		}
	}
	return records, nil
}

// ReadCitations decodes a CSV file whose header names the source_paper
// and cited_by columns. Other columns are ignored.
func ReadCitations(r io.Reader) ([]types.CitationEdge, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading citations header: %w", err)
	}

	src, cit := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "source_paper":
			src = i
		case "cited_by":
			cit = i
		}
	}
	if src < 0 || cit < 0 {
		return nil, fmt.Errorf("citations header must name source_paper and cited_by, got %v", header)
	}

	var edges []types.CitationEdge
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading citations line %d: %w", line, err)
		}
		if src >= len(rec) || cit >= len(rec) {
			return nil, fmt.Errorf("citations line %d: too few columns", line)
		}
		e := types.CitationEdge{
			Source:  strings.TrimSpace(rec[src]),
			CitedBy: strings.TrimSpace(rec[cit]),
		}
		if e.Source == "" || e.CitedBy == "" {
			continue
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// Import upserts papers and inserts citation edges in one transaction.
// Existing embeddings are kept when a record carries none. Duplicate
// edges are ignored.
func (s *SQLite) Import(ctx context.Context, papers []PaperRecord, edges []types.CitationEdge) (ImportSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	paperStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (doi, title, abstract, date, embedding, title_embedding)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(doi) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, date=excluded.date,
			embedding=coalesce(excluded.embedding, papers.embedding),
			title_embedding=coalesce(excluded.title_embedding, papers.title_embedding)`)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("preparing paper insert: %w", err)
	}
	defer paperStmt.Close()

	var summary ImportSummary
	for _, rec := range papers {
		_, err := paperStmt.ExecContext(ctx,
			rec.Identifier, rec.Title, rec.Abstract, rec.Date,
			encodeVector(rec.Embedding), encodeVector(rec.TitleEmbedding),
		)
		if err != nil {
			return ImportSummary{}, fmt.Errorf("upserting paper %s: %w", rec.Identifier, err)
		}
		summary.Papers++
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO citations (source_paper, cited_by) VALUES (?, ?)`)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("preparing citation insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, e := range edges {
		res, err := edgeStmt.ExecContext(ctx, e.Source, e.CitedBy)
		if err != nil {
			return ImportSummary{}, fmt.Errorf("inserting citation %s <- %s: %w", e.Source, e.CitedBy, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			summary.Citations++
		}
	}

	if err := tx.Commit(); err != nil {
		return ImportSummary{}, fmt.Errorf("committing import: %w", err)
	}
	return summary, nil
}

// ImportFiles reads the papers file and, when citationsPath is not empty,
// the citations CSV, then imports both. Progress is written to w.
func (s *SQLite) ImportFiles(ctx context.Context, w io.Writer, papersPath, citationsPath string) (ImportSummary, error) {
	var (
		papers []PaperRecord
		edges  []types.CitationEdge
	)

	if papersPath != "" {
		f, err := os.Open(papersPath)
		if err != nil {
			return ImportSummary{}, fmt.Errorf("opening papers file: %w", err)
		}
		papers, err = ReadPapers(f)
		f.Close()
		if err != nil {
			return ImportSummary{}, fmt.Errorf("%s: %w", papersPath, err)
		}
		fmt.Fprintf(w, "read %d papers from %s\n", len(papers), papersPath)
	}

	if citationsPath != "" {
		f, err := os.Open(citationsPath)
		if err != nil {
			return ImportSummary{}, fmt.Errorf("opening citations file: %w", err)
		}
		edges, err = ReadCitations(f)
		f.Close()
		if err != nil {
			return ImportSummary{}, fmt.Errorf("%s: %w", citationsPath, err)
		}
		fmt.Fprintf(w, "read %d citations from %s\n", len(edges), citationsPath)
	}

	summary, err := s.Import(ctx, papers, edges)
	if err != nil {
		return summary, err
	}
	fmt.Fprintf(w, "imported papers: %d, new citations: %d\n", summary.Papers, summary.Citations)
	return summary, nil
}

// EmbedMissing computes content and title embeddings for every paper that
// has no content embedding yet. Content is embedded from the abstract,
// falling back to the title. Papers that fail are reported and skipped.
func (s *SQLite) EmbedMissing(ctx context.Context, w io.Writer, embedder Embedder) (ImportSummary, error) {
	pending, err := s.unembedded(ctx)
	if err != nil {
		return ImportSummary{}, err
	}

	var summary ImportSummary
	for i, p := range pending {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		text := p.Abstract
		if strings.TrimSpace(text) == "" {
			text = p.Title
		}
		if err := s.embedOne(ctx, embedder, p, text); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", p.Identifier, err)
			summary.Failed++
			continue
		}
		summary.Embedded++
		fmt.Fprintf(w, "embedded %s (%d/%d)\n", p.Identifier, i+1, len(pending))
	}

	fmt.Fprintf(w, "\nembedded: %d, failed: %d\n", summary.Embedded, summary.Failed)
	return summary, nil
}

func (s *SQLite) embedOne(ctx context.Context, embedder Embedder, p types.Paper, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("no abstract or title to embed")
	}
	emb, err := embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding content: %w", err)
	}

	var temb []float32
	if strings.TrimSpace(p.Title) != "" {
		temb, err = embedder.Embed(ctx, p.Title)
		if err != nil {
			return fmt.Errorf("embedding title: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE papers SET embedding = ?, title_embedding = ? WHERE doi = ?`,
		encodeVector(emb), encodeVector(temb), p.Identifier)
	if err != nil {
		return fmt.Errorf("storing embeddings: %w", err)
	}
	return nil
}

func (s *SQLite) unembedded(ctx context.Context) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doi, title, abstract, date FROM papers WHERE embedding IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying unembedded papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		var p types.Paper
		if err := rows.Scan(&p.ID, &p.Identifier, &p.Title, &p.Abstract, &p.Date); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}
