// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the icite retrieval
// pipeline: papers, citation edges, expansion results and configuration.
package types

// Paper is a per-query view of a stored paper. Papers are built fresh
// from each store response and are not modified afterwards; use
// WithContent to derive a copy that carries full text.
type Paper struct {
	// Identifier is the DOI or arXiv ID naming the paper.
	Identifier string `json:"doi" yaml:"doi"`

	// ID is the store's numeric row id. Zero when unknown.
	ID int64 `json:"id,omitempty" yaml:"id,omitempty"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Content is the full text, populated after archive retrieval.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// Similarity is the cosine similarity between the query and the
	// paper's content embedding. Nil when the paper was not scored.
	Similarity *float64 `json:"similarity,omitempty" yaml:"similarity,omitempty"`

	// TitleSimilarity is the cosine similarity between the query and the
	// paper's title embedding.
	TitleSimilarity *float64 `json:"title_similarity,omitempty" yaml:"title_similarity,omitempty"`

	// Date is the publication date in YYYY-MM-DD format, if known.
	Date string `json:"date,omitempty" yaml:"date,omitempty"`
}

// WithContent returns a copy of p with Content set to text.
func (p Paper) WithContent(text string) Paper {
	p.Content = text
	return p
}

// Score returns the similarity score, or 0 when the paper is unscored.
func (p Paper) Score() float64 {
	if p.Similarity == nil {
		return 0
	}
	return *p.Similarity
}

// Float returns a pointer to v. Convenience for building scored papers.
func Float(v float64) *float64 {
	return &v
}

// CitationEdge records that Source is cited by CitedBy.
type CitationEdge struct {
	Source  string `json:"source_paper" yaml:"source_paper"`
	CitedBy string `json:"cited_by" yaml:"cited_by"`
}

// ExpansionResult is the outcome of one citation-graph expansion.
type ExpansionResult struct {
	// Expanded holds the identifiers reached from the seeds, seeds
	// excluded, in discovery order.
	Expanded []string `json:"expanded" yaml:"expanded"`

	// UsedEdges holds the edges that caused an identifier to be added,
	// in discovery order.
	UsedEdges []CitationEdge `json:"used_edges" yaml:"used_edges"`
}

// IsEmpty reports whether the expansion reached no new papers.
func (r ExpansionResult) IsEmpty() bool {
	return len(r.Expanded) == 0
}

// Related is the result of a related-papers query: the expanded set
// re-ranked by similarity, plus the edges used to reach it.
type Related struct {
	Papers    []Paper        `json:"papers" yaml:"papers"`
	UsedEdges []CitationEdge `json:"used_edges" yaml:"used_edges"`

	// Complement holds papers just outside the expanded set, returned
	// only when the complement window is enabled.
	Complement []Paper `json:"complement,omitempty" yaml:"complement,omitempty"`
}

// Answer is the chat model's reply together with the papers that were
// placed in its context.
type Answer struct {
	Text          string         `json:"text" yaml:"text"`
	Sources       []Paper        `json:"sources" yaml:"sources"`
	UsedEdges     []CitationEdge `json:"used_edges" yaml:"used_edges"`
	FullTextCount int            `json:"full_text_count" yaml:"full_text_count"`
}
