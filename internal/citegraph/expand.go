// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citegraph expands a seed set of papers along the citation graph.
//
// Expansion runs two breadth-first passes over the corpus edge list. The
// backward pass collects papers the seeds cite ("based on"), the forward
// pass collects papers that cite the seeds ("future work"). Both passes
// share one visited set and one size bound that counts the seeds.
//
// The default ScanStrategy scans the whole edge list for every frontier
// node. That is quadratic but fine for corpora in the low thousands;
// IndexStrategy builds adjacency lists once per call and yields the same
// result in the same order.
package citegraph

import (
	"github.com/pdiddy/icite/pkg/types"
)

// DefaultMaxPapers leaves expansion effectively unbounded for a corpus of
// DOI scale.
const DefaultMaxPapers = 1 << 30

// Strategy selects how the expander finds the edges touching a node.
type Strategy int

const (
	// ScanStrategy scans the full edge list per frontier node.
	ScanStrategy Strategy = iota

	// IndexStrategy precomputes adjacency lists keyed by paper.
	IndexStrategy
)

// ParseStrategy maps a config value to a Strategy. Unknown values fall
// back to ScanStrategy.
func ParseStrategy(s string) Strategy {
	if s == "index" {
		return IndexStrategy
	}
	return ScanStrategy
}

func (s Strategy) String() string {
	if s == IndexStrategy {
		return "index"
	}
	return "scan"
}

// Options bounds an expansion.
type Options struct {
	// MaxPapers caps seeds plus expanded papers. A bound at or below the
	// number of seeds, zero and negative values included, expands nothing.
	MaxPapers int

	// MaxDepth limits hops per direction. Zero means unlimited.
	MaxDepth int

	Strategy Strategy
}

// DefaultOptions returns the options used when nothing is configured:
// effectively unbounded, unlimited depth, scan strategy.
func DefaultOptions() Options {
	return Options{MaxPapers: DefaultMaxPapers}
}

// direction says which end of an edge is matched against the frontier.
type direction int

const (
	backward direction = iota // frontier == CitedBy, collect Source
	forward                   // frontier == Source, collect CitedBy
)

// Expand grows seeds along edges and returns the identifiers reached,
// seeds excluded, plus the edges that caused each addition. It performs
// no I/O and does not modify its arguments, so concurrent calls are safe.
func Expand(seeds []string, edges []types.CitationEdge, opts Options) types.ExpansionResult {
	maxPapers := opts.MaxPapers

	result := types.ExpansionResult{
		Expanded:  []string{},
		UsedEdges: []types.CitationEdge{},
	}
	if len(seeds) == 0 || len(seeds) >= maxPapers {
		return result
	}

	e := &expander{
		seeds:    seeds,
		edges:    edges,
		visited:  make(map[string]struct{}, len(seeds)),
		total:    len(seeds),
		max:      maxPapers,
		maxDepth: opts.MaxDepth,
		result:   &result,
	}
	for _, s := range seeds {
		e.visited[s] = struct{}{}
	}
	if opts.Strategy == IndexStrategy {
		e.index = buildIndex(edges)
	}

	if e.run(backward) {
		e.run(forward)
	}
	return result
}

type expander struct {
	seeds    []string
	edges    []types.CitationEdge
	index    *adjacency
	visited  map[string]struct{}
	total    int
	max      int
	maxDepth int
	result   *types.ExpansionResult
}

// run performs one breadth-first pass starting from the seeds. It returns
// false once the size bound is reached, which ends the whole expansion.
func (e *expander) run(dir direction) bool {
	type node struct {
		id    string
		depth int
	}
	queue := make([]node, 0, len(e.seeds))
	for _, s := range e.seeds {
		queue = append(queue, node{id: s})
	}

	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		if e.maxDepth > 0 && cur.depth >= e.maxDepth {
			continue
		}
		for _, idx := range e.candidates(dir, cur.id) {
			edge := e.edges[idx]
			next := edge.Source
			if dir == forward {
				next = edge.CitedBy
			}
			if _, seen := e.visited[next]; seen {
				continue
			}
			e.visited[next] = struct{}{}
			e.result.Expanded = append(e.result.Expanded, next)
			e.result.UsedEdges = append(e.result.UsedEdges, edge)
			e.total++
			if e.total >= e.max {
				return false
			}
			queue = append(queue, node{id: next, depth: cur.depth + 1})
		}
	}
	return true
}

// candidates returns, in edge-list order, the indices of edges whose
// frontier end equals id.
func (e *expander) candidates(dir direction, id string) []int {
	if e.index != nil {
		if dir == backward {
			return e.index.byCitedBy[id]
		}
		return e.index.bySource[id]
	}

	var out []int
	for i, edge := range e.edges {
		end := edge.CitedBy
		if dir == forward {
			end = edge.Source
		}
		if end == id {
			out = append(out, i)
		}
	}
	return out
}

// adjacency maps a paper to the indices of edges touching it.
type adjacency struct {
	byCitedBy map[string][]int
	bySource  map[string][]int
}

func buildIndex(edges []types.CitationEdge) *adjacency {
	a := &adjacency{
		byCitedBy: make(map[string][]int),
		bySource:  make(map[string][]int),
	}
	for i, edge := range edges {
		a.byCitedBy[edge.CitedBy] = append(a.byCitedBy[edge.CitedBy], i)
		a.bySource[edge.Source] = append(a.bySource[edge.Source], i)
	}
	return a
}
