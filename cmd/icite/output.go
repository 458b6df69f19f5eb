// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/icite/pkg/types"
)

// outputFormat is the --json / --yaml selection of a command.
type outputFormat int

const (
	formatTable outputFormat = iota
	formatJSON
	formatYAML
)

func formatFromFlags(jsonOut, yamlOut bool) (outputFormat, error) {
	switch {
	case jsonOut && yamlOut:
		return formatTable, fmt.Errorf("--json and --yaml are mutually exclusive")
	case jsonOut:
		return formatJSON, nil
	case yamlOut:
		return formatYAML, nil
	}
	return formatTable, nil
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format outputFormat, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// printPapers writes papers as a ranked table.
func printPapers(w io.Writer, papers []types.Paper) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers.")
		return
	}
	fmt.Fprintf(w, "%-4s  %-10s  %-28s  %s\n", "Rank", "Similarity", "Identifier", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for i, p := range papers {
		sim := "-"
		if p.Similarity != nil {
			sim = fmt.Sprintf("%.4f", *p.Similarity)
		}
		fmt.Fprintf(w, "%-4d  %-10s  %-28s  %s\n", i+1, sim, clip(p.Identifier, 28), clip(p.Title, 50))
	}
}

// printEdges writes the citation edges used by an expansion.
func printEdges(w io.Writer, edges []types.CitationEdge) {
	if len(edges) == 0 {
		return
	}
	fmt.Fprintf(w, "\nCitation edges used (%d):\n", len(edges))
	for _, e := range edges {
		fmt.Fprintf(w, "  %s  cited by  %s\n", e.Source, e.CitedBy)
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
