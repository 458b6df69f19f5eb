// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/icite/pkg/types"
)

// candidatesConcurrency caps the queries run at once.
const candidatesConcurrency = 4

var candidatesCmd = &cobra.Command{
	Use:   "candidates <query>...",
	Short: "Find the papers most similar to each query",
	Long: `Candidates runs the initial similarity search for each query and prints
the top matches. Several queries run concurrently. The identifiers printed
here are the usual seeds for "related".

Exits with status 2 when a query has no results.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCandidates,
}

type candidatesResult struct {
	Query  string        `json:"query" yaml:"query"`
	Papers []types.Paper `json:"papers" yaml:"papers"`
}

func runCandidates(cmd *cobra.Command, args []string) error {
	topK, _ := cmd.Flags().GetInt("top-k")
	jsonOut, _ := cmd.Flags().GetBool("json")
	yamlOut, _ := cmd.Flags().GetBool("yaml")
	format, err := formatFromFlags(jsonOut, yamlOut)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	results := make([]candidatesResult, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(candidatesConcurrency)
	for i, query := range args {
		g.Go(func() error {
			papers, err := a.orch.FindInitialCandidates(ctx, query, topK)
			if err != nil {
				return fmt.Errorf("query %q: %w", query, err)
			}
			results[i] = candidatesResult{Query: query, Papers: papers}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if format != formatTable {
		return encode(os.Stdout, format, results)
	}
	for i, r := range results {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Query: %s\n", r.Query)
		printPapers(os.Stdout, r.Papers)
	}
	return nil
}

func init() {
	candidatesCmd.Flags().Int("top-k", 0, "number of candidates per query (default pipeline.top_k)")
	candidatesCmd.Flags().Bool("json", false, "output results as JSON")
	candidatesCmd.Flags().Bool("yaml", false, "output results as YAML")

	rootCmd.AddCommand(candidatesCmd)
}
