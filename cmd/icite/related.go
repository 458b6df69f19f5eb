// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/icite/internal/pipeline"
)

var relatedCmd = &cobra.Command{
	Use:   "related <query>",
	Short: "Expand seed papers through the citation graph and rank the result",
	Long: `Related follows citations from the seed papers in both directions:
backward to the papers they build on, then forward to the papers that build
on them. The reached papers are ranked by similarity to the query.

Without --seed, the seeds are taken from the initial similarity search.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRelated,
}

func runRelated(cmd *cobra.Command, args []string) error {
	seeds, _ := cmd.Flags().GetStringSlice("seed")
	maxPapers, _ := cmd.Flags().GetInt("max-papers")
	jsonOut, _ := cmd.Flags().GetBool("json")
	yamlOut, _ := cmd.Flags().GetBool("yaml")
	format, err := formatFromFlags(jsonOut, yamlOut)
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if len(seeds) == 0 {
		papers, err := a.orch.FindInitialCandidates(cmd.Context(), query, 0)
		if err != nil {
			return err
		}
		for _, p := range papers {
			seeds = append(seeds, p.Identifier)
		}
		fmt.Fprintf(os.Stderr, "Seeds: %s\n", strings.Join(seeds, ", "))
	}

	related, err := a.orch.FindRelatedPapers(cmd.Context(), query, seeds, pipeline.WithMaxPapers(maxPapers))
	if err != nil {
		return err
	}

	if format != formatTable {
		return encode(os.Stdout, format, related)
	}
	printPapers(os.Stdout, related.Papers)
	printEdges(os.Stdout, related.UsedEdges)
	if len(related.Complement) > 0 {
		fmt.Println("\nOutside the citation neighbourhood:")
		printPapers(os.Stdout, related.Complement)
	}
	return nil
}

func init() {
	relatedCmd.Flags().StringSlice("seed", nil, "seed paper identifier (repeatable)")
	relatedCmd.Flags().Int("max-papers", 0, "cap on seeds plus expanded papers (default pipeline.expansion.max_papers)")
	relatedCmd.Flags().Bool("json", false, "output results as JSON")
	relatedCmd.Flags().Bool("yaml", false, "output results as YAML")

	rootCmd.AddCommand(relatedCmd)
}
