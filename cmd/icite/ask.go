// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the papers the pipeline retrieves",
	Long: `Ask runs the full pipeline: initial search, citation expansion and
re-ranking. The leading papers are fetched in full from arXiv where
possible and passed with their abstracts to the chat model, which answers
citing papers by identifier.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	noFullText, _ := cmd.Flags().GetBool("abstracts-only")
	jsonOut, _ := cmd.Flags().GetBool("json")
	yamlOut, _ := cmd.Flags().GetBool("yaml")
	format, err := formatFromFlags(jsonOut, yamlOut)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{chat: true, archive: !noFullText})
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.orch.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	if format != formatTable {
		return encode(os.Stdout, format, answer)
	}
	fmt.Println(answer.Text)
	fmt.Printf("\nSources (%d, %d with full text):\n", len(answer.Sources), answer.FullTextCount)
	for _, p := range answer.Sources {
		marker := " "
		if p.Content != "" {
			marker = "*"
		}
		fmt.Printf(" %s [%s] %s\n", marker, p.Identifier, p.Title)
	}
	return nil
}

func init() {
	askCmd.Flags().Bool("abstracts-only", false, "skip full-text retrieval")
	askCmd.Flags().Bool("json", false, "output the answer as JSON")
	askCmd.Flags().Bool("yaml", false, "output the answer as YAML")

	rootCmd.AddCommand(askCmd)
}
