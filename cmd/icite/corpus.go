// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/icite/internal/embedding"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Load and inspect the paper corpus",
	Long: `Corpus manages the local SQLite store: import papers and citation edges,
compute missing embeddings, and report corpus statistics.`,
}

var corpusImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import papers and citations into the store",
	Long: `Import reads papers from a YAML or JSON file (a list of records with doi,
title, abstract, date and optional embedding) and citation edges from a CSV
file with a source_paper,cited_by header. Re-importing updates existing
papers and keeps their embeddings.

With --embed, papers without an embedding are embedded afterwards using the
configured provider.`,
	RunE: runCorpusImport,
}

func runCorpusImport(cmd *cobra.Command, args []string) error {
	papersPath, _ := cmd.Flags().GetString("papers")
	citationsPath, _ := cmd.Flags().GetString("citations")
	embed, _ := cmd.Flags().GetBool("embed")
	if papersPath == "" && citationsPath == "" && !embed {
		return fmt.Errorf("nothing to do: provide --papers, --citations or --embed")
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	applySecrets(&cfg, loadedSecrets)

	st, err := openSQLite(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	if papersPath != "" || citationsPath != "" {
		if _, err := st.ImportFiles(cmd.Context(), os.Stdout, papersPath, citationsPath); err != nil {
			return err
		}
	}

	if embed {
		emb, err := embedding.New(cfg.Embedding)
		if err != nil {
			return err
		}
		summary, err := st.EmbedMissing(cmd.Context(), os.Stdout, emb)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d paper(s) failed embedding", summary.Failed)
		}
	}
	return nil
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		st, err := openSQLite(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Store:       %s\n", cfg.Store.Path)
		fmt.Printf("Papers:      %d\n", stats.Papers)
		fmt.Printf("Embedded:    %d\n", stats.Embedded)
		fmt.Printf("Citations:   %d\n", stats.Citations)
		if stats.Citations > 0 {
			fmt.Printf("Most cited:  %s (%d)\n", stats.MostCited.Paper, stats.MostCited.Count)
			fmt.Printf("Most citing: %s (%d)\n", stats.MostCiting.Paper, stats.MostCiting.Count)
		}
		return nil
	},
}

func init() {
	corpusImportCmd.Flags().String("papers", "", "papers file (YAML or JSON)")
	corpusImportCmd.Flags().String("citations", "", "citations file (CSV with source_paper,cited_by header)")
	corpusImportCmd.Flags().Bool("embed", false, "embed papers that have no embedding")

	corpusCmd.AddCommand(corpusImportCmd)
	corpusCmd.AddCommand(corpusStatsCmd)
	rootCmd.AddCommand(corpusCmd)
}
