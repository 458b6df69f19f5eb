// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var matchCmd = &cobra.Command{
	Use:   "match <substring>",
	Short: "List papers whose title contains a substring",
	Long: `Match searches paper titles for a case-insensitive substring. It reads
the store directly and needs no embedding provider.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		papers, err := st.MatchTitles(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return encode(os.Stdout, formatJSON, papers)
		}
		printPapers(os.Stdout, papers)
		return nil
	},
}

func init() {
	matchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(matchCmd)
}
