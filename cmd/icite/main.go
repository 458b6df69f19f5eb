// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the icite CLI: citation-aware paper
// retrieval and question answering over a local corpus.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/icite/internal/pipeline"
	"github.com/pdiddy/icite/internal/secrets"
	"github.com/pdiddy/icite/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// exitNoResults is the exit status when the initial search finds nothing.
const exitNoResults = 2

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// rootCmd is the base command for the icite CLI.
var rootCmd = &cobra.Command{
	Use:   "icite",
	Short: "Citation-aware paper retrieval and question answering",
	Long: `icite finds papers relevant to a question in three stages: a semantic
similarity search picks seed papers, the citation graph is expanded from the
seeds in both directions, and the expanded set is re-ranked by similarity.

Use "corpus import" to load papers and citations, then "candidates",
"related" or "ask" to query them. "serve" exposes the same operations over
HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./icite.yaml or ~/.config/icite/icite.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("icite")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "icite"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("ICITE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	readErr := viper.ReadInConfig()

	cfg, err := loadConfig(viper.GetViper())
	if err == nil {
		slog.SetDefault(newLogger(cfg.Log, os.Stderr))
	}
	if readErr == nil {
		slog.Info("using config file", "path", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from log.level and log.format.
func newLogger(cfg types.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		if errors.Is(err, pipeline.ErrNoResults) {
			os.Exit(exitNoResults)
		}
		os.Exit(1)
	}
}
