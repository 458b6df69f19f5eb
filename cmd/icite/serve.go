// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/icite/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query pipeline over HTTP",
	Long: `Serve exposes candidates, related, ask and title match as a JSON API,
plus /healthz and Prometheus metrics on /metrics. Each request is bounded by
pipeline.timeout. Without a chat API key the server still starts and
/v1/ask answers 503.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{chatOptional: true, archive: true})
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(a.orch,
			server.WithLogger(slog.Default()),
			server.WithTimeout(a.orch.Config().Timeout),
			server.WithGatherer(prometheus.DefaultGatherer),
		)
		return srv.Run(cmd.Context(), a.cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default server.addr)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
