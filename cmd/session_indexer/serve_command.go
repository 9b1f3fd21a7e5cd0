package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/session-indexer/internal/metrics"
	"github.com/jonathan/session-indexer/internal/reindex"
	"github.com/jonathan/session-indexer/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  "Serves classification, recommendation, critical-session and reindex endpoints over HTTP, plus /health and Prometheus /metrics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				if port < 1 || port > 65535 {
					return fmt.Errorf("invalid --port %d", port)
				}
				cfg.Server.Port = port
			}

			e, err := ctx.enricher()
			if err != nil {
				return err
			}
			st, err := ctx.openStore(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			svc, err := ctx.recommender(st, e)
			if err != nil {
				return err
			}

			log := ctx.logger()
			defer log.Sync()

			srv := server.New(server.Config{
				Host:               cfg.Server.Host,
				Port:               cfg.Server.Port,
				CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
				RateLimit:          cfg.Server.RateLimit,
			}, server.Deps{
				Store:       st,
				Enricher:    e,
				Recommender: svc,
				Reindexer:   reindex.New(st, e, log, cfg.Reindex),
				Metrics:     metrics.New(),
				Log:         log,
			})
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Interface to listen on (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	return cmd
}
