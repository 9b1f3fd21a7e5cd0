package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/session-indexer/internal/archive"
	"github.com/jonathan/session-indexer/internal/observability"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		dir   string
		index archive.HTTPIndex
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index session files from a local folder or an HTTP directory listing",
		Long: "Lists video, audio and document files from the archive, enriches each one and writes " +
			"records that are new or whose metadata changed. Re-running over the same archive is a no-op.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var src archive.Source
			if dir != "" {
				src = archive.LocalDir{Root: dir}
			} else {
				src = index
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

			log := ctx.logger()
			defer log.Sync()

			report, err := archive.NewIngester(src, e, st, log).Ingest(cmd.Context())
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintIngestReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Local archive root")
	cmd.Flags().StringVar(&index.BaseURL, "url", "", "Base URL of an nginx or Apache directory listing")
	cmd.Flags().IntVar(&index.MaxDepth, "max-depth", archive.DefaultMaxDepth, "Folder recursion limit for --url")
	cmd.Flags().Float64Var(&index.RequestsPerSecond, "rps", archive.DefaultRequestsPerSecond, "Listing requests per second for --url; negative disables pacing")
	cmd.MarkFlagsOneRequired("dir", "url")
	cmd.MarkFlagsMutuallyExclusive("dir", "url")

	return cmd
}
