package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/session-indexer/internal/observability"
	"github.com/jonathan/session-indexer/internal/reindex"
	embedded "github.com/jonathan/session-indexer/schemas"
)

func newReindexCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-run enrichment over every stored session",
		Long: "Backs up the stored corpus, re-derives every enriched field with the current rules and " +
			"commits changed records in atomic batches. --dry-run computes the report without backing up or writing.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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

			opts := reindex.Options{DryRun: dryRun}
			if !ctx.jsonOutput() {
				errOut := cmd.ErrOrStderr()
				opts.OnProgress = func(ev reindex.ProgressEvent) {
					_, _ = fmt.Fprintf(errOut, "batch %d/%d: %d processed, %d updated, %d errors\n",
						ev.Batch+1, ev.Batches, ev.Processed, ev.Updated, ev.Errors)
				}
			}

			report, err := reindex.New(st, e, log, cfg.Reindex).ReindexAll(cmd.Context(), opts)
			if err != nil {
				return err
			}
			checkOutput(cmd, embedded.ReindexReport, report)

			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintReindexReport(report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the report without writing")
	return cmd
}
