package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/session-indexer/internal/observability"
	embedded "github.com/jonathan/session-indexer/schemas"
)

func newCriticalCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "critical <student>",
		Short: "List a student's onboarding-critical sessions",
		Long:  "Groups a student's sessions into game plan, 168-hour, execution examples, parent and milestone sessions, newest first, and reports which required session types are missing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			out, err := svc.FindCriticalSessionsForStudent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			checkOutput(cmd, embedded.CriticalSessions, out)

			if ctx.jsonOutput() {
				return writeJSON(cmd, out)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintCriticalSessions(out)
			return nil
		},
	}
}
