package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/session-indexer/internal/schemas"
	embedded "github.com/jonathan/session-indexer/schemas"
)

func newValidateCommand() *cobra.Command {
	var schemaName string

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate JSON documents against the embedded schemas",
		Long: "Checks previously written JSON output (session records, recommendation sets, reindex reports, " +
			"critical sessions) against its schema. Exits non-zero if any file fails.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ok := embedded.Lookup(schemaName)
			if !ok {
				return fmt.Errorf("unknown schema %q (expected one of: %s)", schemaName, strings.Join(embedded.All, ", "))
			}

			failed := 0
			for _, path := range args {
				if err := schemas.ValidateFile(name, path); err != nil {
					failed++
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaName, "schema", "s", "session_record", "Schema to validate against")
	return cmd
}
