package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/session-indexer/internal/observability"
	"github.com/jonathan/session-indexer/internal/types"
	embedded "github.com/jonathan/session-indexer/schemas"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var (
		inputPath string
		save      bool
		raw       types.RawRecord
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Parse, classify and tag session records",
		Long: "Enriches one raw record given by flags, or every record in a JSON file holding a single " +
			"raw record or an array of them. With --save the enriched records are written to the configured store.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var inputs []types.RawRecord
			if inputPath != "" {
				loaded, err := loadRawRecords(inputPath)
				if err != nil {
					return err
				}
				inputs = loaded
			} else {
				if raw.ExternalID == "" {
					return fmt.Errorf("either --input or --id is required")
				}
				inputs = []types.RawRecord{raw}
			}

			e, err := ctx.enricher()
			if err != nil {
				return err
			}

			out := make([]types.SessionRecord, 0, len(inputs))
			for _, in := range inputs {
				rec, err := e.ClassifyAndEnrich(in)
				if err != nil {
					return err
				}
				checkOutput(cmd, embedded.SessionRecord, rec)
				out = append(out, rec)
			}

			if save {
				st, err := ctx.openStore(cmd.Context(), e)
				if err != nil {
					return err
				}
				defer func() { _ = st.Close() }()
				if err := st.CommitBatch(cmd.Context(), out); err != nil {
					return fmt.Errorf("failed to save records: %w", err)
				}
				ctx.logger().Info("records saved", "count", len(out))
			}

			if ctx.jsonOutput() {
				if len(out) == 1 && inputPath == "" {
					return writeJSON(cmd, out[0])
				}
				return writeJSON(cmd, out)
			}
			printer := observability.NewPrinter(cmd.OutOrStdout())
			for i := range out {
				printer.PrintSessionRecord(&out[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file with one raw record or an array of them")
	cmd.Flags().BoolVar(&save, "save", false, "Write enriched records to the configured store")
	cmd.Flags().StringVar(&raw.ExternalID, "id", "", "External id of a single record")
	cmd.Flags().StringVar(&raw.Filename, "filename", "", "Raw filename")
	cmd.Flags().StringVar(&raw.FolderPath, "folder", "", "Parent folder path")
	cmd.Flags().StringVar(&raw.Title, "title", "", "Free-text title")
	cmd.Flags().StringVar(&raw.Description, "description", "", "Free-text description")
	cmd.Flags().StringVar(&raw.TypeHint, "type-hint", "", "Session type label supplied by the source")
	cmd.MarkFlagsMutuallyExclusive("input", "id")

	return cmd
}

// loadRawRecords reads a single raw record or an array of them.
func loadRawRecords(path string) ([]types.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var recs []types.RawRecord
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("failed to parse input file %s: %w", path, err)
		}
		return recs, nil
	}

	var rec types.RawRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse input file %s: %w", path, err)
	}
	return []types.RawRecord{rec}, nil
}
