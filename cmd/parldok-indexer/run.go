package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Sternrassler/parldok-indexer/pkg/indexer"
	"github.com/Sternrassler/parldok-indexer/pkg/parldok"
	"github.com/Sternrassler/parldok-indexer/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Output formats of the run command.
const (
	outputJSON = "json"
	outputNone = "none"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var output string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run [--output json|none] [--dry-run]",
		Short: "Runs the indexer once and persists the records.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputJSON && output != outputNone {
				return fmt.Errorf("unknown output format %q", output)
			}

			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			a, err := newApp(cfg, service.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.Trigger(cmd.Context(), "")
			if err != nil {
				if errors.Is(err, indexer.ErrNoData) {
					return fmt.Errorf("indexer: %w", err)
				}
				return err
			}

			if output == outputJSON {
				if err := writeRecords(cmd.OutOrStdout(), result.Records); err != nil {
					return err
				}
			}

			log.Info().
				Int("records", len(result.Records)).
				Bool("dry_run", dryRun).
				Msg("Run finished")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Record output on stdout: json (one record per line) or none.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not persist records.")
	return cmd
}

// writeRecords writes one JSON object per line.
func writeRecords(w io.Writer, records []parldok.Record) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return nil
}
