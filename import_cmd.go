package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/camden-git/galacticcensus/handlers"
	"github.com/camden-git/galacticcensus/importer"
	"github.com/spf13/cobra"
)

type importOutput struct {
	*importer.Result
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func newImportCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import people from a CSV file into the configured database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the JSON result
			logOutput := ""
			if out := os.Getenv("LOG_OUTPUT"); out == "" || out == "stdout" {
				logOutput = "stderr"
			}
			a, err := bootstrap(logOutput)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			result, run, err := a.imports.Import(ctx, filepath.Base(path), f)
			if err != nil {
				return fmt.Errorf("import failed (run %s): %w", run.RunID, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(importOutput{
				Result:  result,
				RunID:   run.RunID,
				Status:  run.Status,
				Message: handlers.ImportMessage(result),
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the import after this long (0 disables)")
	return cmd
}
