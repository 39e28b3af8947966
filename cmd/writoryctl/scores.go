package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/digkill/writory/internal/repository"
	"github.com/digkill/writory/internal/service"
)

func importScoresCmd() *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "import-scores",
		Short: "Apply a judges' score sheet (CSV) to recorded submissions",
		Long: `Apply a judges' score sheet to recorded submissions.

Rows match by the id column when present, otherwise by email and poem title.
Rows that match nothing are listed and change nothing.

Examples:
  writoryctl import-scores --file scores.csv
  writoryctl import-scores --file export.csv --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open score sheet: %w", err)
			}
			defer f.Close()

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			svc := service.NewReconcileService(repository.NewSubmissionRepository(e.db))
			res, err := svc.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			e.log.Info("score sheet imported", "file", file, "updated", res.SuccessCount, "errors", res.ErrorCount)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintf(out, "rows: %d  updated: %d  errors: %d\n", res.Total, res.SuccessCount, res.ErrorCount)
			for _, re := range res.Errors {
				fmt.Fprintf(out, "  row %d (%s / %s): %s\n", re.Row, re.Email, re.PoemTitle, re.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the CSV score sheet")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func exportScoresCmd() *cobra.Command {
	var (
		file  string
		month string
	)
	cmd := &cobra.Command{
		Use:   "export-scores",
		Short: "Write submissions as a CSV score sheet that import-scores accepts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			if file != "" {
				f, err := os.Create(file)
				if err != nil {
					return fmt.Errorf("create %s: %w", file, err)
				}
				defer f.Close()
				out = f
			}
			svc := service.NewReconcileService(repository.NewSubmissionRepository(e.db))
			return svc.Export(cmd.Context(), out, repository.SubmissionFilter{Month: month})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "output path (stdout when empty)")
	cmd.Flags().StringVar(&month, "month", "", "contest month, e.g. 2026-10")
	return cmd
}
