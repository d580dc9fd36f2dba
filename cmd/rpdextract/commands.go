package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/rpdextract"
	"github.com/brunobiangulo/rpdextract/export"
)

func newExtractCmd(c *cli) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "extract FILE...",
		Short: "Extract curriculum data from one or more documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, _, err := c.processor(cmd)
			if err != nil {
				return err
			}
			defer proc.Close()

			results := proc.ProcessFiles(cmd.Context(), args)
			summary := rpdextract.Summarize(results)

			if xlsxPath != "" {
				if err := writeReport(xlsxPath, results); err != nil {
					return err
				}
			}

			if err := writeOutput(cmd.OutOrStdout(), c.outputFormat, map[string]any{
				"results": results,
				"summary": summary,
			}); err != nil {
				return err
			}
			if summary.FailedFiles > 0 {
				return fmt.Errorf("%d of %d files failed", summary.FailedFiles, summary.TotalFiles)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write an XLSX report to this path")
	cmd.Flags().BoolVar(&c.noLLM, "no-llm", false, "skip the language model and use pattern extraction only")
	return cmd
}

func writeReport(path string, results []*rpdextract.ProcessResult) error {
	rows := make([]export.Row, 0, len(results))
	for _, res := range results {
		rows = append(rows, export.Row{
			FileName:     filepath.Base(res.FilePath),
			Result:       res.Result,
			Completeness: res.CompletenessScore,
			Warnings:     res.Warnings,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := export.WriteXLSX(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Parse a document and report its structure without extracting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, _, err := c.processor(cmd)
			if err != nil {
				return err
			}
			defer proc.Close()

			report, err := proc.ValidateStructure(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), c.outputFormat, report)
		},
	}
}

func newFormatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the accepted document formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, cfg, err := c.processor(cmd)
			if err != nil {
				return err
			}
			defer proc.Close()

			return writeOutput(cmd.OutOrStdout(), c.outputFormat, map[string]any{
				"supported_formats": proc.SupportedFormats(),
				"max_file_size_mb":  cfg.MaxFileSizeMB,
			})
		},
	}
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show processing statistics from the document store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, _, err := c.processor(cmd)
			if err != nil {
				return err
			}
			defer proc.Close()

			stats, err := proc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), c.outputFormat, stats)
		},
	}
}
