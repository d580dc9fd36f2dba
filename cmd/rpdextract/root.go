package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/rpdextract"
	"github.com/brunobiangulo/rpdextract/logging"
)

// cli holds the persistent flag values shared by every subcommand.
type cli struct {
	cfgFile      string
	outputFormat string
	logLevel     string
	logFile      string
	noLLM        bool

	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "rpdextract",
		Short: "Extract structured curriculum data from RPD documents",
		Long: `rpdextract reads working curriculum programmes (RPD) in PDF, DOCX,
XLSX or plain text and extracts the subject description, lecture themes,
laboratory works and literature references.

Extraction uses a language model when one is configured and falls back
to pattern matching otherwise.`,
		SilenceUsage: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logCloser != nil {
				c.logCloser.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(
		&c.cfgFile, "config", "", "config file (default: ./rpdextract.yaml or ~/.rpdextract/rpdextract.yaml)",
	)
	root.PersistentFlags().StringVarP(
		&c.outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&c.logFile, "log-file", "", "also write logs to this file (rotated)")

	root.AddCommand(
		newExtractCmd(c),
		newValidateCmd(c),
		newFormatsCmd(c),
		newStatsCmd(c),
	)
	return root
}

// processor loads configuration, applies flag overrides and opens a
// Processor. Logs go to the command's stderr.
func (c *cli) processor(cmd *cobra.Command) (rpdextract.Processor, rpdextract.Config, error) {
	cfg, err := rpdextract.LoadConfig(c.cfgFile)
	if err != nil {
		return nil, cfg, err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFile != "" {
		cfg.LogFile = c.logFile
	}
	if c.noLLM {
		cfg.LLM.Provider = rpdextract.ProviderNone
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, cfg, err
	}
	c.logCloser = closer
	slog.SetDefault(logger)

	proc, err := rpdextract.New(cfg, rpdextract.WithLogger(logger))
	if err != nil {
		return nil, cfg, fmt.Errorf("creating processor: %w", err)
	}
	return proc, cfg, nil
}
