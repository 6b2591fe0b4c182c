// Package cli implements the tidytable command line: the built-in
// reports, the source listing, and version output.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tidytable/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// options carries the resolved flag and config state shared by all
// subcommands, populated by the root PersistentPreRunE.
type options struct {
	output   string
	offline  bool
	quiet    bool
	cacheDir string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "tidytable",
		Short:         "Tidy-data pipeline with built-in EDA reports",
		Long:          "Batch tidy-data pipeline (load, normalize, reshape, aggregate, rank) with two built-in exploratory analyses: NYPD shooting incidents and the JHU COVID-19 time series.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cache-dir") {
				cfg.CacheDir = opts.cacheDir
			}
			if opts.output != "table" && opts.output != "csv" {
				return fmt.Errorf("unsupported output format %q: use 'table' or 'csv'", opts.output)
			}

			level := cfg.SlogLevel()
			if opts.quiet {
				level = slog.LevelError
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			for _, w := range cfg.Warnings {
				logger.Warn(w)
			}

			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, csv)")
	rootCmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Use cached downloads only, never the network")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress logging")
	rootCmd.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "", "Directory for cached source downloads")

	rootCmd.AddCommand(newReportCmd(opts, "shootings", "NYPD shooting-incident analysis"))
	rootCmd.AddCommand(newReportCmd(opts, "covid", "COVID-19 time-series analysis"))
	rootCmd.AddCommand(newSourcesCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
