package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tidytable/internal/render"
	"tidytable/internal/report"
)

func newReportCmd(opts *options, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := report.NewRunner(opts.cfg, opts.offline, opts.logger)
			if err != nil {
				return err
			}
			outputs, err := runner.Run(cmd.Context(), name)
			if err != nil {
				return err
			}
			return printOutputs(opts, outputs)
		},
	}
}

func printOutputs(opts *options, outputs []report.Output) error {
	width := render.TerminalWidth()
	for _, out := range outputs {
		if opts.output == "csv" {
			fmt.Printf("# %s\n", out.Name)
			if err := render.CSV(os.Stdout, out.Table); err != nil {
				return fmt.Errorf("write %s: %w", out.Name, err)
			}
			fmt.Println()
			continue
		}
		fmt.Printf("%s (%s)\n\n", out.Title, out.Chart)
		if err := render.Text(os.Stdout, out.Table, width); err != nil {
			return fmt.Errorf("write %s: %w", out.Name, err)
		}
		fmt.Println()
	}
	return nil
}
