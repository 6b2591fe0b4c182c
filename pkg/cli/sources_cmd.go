package cli

import (
	"os"

	"github.com/spf13/cobra"

	"tidytable/internal/render"
	"tidytable/internal/report"
	"tidytable/internal/table"
)

func newSourcesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the built-in dataset descriptors",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			runner, err := report.NewRunner(opts.cfg, opts.offline, opts.logger)
			if err != nil {
				return err
			}
			schema := table.MustSchema(
				table.Column{Name: "name", Kind: table.KindString},
				table.Column{Name: "columns", Kind: table.KindInt},
				table.Column{Name: "wide", Kind: table.KindString},
				table.Column{Name: "url", Kind: table.KindString},
			)
			t := table.New(schema)
			for _, src := range runner.Sources() {
				wide := "no"
				if src.Wide != nil {
					wide = "yes"
				}
				if err := t.AppendRow(
					table.String(src.Name),
					table.Int(int64(len(src.Columns))),
					table.String(wide),
					table.String(src.URL),
				); err != nil {
					return err
				}
			}
			if opts.output == "csv" {
				return render.CSV(os.Stdout, t)
			}
			return render.Text(os.Stdout, t, render.TerminalWidth())
		},
	}
}
