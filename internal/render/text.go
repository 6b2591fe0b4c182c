// Package render writes pipeline output tables as plain text or CSV.
// It is the whole of the presentation layer: charts and maps stay out of
// scope, the contract upstream is just "a Table with a named schema".
package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"tidytable/internal/table"
)

// maxCellWidth caps any single column so one long text field cannot
// swallow the whole terminal.
const maxCellWidth = 40

// Text writes the table as an aligned plain-text listing. maxWidth
// truncates cells so the widest row fits; pass 0 for no limit.
func Text(w io.Writer, t *table.Table, maxWidth int) error {
	schema := t.Schema()
	names := schema.Names()

	widths := make([]int, len(names))
	for i, name := range names {
		widths[i] = runewidth.StringWidth(name)
	}
	for ri := 0; ri < t.NumRows(); ri++ {
		for ci, v := range t.Row(ri) {
			if w := runewidth.StringWidth(cell(v)); w > widths[ci] {
				widths[ci] = w
			}
		}
	}
	for i := range widths {
		if widths[i] > maxCellWidth {
			widths[i] = maxCellWidth
		}
	}

	writeRow := func(cells []string) error {
		parts := make([]string, len(cells))
		for i, c := range cells {
			c = runewidth.Truncate(c, widths[i], "…")
			parts[i] = runewidth.FillRight(c, widths[i])
		}
		line := strings.TrimRight(strings.Join(parts, "  "), " ")
		if maxWidth > 0 {
			line = runewidth.Truncate(line, maxWidth, "…")
		}
		_, err := fmt.Fprintln(w, line)
		return err
	}

	if err := writeRow(names); err != nil {
		return err
	}
	sep := make([]string, len(names))
	for i := range sep {
		sep[i] = strings.Repeat("-", widths[i])
	}
	if err := writeRow(sep); err != nil {
		return err
	}
	for ri := 0; ri < t.NumRows(); ri++ {
		cells := make([]string, len(names))
		for ci, v := range t.Row(ri) {
			cells[ci] = cell(v)
		}
		if err := writeRow(cells); err != nil {
			return err
		}
	}
	return nil
}

// CSV writes the table with a header row, all cells rendered through
// Value.Display (missing values as empty fields).
func CSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Schema().Names()); err != nil {
		return err
	}
	for ri := 0; ri < t.NumRows(); ri++ {
		row := t.Row(ri)
		rec := make([]string, len(row))
		for ci, v := range row {
			rec[ci] = v.Display()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// TerminalWidth returns the width of the attached terminal, or 0 when
// stdout is not a terminal.
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

func cell(v table.Value) string {
	if v.Kind() == table.KindFloat {
		if f, ok := v.Float64(); ok {
			// Two decimals reads better for rates and ratios.
			if f != float64(int64(f)) {
				return fmt.Sprintf("%.2f", f)
			}
		}
	}
	return v.Display()
}
