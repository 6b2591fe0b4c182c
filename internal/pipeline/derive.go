package pipeline

import (
	"tidytable/internal/domain"
	"tidytable/internal/table"
)

// Derive appends a computed column. fn receives the input table and a row
// index and returns the new cell, which must match the declared kind
// (missing markers included). The classic "mutate" of declarative table
// pipelines.
func Derive(t *table.Table, name string, kind table.Kind, fn func(t *table.Table, row int) table.Value) (*table.Table, error) {
	if _, dup := t.Schema().Lookup(name); dup {
		return nil, domain.ErrValidation("derive: column %q already exists", name)
	}
	decls := append(t.Schema().Columns(), table.Column{Name: name, Kind: kind})
	outSchema, err := table.NewSchema(decls...)
	if err != nil {
		return nil, err
	}
	out := table.New(outSchema)
	for ri := 0; ri < t.NumRows(); ri++ {
		vals := make([]table.Value, 0, outSchema.Len())
		vals = append(vals, t.Row(ri)...)
		vals = append(vals, fn(t, ri))
		if err := out.AppendRow(vals...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Head returns the first n rows (or all of them when the table is
// shorter), preserving order.
func Head(t *table.Table, n int) *table.Table {
	kept := 0
	return t.Filter(func(int) bool {
		if kept >= n {
			return false
		}
		kept++
		return true
	})
}
