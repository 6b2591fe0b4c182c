package table

import (
	"time"

	"tidytable/internal/domain"
)

// Table is an ordered sequence of rows sharing one schema. Every row
// holds a value (or explicit missing marker) for every declared column.
// Construction is append-only; once a table is handed to the next stage
// it is treated as read-only.
type Table struct {
	schema Schema
	rows   [][]Value
}

// New creates an empty table over the given schema.
func New(schema Schema) *Table {
	return &Table{schema: schema}
}

// Schema returns the table's schema.
func (t *Table) Schema() Schema { return t.schema }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// AppendRow adds a row. The value count must match the schema and each
// value's kind must match its column declaration (missing markers of the
// right kind included).
func (t *Table) AppendRow(vals ...Value) error {
	if len(vals) != t.schema.Len() {
		return domain.ErrValidation("row has %d values, schema declares %d columns", len(vals), t.schema.Len())
	}
	for i, v := range vals {
		if v.Kind() != t.schema.Col(i).Kind {
			return domain.ErrValidation("column %q expects %s, got %s",
				t.schema.Col(i).Name, t.schema.Col(i).Kind, v.Kind())
		}
	}
	t.rows = append(t.rows, append([]Value(nil), vals...))
	return nil
}

// Row returns the values of row i in column order. Callers must not
// mutate the returned slice.
func (t *Table) Row(i int) []Value { return t.rows[i] }

// Value returns the cell at (row, column name). ok is false when the
// column is not declared.
func (t *Table) Value(row int, col string) (Value, bool) {
	i, ok := t.schema.Lookup(col)
	if !ok {
		return Value{}, false
	}
	return t.rows[row][i], true
}

// Float returns the numeric cell at (row, col), converting ints.
// ok is false for missing values, non-numeric columns, and unknown columns.
func (t *Table) Float(row int, col string) (float64, bool) {
	v, ok := t.Value(row, col)
	if !ok {
		return 0, false
	}
	return v.Float64()
}

// Str returns the string cell at (row, col).
func (t *Table) Str(row int, col string) (string, bool) {
	v, ok := t.Value(row, col)
	if !ok {
		return "", false
	}
	return v.Str()
}

// Date returns the date cell at (row, col).
func (t *Table) Date(row int, col string) (time.Time, bool) {
	v, ok := t.Value(row, col)
	if !ok {
		return time.Time{}, false
	}
	return v.Time()
}

// Select projects the table onto the named columns, in the given order.
func (t *Table) Select(cols ...string) (*Table, error) {
	decls := make([]Column, len(cols))
	idx := make([]int, len(cols))
	for i, name := range cols {
		j, ok := t.schema.Lookup(name)
		if !ok {
			return nil, domain.ErrSchemaMismatch("select: column %q not in schema", name)
		}
		decls[i] = t.schema.Col(j)
		idx[i] = j
	}
	schema, err := NewSchema(decls...)
	if err != nil {
		return nil, err
	}
	out := New(schema)
	for _, row := range t.rows {
		vals := make([]Value, len(idx))
		for i, j := range idx {
			vals[i] = row[j]
		}
		out.rows = append(out.rows, vals)
	}
	return out, nil
}

// Filter returns a new table containing the rows for which keep returns
// true, preserving input order.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := New(t.schema)
	for i, row := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// AppendFrom copies all rows of src, which must share the identical
// schema layout (same names and kinds in the same order).
func (t *Table) AppendFrom(src *Table) error {
	if src.schema.Len() != t.schema.Len() {
		return domain.ErrSchemaMismatch("append: schemas differ in width")
	}
	for i := 0; i < t.schema.Len(); i++ {
		a, b := t.schema.Col(i), src.schema.Col(i)
		if a.Name != b.Name || a.Kind != b.Kind {
			return domain.ErrSchemaMismatch("append: column %d is %s %s, source has %s %s",
				i, a.Name, a.Kind, b.Name, b.Kind)
		}
	}
	t.rows = append(t.rows, src.rows...)
	return nil
}
