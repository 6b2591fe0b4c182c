package table

import "tidytable/internal/domain"

// Column declares one named, typed column. Required marks columns whose
// missing values cause row drops during normalization.
type Column struct {
	Name     string
	Kind     Kind
	Required bool
}

// Schema is an ordered list of column declarations with O(1) name lookup.
type Schema struct {
	cols  []Column
	index map[string]int
}

// NewSchema builds a schema from the given columns. Duplicate column
// names are a validation error.
func NewSchema(cols ...Column) (Schema, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return Schema{}, domain.ErrValidation("column %d has an empty name", i)
		}
		if _, dup := index[c.Name]; dup {
			return Schema{}, domain.ErrValidation("duplicate column %q", c.Name)
		}
		index[c.Name] = i
	}
	return Schema{cols: append([]Column(nil), cols...), index: index}, nil
}

// MustSchema is NewSchema for statically known column lists; it panics on
// the errors NewSchema would return.
func MustSchema(cols ...Column) Schema {
	s, err := NewSchema(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of declared columns.
func (s Schema) Len() int { return len(s.cols) }

// Columns returns the declared columns in order.
func (s Schema) Columns() []Column { return append([]Column(nil), s.cols...) }

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.cols))
	for i, c := range s.cols {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the positional index of a column by name.
func (s Schema) Lookup(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Col returns the declaration at position i.
func (s Schema) Col(i int) Column { return s.cols[i] }
