package pipeline

import (
	"strings"
	"time"

	"tidytable/internal/domain"
	"tidytable/internal/table"
)

// DatePattern describes how observation-column names encode a calendar
// date: an optional non-numeric prefix to strip (R-style exports prefix
// numeric headers with "X") followed by a date in the reference layout.
type DatePattern struct {
	Prefix string
	Layout string
}

// Parse attempts to read a calendar date out of a column name. ok is
// false when the name does not match the pattern.
func (p DatePattern) Parse(name string) (time.Time, bool) {
	if p.Prefix != "" {
		trimmed := strings.TrimPrefix(name, p.Prefix)
		if trimmed == name {
			return time.Time{}, false
		}
		name = trimmed
	}
	t, err := time.Parse(p.Layout, name)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Reshape converts a wide table — N identity columns plus M date-encoded
// observation columns — into long form: (identity columns…, dateCol,
// valueCol). Columns whose names do not match the date pattern are
// ignored. Duplicate (identity, date) observations are summed, not
// dropped, and missing observation cells contribute zero. Row order in
// the result carries no meaning; it is first-seen order of each
// (identity, date) pair.
func Reshape(t *table.Table, idCols []string, pat DatePattern, dateCol, valueCol string) (*table.Table, error) {
	schema := t.Schema()

	idIdx := make([]int, len(idCols))
	isID := make(map[int]bool, len(idCols))
	decls := make([]table.Column, 0, len(idCols)+2)
	for i, name := range idCols {
		j, ok := schema.Lookup(name)
		if !ok {
			return nil, domain.ErrSchemaMismatch("reshape: identity column %q not in schema", name)
		}
		idIdx[i] = j
		isID[j] = true
		decl := schema.Col(j)
		decl.Required = false
		decls = append(decls, decl)
	}
	decls = append(decls,
		table.Column{Name: dateCol, Kind: table.KindDate},
		table.Column{Name: valueCol, Kind: table.KindFloat},
	)
	outSchema, err := table.NewSchema(decls...)
	if err != nil {
		return nil, err
	}

	// Observation columns: non-identity columns whose names parse as dates.
	type obsCol struct {
		idx  int
		date time.Time
	}
	var obs []obsCol
	for i := 0; i < schema.Len(); i++ {
		if isID[i] {
			continue
		}
		if d, ok := pat.Parse(schema.Col(i).Name); ok {
			obs = append(obs, obsCol{idx: i, date: d})
		}
	}
	if len(obs) == 0 {
		return nil, domain.ErrSchemaMismatch("reshape: no observation columns match the date pattern")
	}

	// Accumulate sums per (identity, date) pair in first-seen order, then
	// emit the long rows in one pass.
	type longRow struct {
		ids  []table.Value
		date time.Time
		sum  float64
	}
	var order []*longRow
	seen := make(map[string]*longRow)
	for ri := 0; ri < t.NumRows(); ri++ {
		row := t.Row(ri)
		ids := make([]table.Value, len(idIdx))
		for i, j := range idIdx {
			ids[i] = row[j]
		}
		idKey := table.CompositeKey(ids)
		for _, oc := range obs {
			val := 0.0
			if f, ok := row[oc.idx].Float64(); ok {
				val = f
			}
			key := idKey + "\x1e" + oc.date.Format("2006-01-02")
			if lr, dup := seen[key]; dup {
				lr.sum += val
				continue
			}
			lr := &longRow{ids: ids, date: oc.date, sum: val}
			seen[key] = lr
			order = append(order, lr)
		}
	}

	out := table.New(outSchema)
	for _, lr := range order {
		vals := make([]table.Value, 0, len(lr.ids)+2)
		vals = append(vals, lr.ids...)
		vals = append(vals, table.Date(lr.date), table.Float(lr.sum))
		if err := out.AppendRow(vals...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
