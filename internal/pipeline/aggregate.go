package pipeline

import (
	"tidytable/internal/domain"
	"tidytable/internal/table"
)

// GroupCount groups the table by the given key columns and counts the
// rows in each group, emitting the count in a column named as. Groups
// appear in first-seen input order; key combinations absent from the
// input never appear (no zero-fill). The counts always sum back to the
// input row count.
func GroupCount(t *table.Table, keys []string, as string) (*table.Table, error) {
	return groupReduce(t, keys, as, func(acc float64, _ int) float64 {
		return acc + 1
	})
}

// GroupSum groups by the key columns and sums the target column, emitting
// the sum in a column named as. Missing target values contribute zero
// rather than propagating as missing.
func GroupSum(t *table.Table, keys []string, target, as string) (*table.Table, error) {
	ti, ok := t.Schema().Lookup(target)
	if !ok {
		return nil, domain.ErrSchemaMismatch("group: target column %q not in schema", target)
	}
	return groupReduce(t, keys, as, func(acc float64, row int) float64 {
		if f, ok := t.Row(row)[ti].Float64(); ok {
			return acc + f
		}
		return acc
	})
}

func groupReduce(t *table.Table, keys []string, as string, reduce func(acc float64, row int) float64) (*table.Table, error) {
	schema := t.Schema()
	keyIdx := make([]int, len(keys))
	decls := make([]table.Column, 0, len(keys)+1)
	for i, name := range keys {
		j, ok := schema.Lookup(name)
		if !ok {
			return nil, domain.ErrSchemaMismatch("group: key column %q not in schema", name)
		}
		keyIdx[i] = j
		decl := schema.Col(j)
		decl.Required = false
		decls = append(decls, decl)
	}
	decls = append(decls, table.Column{Name: as, Kind: table.KindFloat})
	outSchema, err := table.NewSchema(decls...)
	if err != nil {
		return nil, err
	}

	type group struct {
		keyVals []table.Value
		acc     float64
	}
	var order []*group
	byKey := make(map[string]*group)
	for ri := 0; ri < t.NumRows(); ri++ {
		row := t.Row(ri)
		keyVals := make([]table.Value, len(keyIdx))
		for i, j := range keyIdx {
			keyVals[i] = row[j]
		}
		key := table.CompositeKey(keyVals)
		g, ok := byKey[key]
		if !ok {
			g = &group{keyVals: keyVals}
			byKey[key] = g
			order = append(order, g)
		}
		g.acc = reduce(g.acc, ri)
	}

	out := table.New(outSchema)
	for _, g := range order {
		vals := make([]table.Value, 0, len(g.keyVals)+1)
		vals = append(vals, g.keyVals...)
		vals = append(vals, table.Float(g.acc))
		if err := out.AppendRow(vals...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Join performs an exact-match natural join of left against right on the
// named key column, appending right's non-key columns to matching left
// rows. Left rows with no match in right are dropped — inner-join-like
// semantics, the behavior the rate-normalized outputs rely on. Right must
// be a reference table: its key values must be unique and its column
// names (key aside) must not collide with left's.
func Join(left, right *table.Table, key string) (*table.Table, error) {
	li, ok := left.Schema().Lookup(key)
	if !ok {
		return nil, domain.ErrSchemaMismatch("join: key column %q not in left schema", key)
	}
	ri, ok := right.Schema().Lookup(key)
	if !ok {
		return nil, domain.ErrSchemaMismatch("join: key column %q not in right schema", key)
	}

	rightSchema := right.Schema()
	var rightCols []int
	decls := left.Schema().Columns()
	for i := 0; i < rightSchema.Len(); i++ {
		if i == ri {
			continue
		}
		decl := rightSchema.Col(i)
		if _, dup := left.Schema().Lookup(decl.Name); dup {
			return nil, domain.ErrValidation("join: column %q exists on both sides", decl.Name)
		}
		rightCols = append(rightCols, i)
		decls = append(decls, decl)
	}
	outSchema, err := table.NewSchema(decls...)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string][]table.Value, right.NumRows())
	for rr := 0; rr < right.NumRows(); rr++ {
		row := right.Row(rr)
		k := row[ri].Key()
		if _, dup := lookup[k]; dup {
			return nil, domain.ErrValidation("join: duplicate key %q in reference table", row[ri].Display())
		}
		vals := make([]table.Value, len(rightCols))
		for i, j := range rightCols {
			vals[i] = row[j]
		}
		lookup[k] = vals
	}

	out := table.New(outSchema)
	for lr := 0; lr < left.NumRows(); lr++ {
		row := left.Row(lr)
		match, ok := lookup[row[li].Key()]
		if !ok {
			continue
		}
		vals := make([]table.Value, 0, outSchema.Len())
		vals = append(vals, row...)
		vals = append(vals, match...)
		if err := out.AppendRow(vals...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RatePer appends a derived rate column: count / population * per (e.g.
// per = 100000 for a per-100k rate). Rows whose population is missing or
// zero are excluded from the output rather than producing infinities.
func RatePer(t *table.Table, countCol, popCol string, per float64, as string) (*table.Table, error) {
	schema := t.Schema()
	ci, ok := schema.Lookup(countCol)
	if !ok {
		return nil, domain.ErrSchemaMismatch("rate: count column %q not in schema", countCol)
	}
	pi, ok := schema.Lookup(popCol)
	if !ok {
		return nil, domain.ErrSchemaMismatch("rate: population column %q not in schema", popCol)
	}
	decls := append(schema.Columns(), table.Column{Name: as, Kind: table.KindFloat})
	outSchema, err := table.NewSchema(decls...)
	if err != nil {
		return nil, err
	}

	out := table.New(outSchema)
	for ri := 0; ri < t.NumRows(); ri++ {
		row := t.Row(ri)
		count, ok := row[ci].Float64()
		if !ok {
			count = 0
		}
		pop, ok := row[pi].Float64()
		if !ok || pop == 0 {
			continue
		}
		vals := make([]table.Value, 0, outSchema.Len())
		vals = append(vals, row...)
		vals = append(vals, table.Float(count/pop*per))
		if err := out.AppendRow(vals...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
