// Package pipeline implements the pure table-to-table transforms of the
// tidy-data pipeline: normalization, wide-to-long reshaping, grouping,
// reference joins, rate derivation, and top-N ranking. Every stage takes
// its input table as read-only and returns a new table.
package pipeline

import (
	"strings"

	"tidytable/internal/domain"
	"tidytable/internal/table"
)

// nullMarker is the textual null the municipal exports emit in place of
// an empty cell. Enum restriction treats it like an actual missing value.
const nullMarker = "(null)"

// EnumRule restricts a string column to a fixed set of permitted values.
// Anything outside the set, including missing values and textual nulls,
// maps to the sentinel.
type EnumRule struct {
	Allowed  []string
	Sentinel string
}

// ColumnRule is the per-column normalization instruction set: optional
// whitespace trimming, optional enum restriction, optional coercion to a
// target kind. Row-dropping for missing values is driven by the Required
// flag on the table's schema, not by the rule.
type ColumnRule struct {
	Column string
	Trim   bool
	Enum   *EnumRule
	Coerce *table.Kind
}

// NormalizeStats reports what Normalize changed: rows dropped for missing
// required values and cells that failed coercion and became missing.
type NormalizeStats struct {
	RowsDropped  int
	CellsSkipped int
}

// Normalize applies the given column rules to every row and drops rows
// that are missing a value in a required column. The output row count is
// therefore the input count or fewer. Enum-restricted columns are
// guaranteed to contain only allowed values or the sentinel afterwards;
// an out-of-enumeration value is remapped, never an error.
func Normalize(t *table.Table, rules []ColumnRule) (*table.Table, NormalizeStats, error) {
	schema := t.Schema()
	byCol := make(map[int]ColumnRule, len(rules))
	for _, r := range rules {
		i, ok := schema.Lookup(r.Column)
		if !ok {
			return nil, NormalizeStats{}, domain.ErrSchemaMismatch("normalize: column %q not in schema", r.Column)
		}
		if r.Enum != nil && schema.Col(i).Kind != table.KindString {
			return nil, NormalizeStats{}, domain.ErrValidation("normalize: enum rule on non-string column %q", r.Column)
		}
		byCol[i] = r
	}

	// Coercion rules change the output schema's kinds.
	cols := schema.Columns()
	for i, r := range byCol {
		if r.Coerce != nil {
			cols[i].Kind = *r.Coerce
		}
	}
	outSchema, err := table.NewSchema(cols...)
	if err != nil {
		return nil, NormalizeStats{}, err
	}

	var stats NormalizeStats
	out := table.New(outSchema)
rows:
	for ri := 0; ri < t.NumRows(); ri++ {
		in := t.Row(ri)
		vals := make([]table.Value, len(in))
		copy(vals, in)
		for ci, r := range byCol {
			vals[ci] = applyRule(vals[ci], r, &stats)
		}
		for ci := range vals {
			if outSchema.Col(ci).Required && vals[ci].IsMissing() {
				stats.RowsDropped++
				continue rows
			}
		}
		if err := out.AppendRow(vals...); err != nil {
			return nil, NormalizeStats{}, err
		}
	}
	return out, stats, nil
}

func applyRule(v table.Value, r ColumnRule, stats *NormalizeStats) table.Value {
	if r.Trim {
		if s, ok := v.Str(); ok {
			v = table.String(strings.TrimSpace(s))
		}
	}
	if r.Enum != nil {
		v = restrictEnum(v, r.Enum)
	}
	if r.Coerce != nil {
		coerced, ok := table.Coerce(v, *r.Coerce)
		if !ok {
			stats.CellsSkipped++
			coerced = table.Missing(*r.Coerce)
		}
		v = coerced
	}
	return v
}

// restrictEnum maps a value into {allowed set ∪ sentinel}. A value that
// already equals the sentinel stays as-is; missing values and the textual
// null marker map to the sentinel like any other out-of-set value.
func restrictEnum(v table.Value, rule *EnumRule) table.Value {
	s, ok := v.Str()
	if !ok || strings.EqualFold(s, nullMarker) {
		return table.String(rule.Sentinel)
	}
	if s == rule.Sentinel {
		return v
	}
	for _, allowed := range rule.Allowed {
		if s == allowed {
			return v
		}
	}
	return table.String(rule.Sentinel)
}
