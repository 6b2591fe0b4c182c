package pipeline

import (
	"math"
	"sort"

	"tidytable/internal/domain"
	"tidytable/internal/table"
)

// RankSpec configures TopN: the numeric column to rank by, an optional
// partition column, the per-partition limit, and partition values whose
// members are always included in full regardless of the limit.
type RankSpec struct {
	By         string
	Partition  string
	N          int
	IncludeAll []string
}

// TopN selects the top-N rows by descending rank value, within each
// partition value when a partition column is set. Ties are broken by
// stable input order (first seen wins). Partitions appear in first-seen
// order; partitions listed in IncludeAll are emitted whole.
func TopN(t *table.Table, spec RankSpec) (*table.Table, error) {
	schema := t.Schema()
	bi, ok := schema.Lookup(spec.By)
	if !ok {
		return nil, domain.ErrSchemaMismatch("rank: column %q not in schema", spec.By)
	}
	if spec.N <= 0 {
		return nil, domain.ErrValidation("rank: limit must be positive, got %d", spec.N)
	}
	pi := -1
	if spec.Partition != "" {
		pi, ok = schema.Lookup(spec.Partition)
		if !ok {
			return nil, domain.ErrSchemaMismatch("rank: partition column %q not in schema", spec.Partition)
		}
	}

	forced := make(map[string]bool, len(spec.IncludeAll))
	for _, v := range spec.IncludeAll {
		forced[v] = true
	}

	type partition struct {
		display string
		rows    []int
	}
	var order []*partition
	byKey := make(map[string]*partition)
	for ri := 0; ri < t.NumRows(); ri++ {
		key, display := "", ""
		if pi >= 0 {
			key = t.Row(ri)[pi].Key()
			display = t.Row(ri)[pi].Display()
		}
		p, ok := byKey[key]
		if !ok {
			p = &partition{display: display}
			byKey[key] = p
			order = append(order, p)
		}
		p.rows = append(p.rows, ri)
	}

	rank := func(ri int) float64 {
		if f, ok := t.Row(ri)[bi].Float64(); ok {
			return f
		}
		return math.Inf(-1) // missing ranks last
	}

	out := table.New(schema)
	for _, p := range order {
		rows := append([]int(nil), p.rows...)
		sort.SliceStable(rows, func(i, j int) bool {
			return rank(rows[i]) > rank(rows[j])
		})
		limit := spec.N
		if forced[p.display] || limit > len(rows) {
			limit = len(rows)
		}
		for _, ri := range rows[:limit] {
			if err := out.AppendRow(t.Row(ri)...); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
