package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidytable/internal/table"
)

func boroTable(t *testing.T, boros ...string) *table.Table {
	t.Helper()
	schema, err := table.NewSchema(table.Column{Name: "BORO", Kind: table.KindString})
	require.NoError(t, err)
	tbl := table.New(schema)
	for _, b := range boros {
		require.NoError(t, tbl.AppendRow(table.String(b)))
	}
	return tbl
}

func TestGroupCount_TotalPreservation(t *testing.T) {
	tbl := boroTable(t, "BRONX", "BRONX", "MANHATTAN", "QUEENS", "QUEENS")
	out, err := GroupCount(tbl, []string{"BORO"}, "incidents")
	require.NoError(t, err)
	require.Equal(t, 3, out.NumRows())

	want := map[string]float64{"BRONX": 2, "MANHATTAN": 1, "QUEENS": 2}
	total := 0.0
	for row := 0; row < out.NumRows(); row++ {
		boro, _ := out.Str(row, "BORO")
		n, _ := out.Float(row, "incidents")
		assert.Equal(t, want[boro], n)
		total += n
	}
	assert.Equal(t, float64(tbl.NumRows()), total, "group counts must sum to the input row count")
}

func TestGroupCount_FirstSeenOrder(t *testing.T) {
	tbl := boroTable(t, "QUEENS", "BRONX", "QUEENS")
	out, err := GroupCount(tbl, []string{"BORO"}, "n")
	require.NoError(t, err)
	first, _ := out.Str(0, "BORO")
	second, _ := out.Str(1, "BORO")
	assert.Equal(t, "QUEENS", first)
	assert.Equal(t, "BRONX", second)
}

func TestGroupSum_MissingContributesZero(t *testing.T) {
	schema, err := table.NewSchema(
		table.Column{Name: "k", Kind: table.KindString},
		table.Column{Name: "v", Kind: table.KindFloat},
	)
	require.NoError(t, err)
	tbl := table.New(schema)
	require.NoError(t, tbl.AppendRow(table.String("a"), table.Float(2)))
	require.NoError(t, tbl.AppendRow(table.String("a"), table.Missing(table.KindFloat)))
	require.NoError(t, tbl.AppendRow(table.String("a"), table.Float(3)))

	out, err := GroupSum(tbl, []string{"k"}, "v", "total")
	require.NoError(t, err)
	v, _ := out.Float(0, "total")
	assert.Equal(t, 5.0, v)
}

func TestGroupCount_NoZeroFill(t *testing.T) {
	tbl := boroTable(t, "BRONX")
	out, err := GroupCount(tbl, []string{"BORO"}, "n")
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows(), "absent combinations never appear")
}

func refTable(t *testing.T, pairs map[string]float64, keys ...string) *table.Table {
	t.Helper()
	schema, err := table.NewSchema(
		table.Column{Name: "BORO", Kind: table.KindString},
		table.Column{Name: "population", Kind: table.KindFloat},
	)
	require.NoError(t, err)
	tbl := table.New(schema)
	for _, k := range keys {
		require.NoError(t, tbl.AppendRow(table.String(k), table.Float(pairs[k])))
	}
	return tbl
}

func TestJoin_DropsUnmatchedLeftRows(t *testing.T) {
	left, err := GroupCount(boroTable(t, "A", "B", "C"), []string{"BORO"}, "n")
	require.NoError(t, err)
	right := refTable(t, map[string]float64{"A": 10, "C": 30}, "A", "C")

	out, err := Join(left, right, "BORO")
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows(), "B is absent, not null-filled")
	a, _ := out.Str(0, "BORO")
	c, _ := out.Str(1, "BORO")
	assert.Equal(t, "A", a)
	assert.Equal(t, "C", c)
}

func TestJoin_DuplicateReferenceKey(t *testing.T) {
	left := boroTable(t, "A")
	right := refTable(t, map[string]float64{"A": 1}, "A", "A")
	_, err := Join(left, right, "BORO")
	assert.Error(t, err)
}

func TestJoin_ColumnCollision(t *testing.T) {
	left, err := GroupCount(boroTable(t, "A"), []string{"BORO"}, "n")
	require.NoError(t, err)
	right, err := GroupCount(boroTable(t, "A"), []string{"BORO"}, "n")
	require.NoError(t, err)
	_, err = Join(left, right, "BORO")
	assert.Error(t, err)
}

func TestRatePer_Exact(t *testing.T) {
	counts, err := GroupCount(boroTable(t, "BRONX"), []string{"BORO"}, "incidents")
	require.NoError(t, err)
	// 1 incident in the group table; scale it to 100 via a reference count.
	pop := refTable(t, map[string]float64{"BRONX": 1000000}, "BRONX")
	joined, err := Join(counts, pop, "BORO")
	require.NoError(t, err)

	with100, err := Derive(joined, "count100", table.KindFloat, func(*table.Table, int) table.Value {
		return table.Float(100)
	})
	require.NoError(t, err)

	out, err := RatePer(with100, "count100", "population", 100000, "per_100k")
	require.NoError(t, err)
	rate, ok := out.Float(0, "per_100k")
	require.True(t, ok)
	assert.Equal(t, 10.0, rate, "100 per 1,000,000 is exactly 10 per 100k")
}

func TestRatePer_DropsZeroPopulation(t *testing.T) {
	counts, err := GroupCount(boroTable(t, "A", "B"), []string{"BORO"}, "n")
	require.NoError(t, err)
	pop := refTable(t, map[string]float64{"A": 0, "B": 100}, "A", "B")
	joined, err := Join(counts, pop, "BORO")
	require.NoError(t, err)

	out, err := RatePer(joined, "n", "population", 1000, "rate")
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())
	b, _ := out.Str(0, "BORO")
	assert.Equal(t, "B", b)
}

func TestDerive_RejectsExistingColumn(t *testing.T) {
	tbl := boroTable(t, "A")
	_, err := Derive(tbl, "BORO", table.KindString, func(*table.Table, int) table.Value {
		return table.String("x")
	})
	assert.Error(t, err)
}

func TestHead(t *testing.T) {
	tbl := boroTable(t, "A", "B", "C")
	out := Head(tbl, 2)
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, 3, Head(tbl, 10).NumRows())
}
