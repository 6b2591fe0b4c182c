package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidytable/internal/domain"
	"tidytable/internal/table"
)

func incidentSource() Source {
	return Source{
		Name: "incidents",
		File: "incidents.csv",
		Columns: []SourceColumn{
			{Name: "OCCUR_DATE", Kind: "date", Required: true},
			{Name: "BORO", Kind: "string", Required: true},
			{Name: "Latitude", Kind: "float"},
		},
	}
}

const incidentCSV = "INCIDENT_KEY,OCCUR_DATE,BORO,Latitude\n" +
	"1,01/15/2021,BRONX,40.8\n" +
	"2,02/20/2021,QUEENS,not-a-number\n" +
	"3,03/25/2021\n" +
	"4,04/30/2021,BROOKLYN,40.6\n"

func offlineLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o640))
	}
	return New(NewFetcher(FetcherOptions{CacheDir: dir, Offline: true}), nil)
}

func TestLoad_OfflineCache(t *testing.T) {
	l := offlineLoader(t, map[string]string{"incidents.csv": incidentCSV})
	tbl, err := l.Load(context.Background(), incidentSource())
	require.NoError(t, err)

	// Row 3 is short and skipped; the bad Latitude on row 2 only blanks the cell.
	require.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []string{"OCCUR_DATE", "BORO", "Latitude"}, tbl.Schema().Names())

	boro, _ := tbl.Str(1, "BORO")
	assert.Equal(t, "QUEENS", boro)
	v, ok := tbl.Value(1, "Latitude")
	require.True(t, ok)
	assert.True(t, v.IsMissing())
}

func TestParseCSV_CountsAndSamplesSkips(t *testing.T) {
	tbl, stats, err := parseCSV(strings.NewReader(incidentCSV), incidentSource())
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, 1, stats.RowsSkipped)
	assert.Equal(t, 1, stats.CellsSkipped)
	require.Len(t, stats.Samples, 1)
	assert.Equal(t, "Latitude", stats.Samples[0].Column)
}

func TestLoad_FromServerWritesCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(incidentCSV))
	}))
	defer srv.Close()

	dir := t.TempDir()
	src := incidentSource()
	src.URL = srv.URL
	l := New(NewFetcher(FetcherOptions{CacheDir: dir}), nil)

	tbl, err := l.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())

	cached, err := os.ReadFile(filepath.Join(dir, src.File))
	require.NoError(t, err)
	assert.Equal(t, incidentCSV, string(cached))
}

func TestLoad_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := incidentSource()
	src.URL = srv.URL
	l := New(NewFetcher(FetcherOptions{}), nil)

	_, err := l.Load(context.Background(), src)
	var unavailable *domain.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestLoad_MissingDeclaredColumn(t *testing.T) {
	l := offlineLoader(t, map[string]string{"incidents.csv": "A,B\n1,2\n"})
	_, err := l.Load(context.Background(), incidentSource())
	var mismatch *domain.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestLoad_NoCachedCopy(t *testing.T) {
	l := offlineLoader(t, nil)
	_, err := l.Load(context.Background(), incidentSource())
	var unavailable *domain.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestLoad_WideSource(t *testing.T) {
	csvBody := "Province/State,Country/Region,Lat,Long,1/22/20,1/23/20\n" +
		",Australia,-25,133,0,3\n" +
		",Canada,56,-106,1,1\n"
	src := Source{
		Name: "cases",
		File: "cases.csv",
		Columns: []SourceColumn{
			{Name: "Province/State", Kind: "string"},
			{Name: "Country/Region", Kind: "string", Required: true},
		},
		Wide: &WideSpec{Layout: "1/2/06"},
	}
	l := offlineLoader(t, map[string]string{"cases.csv": csvBody})

	tbl, err := l.Load(context.Background(), src)
	require.NoError(t, err)
	// Lat and Long match no date layout, so only the two date headers survive.
	assert.Equal(t, []string{"Province/State", "Country/Region", "1/22/20", "1/23/20"}, tbl.Schema().Names())
	assert.Equal(t, table.KindFloat, tbl.Schema().Col(2).Kind)

	v, ok := tbl.Float(0, "1/23/20")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestLoadAll_PreservesInputOrder(t *testing.T) {
	l := offlineLoader(t, map[string]string{
		"a.csv": "k\nfirst\n",
		"b.csv": "k\nsecond\n",
	})
	sources := []Source{
		{Name: "a", File: "a.csv", Columns: []SourceColumn{{Name: "k"}}},
		{Name: "b", File: "b.csv", Columns: []SourceColumn{{Name: "k"}}},
	}

	tables, err := l.LoadAll(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	first, _ := tables[0].Str(0, "k")
	second, _ := tables[1].Str(0, "k")
	assert.Equal(t, "first", first)
	assert.Equal(t, "second", second)
}

func TestLoadAll_PropagatesFailure(t *testing.T) {
	l := offlineLoader(t, map[string]string{"a.csv": "k\nv\n"})
	sources := []Source{
		{Name: "a", File: "a.csv", Columns: []SourceColumn{{Name: "k"}}},
		{Name: "b", File: "b.csv", Columns: []SourceColumn{{Name: "k"}}},
	}
	_, err := l.LoadAll(context.Background(), sources)
	assert.Error(t, err)
}
