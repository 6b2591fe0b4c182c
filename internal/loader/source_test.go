package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSourcesYAML = `
sources:
  - name: cases
    url: https://example.com/cases.csv
    file: cases.csv
    columns:
      - name: Country/Region
        kind: string
        required: true
    wide:
      prefix: ""
      layout: 1/2/06
  - name: incidents
    file: incidents.csv
    columns:
      - name: OCCUR_DATE
        kind: date
`

func TestParseSources_Valid(t *testing.T) {
	sources, err := ParseSources([]byte(validSourcesYAML))
	require.NoError(t, err)
	require.Len(t, sources, 2)

	cases := sources[0]
	assert.Equal(t, "cases", cases.Name)
	require.NotNil(t, cases.Wide)
	assert.Equal(t, "1/2/06", cases.Wide.Layout)
	require.Len(t, cases.Columns, 1)
	assert.True(t, cases.Columns[0].Required)

	found, ok := Find(sources, "incidents")
	require.True(t, ok)
	assert.Equal(t, "incidents.csv", found.File)

	_, ok = Find(sources, "nope")
	assert.False(t, ok)
}

func TestParseSources_Invalid(t *testing.T) {
	cases := map[string]string{
		"not yaml":         "sources: [",
		"no sources":       "sources: []",
		"empty name":       "sources:\n  - url: https://example.com\n    columns: [{name: a}]",
		"no url or file":   "sources:\n  - name: x\n    columns: [{name: a}]",
		"no columns":       "sources:\n  - name: x\n    file: x.csv",
		"unknown kind":     "sources:\n  - name: x\n    file: x.csv\n    columns: [{name: a, kind: decimal}]",
		"wide sans layout": "sources:\n  - name: x\n    file: x.csv\n    columns: [{name: a}]\n    wide: {prefix: X}",
	}
	for label, doc := range cases {
		_, err := ParseSources([]byte(doc))
		assert.Error(t, err, label)
	}
}
