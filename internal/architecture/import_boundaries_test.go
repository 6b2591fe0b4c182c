package architecture_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const modulePath = "tidytable"

type layerRule struct {
	sourcePrefix string
	forbidden    []string
	hint         string
}

// The pipeline layers bottom-up: domain < table < pipeline/stats <
// loader/render < report. Lower layers must not reach up.
var rules = []layerRule{
	{
		sourcePrefix: modulePath + "/internal/domain",
		forbidden: []string{
			modulePath + "/internal/table",
			modulePath + "/internal/pipeline",
			modulePath + "/internal/loader",
			modulePath + "/internal/render",
			modulePath + "/internal/report",
			modulePath + "/internal/stats",
		},
		hint: "domain may only import domain",
	},
	{
		sourcePrefix: modulePath + "/internal/table",
		forbidden: []string{
			modulePath + "/internal/pipeline",
			modulePath + "/internal/loader",
			modulePath + "/internal/render",
			modulePath + "/internal/report",
			modulePath + "/internal/stats",
		},
		hint: "table should depend on domain only",
	},
	{
		sourcePrefix: modulePath + "/internal/pipeline",
		forbidden: []string{
			modulePath + "/internal/loader",
			modulePath + "/internal/render",
			modulePath + "/internal/report",
		},
		hint: "pipeline should depend on table and domain only",
	},
	{
		sourcePrefix: modulePath + "/internal/stats",
		forbidden: []string{
			modulePath + "/internal/table",
			modulePath + "/internal/pipeline",
			modulePath + "/internal/loader",
			modulePath + "/internal/render",
			modulePath + "/internal/report",
		},
		hint: "stats should depend on domain only",
	},
	{
		sourcePrefix: modulePath + "/internal/loader",
		forbidden: []string{
			modulePath + "/internal/render",
			modulePath + "/internal/report",
		},
		hint: "loader should depend on pipeline, table, and domain",
	},
	{
		sourcePrefix: modulePath + "/internal/render",
		forbidden: []string{
			modulePath + "/internal/loader",
			modulePath + "/internal/pipeline",
			modulePath + "/internal/report",
		},
		hint: "render should depend on table only",
	},
}

func TestImportBoundaries(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "internal", "*", "*.go"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	violations := make([]string, 0)
	fset := token.NewFileSet()

	for _, file := range files {
		if strings.HasSuffix(filepath.Base(file), "_test.go") {
			continue
		}

		sourcePkg := packageImportPath(file)
		rule, ok := findRule(sourcePkg)
		if !ok {
			continue
		}

		parsed, parseErr := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
		require.NoErrorf(t, parseErr, "parse imports for %s", file)

		for _, imp := range parsed.Imports {
			importPath := strings.Trim(imp.Path.Value, "\"")
			if !strings.HasPrefix(importPath, modulePath+"/") {
				continue
			}
			if violatesRule(importPath, rule.forbidden) {
				violations = append(violations,
					sourcePkg+" imports "+importPath+" via "+file+"; allowed direction: "+rule.hint,
				)
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		t.Fatalf("%s", strings.Join(violations, "\n"))
	}
}

func packageImportPath(file string) string {
	dir := filepath.Dir(filepath.ToSlash(file))
	dir = strings.TrimPrefix(dir, "../../")
	return modulePath + "/" + dir
}

func findRule(sourcePkg string) (layerRule, bool) {
	for _, rule := range rules {
		if hasPathPrefix(sourcePkg, rule.sourcePrefix) {
			return rule, true
		}
	}
	return layerRule{}, false
}

func violatesRule(importPath string, forbidden []string) bool {
	for _, prefix := range forbidden {
		if hasPathPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func hasPathPrefix(value string, prefix string) bool {
	return value == prefix || strings.HasPrefix(value, prefix+"/")
}
