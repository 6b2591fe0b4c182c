package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"tidytable/internal/domain"
	"tidytable/internal/pipeline"
	"tidytable/internal/table"
)

// LoadStats reports the non-fatal skips that occurred while parsing one
// source: malformed CSV records and cells that failed type coercion.
// Samples holds the first few cell failures for logging.
type LoadStats struct {
	RowsSkipped  int
	CellsSkipped int
	Samples      []*domain.ParseError
}

const maxParseErrSamples = 5

func (s *LoadStats) sample(e *domain.ParseError) {
	if len(s.Samples) < maxParseErrSamples {
		s.Samples = append(s.Samples, e)
	}
}

// parseCSV reads a comma-delimited, header-first CSV stream and projects
// it onto the source's declared column subset, coercing cells to their
// declared kinds. A declared column absent from the header is a
// SchemaMismatchError (fatal). A cell that cannot be coerced becomes an
// explicit missing value and is counted, and a structurally malformed
// record is skipped and counted; neither is fatal.
func parseCSV(r io.Reader, src Source) (*table.Table, LoadStats, error) {
	var stats LoadStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row width validated against the header below

	header, err := cr.Read()
	if err != nil {
		return nil, stats, domain.ErrSourceUnavailable("source %s: read header: %v", src.Name, err)
	}
	pos := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	// Declared columns first, in declaration order.
	type boundCol struct {
		idx  int
		kind table.Kind
	}
	var bound []boundCol
	var decls []table.Column
	for _, c := range src.Columns {
		i, ok := pos[c.Name]
		if !ok {
			return nil, stats, domain.ErrSchemaMismatch("source %s: column %q absent from header", src.Name, c.Name)
		}
		kind, err := kindFromName(c.Kind)
		if err != nil {
			return nil, stats, err
		}
		bound = append(bound, boundCol{idx: i, kind: kind})
		decls = append(decls, table.Column{Name: c.Name, Kind: kind, Required: c.Required})
	}

	// For wide sources, every remaining header matching the date pattern
	// becomes a float observation column; other extras are ignored.
	if src.Wide != nil {
		declared := make(map[string]bool, len(src.Columns))
		for _, c := range src.Columns {
			declared[c.Name] = true
		}
		pat := pipeline.DatePattern{Prefix: src.Wide.Prefix, Layout: src.Wide.Layout}
		for i, name := range header {
			if declared[name] || pos[name] != i {
				continue
			}
			if _, ok := pat.Parse(name); !ok {
				continue
			}
			bound = append(bound, boundCol{idx: i, kind: table.KindFloat})
			decls = append(decls, table.Column{Name: name, Kind: table.KindFloat})
		}
	}

	schema, err := table.NewSchema(decls...)
	if err != nil {
		return nil, stats, err
	}
	out := table.New(schema)

	for rowNum := 1; ; rowNum++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			stats.RowsSkipped++
			continue
		}
		if err != nil {
			return nil, stats, domain.ErrSourceUnavailable("source %s: read record: %v", src.Name, err)
		}
		if len(rec) != len(header) {
			stats.RowsSkipped++
			continue
		}
		vals := make([]table.Value, len(bound))
		for i, b := range bound {
			v, ok := table.Parse(rec[b.idx], b.kind)
			if !ok {
				stats.CellsSkipped++
				stats.sample(&domain.ParseError{
					Column:  decls[i].Name,
					Row:     rowNum,
					Message: fmt.Sprintf("cannot parse %q as %s", rec[b.idx], b.kind),
				})
			}
			vals[i] = v
		}
		if err := out.AppendRow(vals...); err != nil {
			return nil, stats, err
		}
	}
	return out, stats, nil
}
