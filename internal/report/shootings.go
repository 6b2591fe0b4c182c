package report

import (
	"context"
	"log/slog"

	"tidytable/internal/pipeline"
	"tidytable/internal/stats"
	"tidytable/internal/table"
)

// Victim age buckets as published in the dataset; anything else (typos,
// "(null)", stray numerics) maps to the sentinel.
var vicAgeGroups = []string{"<18", "18-24", "25-44", "45-64", "65+"}

const ageSentinel = "UNKNOWN"

// locationSampleSize caps the point-map output so the presentation layer
// is not handed hundreds of thousands of coordinates.
const locationSampleSize = 1000

// boroughPopulations is the hand-authored reference table used for
// per-100k rates (2020 census figures). Keyed by the BORO column's
// uppercase spelling; unmatched boroughs drop out of rate outputs.
var boroughPopulations = map[string]float64{
	"BRONX":         1472654,
	"BROOKLYN":      2736074,
	"MANHATTAN":     1694251,
	"QUEENS":        2405464,
	"STATEN ISLAND": 495747,
}

// runShootings is the NYPD shooting-incident analysis: borough counts and
// per-100k rates, victim age distribution, yearly trend, murder share
// with a linear fit, and a location sample for the point map.
func (r *Runner) runShootings(ctx context.Context, log *slog.Logger) ([]Output, error) {
	src, err := r.source("nypd-shootings")
	if err != nil {
		return nil, err
	}
	raw, err := r.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	clean, nstats, err := pipeline.Normalize(raw, []pipeline.ColumnRule{
		{Column: "BORO", Trim: true},
		{Column: "VIC_SEX", Trim: true},
		{Column: "STATISTICAL_MURDER_FLAG", Trim: true},
		{Column: "VIC_AGE_GROUP", Trim: true, Enum: &pipeline.EnumRule{
			Allowed:  vicAgeGroups,
			Sentinel: ageSentinel,
		}},
	})
	if err != nil {
		return nil, err
	}
	log.Info("normalized incidents",
		"rows", clean.NumRows(), "dropped", nstats.RowsDropped, "cells_skipped", nstats.CellsSkipped)

	byBoro, err := pipeline.GroupCount(clean, []string{"BORO"}, "incidents")
	if err != nil {
		return nil, err
	}

	rates, err := boroughRates(byBoro)
	if err != nil {
		return nil, err
	}

	byAge, err := pipeline.GroupCount(clean, []string{"VIC_AGE_GROUP"}, "incidents")
	if err != nil {
		return nil, err
	}

	ageByBoro, err := pipeline.GroupCount(clean, []string{"BORO", "VIC_AGE_GROUP"}, "incidents")
	if err != nil {
		return nil, err
	}

	withYear, err := pipeline.Derive(clean, "year", table.KindInt,
		func(t *table.Table, row int) table.Value {
			d, ok := t.Date(row, "OCCUR_DATE")
			if !ok {
				return table.Missing(table.KindInt)
			}
			return table.Int(int64(d.Year()))
		})
	if err != nil {
		return nil, err
	}
	byYear, err := pipeline.GroupCount(withYear, []string{"year"}, "incidents")
	if err != nil {
		return nil, err
	}

	murderShare, fit, err := murdersVersusIncidents(clean, byBoro)
	if err != nil {
		return nil, err
	}
	log.Info("fitted murders against incidents", "slope", fit.slope, "intercept", fit.intercept)

	locations := pipeline.Head(clean.Filter(func(row int) bool {
		_, latOK := clean.Float(row, "Latitude")
		_, lonOK := clean.Float(row, "Longitude")
		return latOK && lonOK
	}), locationSampleSize)
	locations, err = locations.Select("Latitude", "Longitude", "BORO")
	if err != nil {
		return nil, err
	}

	return []Output{
		{Name: "incidents_by_borough", Title: "Shooting incidents by borough", Chart: ChartBar, Table: byBoro},
		{Name: "incident_rates", Title: "Incidents per 100k residents by borough", Chart: ChartBar, Table: rates},
		{Name: "victim_age_distribution", Title: "Incidents by victim age group", Chart: ChartBar, Table: byAge},
		{Name: "age_by_borough", Title: "Victim age group by borough", Chart: ChartStackedBar, Table: ageByBoro},
		{Name: "incidents_by_year", Title: "Incidents per year", Chart: ChartLine, Table: byYear},
		{Name: "murder_share", Title: "Murders vs incidents by borough", Chart: ChartTable, Table: murderShare},
		{Name: "murder_fit", Title: "Linear fit: murders ~ incidents", Chart: ChartTable, Table: fit.asTable()},
		{Name: "incident_locations", Title: "Incident location sample", Chart: ChartPointMap, Table: locations},
	}, nil
}

// boroughRates joins the per-borough counts against the population
// reference table and derives a per-100k rate. Boroughs absent from the
// reference table are excluded, never zero-filled.
func boroughRates(byBoro *table.Table) (*table.Table, error) {
	popSchema, err := table.NewSchema(
		table.Column{Name: "BORO", Kind: table.KindString},
		table.Column{Name: "population", Kind: table.KindFloat},
	)
	if err != nil {
		return nil, err
	}
	pop := table.New(popSchema)
	for _, boro := range []string{"BRONX", "BROOKLYN", "MANHATTAN", "QUEENS", "STATEN ISLAND"} {
		if err := pop.AppendRow(table.String(boro), table.Float(boroughPopulations[boro])); err != nil {
			return nil, err
		}
	}
	joined, err := pipeline.Join(byBoro, pop, "BORO")
	if err != nil {
		return nil, err
	}
	return pipeline.RatePer(joined, "incidents", "population", 100000, "per_100k")
}

type linearFit struct {
	slope     float64
	intercept float64
}

func (f linearFit) asTable() *table.Table {
	schema := table.MustSchema(
		table.Column{Name: "parameter", Kind: table.KindString},
		table.Column{Name: "value", Kind: table.KindFloat},
	)
	t := table.New(schema)
	_ = t.AppendRow(table.String("slope"), table.Float(f.slope))
	_ = t.AppendRow(table.String("intercept"), table.Float(f.intercept))
	return t
}

// murdersVersusIncidents counts murder-flagged incidents per borough,
// joins them with total incidents, and fits murders ~ incidents across
// the five boroughs.
func murdersVersusIncidents(clean, byBoro *table.Table) (*table.Table, linearFit, error) {
	murders := clean.Filter(func(row int) bool {
		flag, ok := clean.Str(row, "STATISTICAL_MURDER_FLAG")
		return ok && (flag == "true" || flag == "TRUE" || flag == "Y")
	})
	murdersByBoro, err := pipeline.GroupCount(murders, []string{"BORO"}, "murders")
	if err != nil {
		return nil, linearFit{}, err
	}
	joined, err := pipeline.Join(byBoro, murdersByBoro, "BORO")
	if err != nil {
		return nil, linearFit{}, err
	}
	share, err := pipeline.RatePer(joined, "murders", "incidents", 100, "murder_pct")
	if err != nil {
		return nil, linearFit{}, err
	}

	var x, y []float64
	for row := 0; row < share.NumRows(); row++ {
		incidents, iok := share.Float(row, "incidents")
		murderCount, mok := share.Float(row, "murders")
		if iok && mok {
			x = append(x, incidents)
			y = append(y, murderCount)
		}
	}
	slope, intercept, err := stats.LinearFit(x, y)
	if err != nil {
		return nil, linearFit{}, err
	}
	return share, linearFit{slope: slope, intercept: intercept}, nil
}
