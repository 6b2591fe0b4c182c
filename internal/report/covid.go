package report

import (
	"context"
	"log/slog"
	"time"

	"tidytable/internal/domain"
	"tidytable/internal/loader"
	"tidytable/internal/pipeline"
	"tidytable/internal/stats"
	"tidytable/internal/table"
)

const (
	// topCountriesPerRegion limits the regional leaderboard.
	topCountriesPerRegion = 5
	// alwaysIncludeRegion is listed in full regardless of the limit.
	alwaysIncludeRegion = "Oceania"
	// logisticCountry gets the growth-curve fit.
	logisticCountry = "US"
	// topStateCount limits the US state leaderboard.
	topStateCount = 10
)

// countryRegion is one row of the hand-authored country→region lookup.
// Country names use the exact, case-sensitive spelling of the JHU CSSE
// files ("US", "Korea, South"). Countries not listed here are excluded
// from region-based aggregates, never zero-filled.
type countryRegion struct {
	country string
	region  string
}

var countryRegions = []countryRegion{
	{"US", "North America"}, {"Canada", "North America"}, {"Mexico", "North America"},
	{"Brazil", "South America"}, {"Argentina", "South America"}, {"Colombia", "South America"},
	{"Peru", "South America"}, {"Chile", "South America"},
	{"United Kingdom", "Europe"}, {"France", "Europe"}, {"Germany", "Europe"},
	{"Italy", "Europe"}, {"Spain", "Europe"}, {"Russia", "Europe"},
	{"Netherlands", "Europe"}, {"Belgium", "Europe"}, {"Sweden", "Europe"},
	{"Poland", "Europe"}, {"Turkey", "Europe"},
	{"China", "Asia"}, {"India", "Asia"}, {"Japan", "Asia"},
	{"Korea, South", "Asia"}, {"Indonesia", "Asia"}, {"Iran", "Asia"},
	{"Pakistan", "Asia"}, {"Bangladesh", "Asia"}, {"Philippines", "Asia"},
	{"South Africa", "Africa"}, {"Egypt", "Africa"}, {"Nigeria", "Africa"},
	{"Morocco", "Africa"}, {"Ethiopia", "Africa"},
	{"Australia", "Oceania"}, {"New Zealand", "Oceania"},
	{"Fiji", "Oceania"}, {"Papua New Guinea", "Oceania"},
}

var covidDatePattern = pipeline.DatePattern{Layout: "1/2/06"}

// runCovid is the COVID-19 time-series analysis over the four JHU CSSE
// files: global case/death totals and CFR per country, region totals and
// per-region leaderboards, a logistic growth fit for one country, and US
// per-state rates with a linear deaths~cases fit.
func (r *Runner) runCovid(ctx context.Context, log *slog.Logger) ([]Output, error) {
	srcs := make([]loader.Source, 0, 4)
	for _, name := range []string{"covid-confirmed-global", "covid-deaths-global", "covid-confirmed-us", "covid-deaths-us"} {
		src, err := r.source(name)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	tables, err := r.loader.LoadAll(ctx, srcs)
	if err != nil {
		return nil, err
	}
	confirmedGlobal, deathsGlobal, confirmedUS, deathsUS := tables[0], tables[1], tables[2], tables[3]

	globalIDs := []string{"Province/State", "Country/Region"}
	casesLong, err := pipeline.Reshape(confirmedGlobal, globalIDs, covidDatePattern, "date", "cases")
	if err != nil {
		return nil, err
	}
	deathsLong, err := pipeline.Reshape(deathsGlobal, globalIDs, covidDatePattern, "date", "deaths")
	if err != nil {
		return nil, err
	}
	latest, err := latestDate(casesLong, "date")
	if err != nil {
		return nil, err
	}
	log.Info("reshaped global series", "rows", casesLong.NumRows(), "latest", latest.Format("2006-01-02"))

	globalByDate, err := pipeline.GroupSum(casesLong, []string{"date"}, "cases", "cases")
	if err != nil {
		return nil, err
	}

	cfr, err := countryTotals(casesLong, deathsLong, latest)
	if err != nil {
		return nil, err
	}

	regionTotals, topByRegion, err := regionBreakdown(cfr)
	if err != nil {
		return nil, err
	}

	fitTable, err := logisticGrowthFit(casesLong, latest)
	if err != nil {
		return nil, err
	}

	states, stateFit, err := statesAnalysis(confirmedUS, deathsUS)
	if err != nil {
		return nil, err
	}
	leaders, err := pipeline.TopN(states, pipeline.RankSpec{By: "deaths_per_thou", N: topStateCount})
	if err != nil {
		return nil, err
	}

	return []Output{
		{Name: "global_cases_by_date", Title: "Global confirmed cases over time", Chart: ChartLine, Table: globalByDate},
		{Name: "country_totals", Title: "Cases, deaths, and CFR by country", Chart: ChartTable, Table: cfr},
		{Name: "region_totals", Title: "Cases and deaths by region", Chart: ChartBar, Table: regionTotals},
		{Name: "top_countries_by_region", Title: "Top countries by cases within each region", Chart: ChartTable, Table: topByRegion},
		{Name: "logistic_fit", Title: "Logistic growth fit: " + logisticCountry, Chart: ChartTable, Table: fitTable},
		{Name: "us_states", Title: "US states: cases and deaths per thousand", Chart: ChartTable, Table: states},
		{Name: "top_states", Title: "US states with highest deaths per thousand", Chart: ChartTable, Table: leaders},
		{Name: "state_fit", Title: "Linear fit: deaths per thousand ~ cases per thousand", Chart: ChartTable, Table: stateFit},
	}, nil
}

// latestDate scans a long-form table for the maximum date. The series are
// cumulative, so the latest date carries each entity's total.
func latestDate(t *table.Table, col string) (time.Time, error) {
	var latest time.Time
	for row := 0; row < t.NumRows(); row++ {
		if d, ok := t.Date(row, col); ok && d.After(latest) {
			latest = d
		}
	}
	if latest.IsZero() {
		return time.Time{}, domain.ErrValidation("no dates in column %q", col)
	}
	return latest, nil
}

// atDate filters a long-form table to one date.
func atDate(t *table.Table, col string, day time.Time) *table.Table {
	return t.Filter(func(row int) bool {
		d, ok := t.Date(row, col)
		return ok && d.Equal(day)
	})
}

// countryTotals reduces both cumulative series at the latest date to one
// row per country and derives the case-fatality ratio as a percentage.
func countryTotals(casesLong, deathsLong *table.Table, latest time.Time) (*table.Table, error) {
	cases, err := pipeline.GroupSum(atDate(casesLong, "date", latest), []string{"Country/Region"}, "cases", "cases")
	if err != nil {
		return nil, err
	}
	deaths, err := pipeline.GroupSum(atDate(deathsLong, "date", latest), []string{"Country/Region"}, "deaths", "deaths")
	if err != nil {
		return nil, err
	}
	totals, err := pipeline.Join(cases, deaths, "Country/Region")
	if err != nil {
		return nil, err
	}
	// CFR: deaths per 100 cases. Countries with zero reported cases drop out.
	return pipeline.RatePer(totals, "deaths", "cases", 100, "cfr_pct")
}

// regionBreakdown joins country totals against the region lookup and
// produces per-region totals plus the top-N countries per region.
func regionBreakdown(totals *table.Table) (regionTotals, topByRegion *table.Table, err error) {
	schema, err := table.NewSchema(
		table.Column{Name: "Country/Region", Kind: table.KindString},
		table.Column{Name: "region", Kind: table.KindString},
	)
	if err != nil {
		return nil, nil, err
	}
	ref := table.New(schema)
	for _, cr := range countryRegions {
		if err := ref.AppendRow(table.String(cr.country), table.String(cr.region)); err != nil {
			return nil, nil, err
		}
	}

	withRegion, err := pipeline.Join(totals, ref, "Country/Region")
	if err != nil {
		return nil, nil, err
	}
	regionCases, err := pipeline.GroupSum(withRegion, []string{"region"}, "cases", "cases")
	if err != nil {
		return nil, nil, err
	}
	regionDeaths, err := pipeline.GroupSum(withRegion, []string{"region"}, "deaths", "deaths")
	if err != nil {
		return nil, nil, err
	}
	regionTotals, err = pipeline.Join(regionCases, regionDeaths, "region")
	if err != nil {
		return nil, nil, err
	}
	topByRegion, err = pipeline.TopN(withRegion, pipeline.RankSpec{
		By:         "cases",
		Partition:  "region",
		N:          topCountriesPerRegion,
		IncludeAll: []string{alwaysIncludeRegion},
	})
	if err != nil {
		return nil, nil, err
	}
	return regionTotals, topByRegion, nil
}

// logisticGrowthFit fits a logistic curve to one country's cumulative
// case series, with t measured in days since the series start.
func logisticGrowthFit(casesLong *table.Table, latest time.Time) (*table.Table, error) {
	country := casesLong.Filter(func(row int) bool {
		c, ok := casesLong.Str(row, "Country/Region")
		return ok && c == logisticCountry
	})
	series, err := pipeline.GroupSum(country, []string{"date"}, "cases", "cases")
	if err != nil {
		return nil, err
	}
	if series.NumRows() == 0 {
		return nil, domain.ErrValidation("no series for country %q", logisticCountry)
	}

	start, ok := series.Date(0, "date")
	if !ok {
		return nil, domain.ErrValidation("series for %q has no start date", logisticCountry)
	}
	var ts, ys []float64
	for row := 0; row < series.NumRows(); row++ {
		d, dok := series.Date(row, "date")
		y, yok := series.Float(row, "cases")
		if dok && yok {
			ts = append(ts, d.Sub(start).Hours()/24)
			ys = append(ys, y)
		}
	}
	m, err := stats.LogisticFit(ts, ys)
	if err != nil {
		return nil, err
	}

	schema := table.MustSchema(
		table.Column{Name: "parameter", Kind: table.KindString},
		table.Column{Name: "value", Kind: table.KindFloat},
	)
	out := table.New(schema)
	_ = out.AppendRow(table.String("carrying_capacity"), table.Float(m.K))
	_ = out.AppendRow(table.String("growth_rate_per_day"), table.Float(m.R))
	_ = out.AppendRow(table.String("inflection_day"), table.Float(m.T0))
	_ = out.AppendRow(table.String("predicted_at_latest"), table.Float(m.Predict(latest.Sub(start).Hours()/24)))
	return out, nil
}

// statesAnalysis reduces the US county-level series to per-state totals,
// joins county populations, derives per-thousand rates, and fits deaths
// per thousand against cases per thousand across states.
func statesAnalysis(confirmedUS, deathsUS *table.Table) (states, fit *table.Table, err error) {
	stateIDs := []string{"Province_State"}
	casesLong, err := pipeline.Reshape(confirmedUS, stateIDs, covidDatePattern, "date", "cases")
	if err != nil {
		return nil, nil, err
	}
	deathsLong, err := pipeline.Reshape(deathsUS, stateIDs, covidDatePattern, "date", "deaths")
	if err != nil {
		return nil, nil, err
	}
	latest, err := latestDate(casesLong, "date")
	if err != nil {
		return nil, nil, err
	}

	stateCases, err := pipeline.GroupSum(atDate(casesLong, "date", latest), stateIDs, "cases", "cases")
	if err != nil {
		return nil, nil, err
	}
	stateDeaths, err := pipeline.GroupSum(atDate(deathsLong, "date", latest), stateIDs, "deaths", "deaths")
	if err != nil {
		return nil, nil, err
	}
	// The deaths file carries county populations; summed per state they
	// give the denominator for the per-thousand rates.
	statePop, err := pipeline.GroupSum(deathsUS, stateIDs, "Population", "population")
	if err != nil {
		return nil, nil, err
	}

	states, err = pipeline.Join(stateCases, stateDeaths, "Province_State")
	if err != nil {
		return nil, nil, err
	}
	states, err = pipeline.Join(states, statePop, "Province_State")
	if err != nil {
		return nil, nil, err
	}
	states, err = pipeline.RatePer(states, "cases", "population", 1000, "cases_per_thou")
	if err != nil {
		return nil, nil, err
	}
	states, err = pipeline.RatePer(states, "deaths", "population", 1000, "deaths_per_thou")
	if err != nil {
		return nil, nil, err
	}

	var x, y []float64
	for row := 0; row < states.NumRows(); row++ {
		cx, cok := states.Float(row, "cases_per_thou")
		dy, dok := states.Float(row, "deaths_per_thou")
		if cok && dok {
			x = append(x, cx)
			y = append(y, dy)
		}
	}
	slope, intercept, err := stats.LinearFit(x, y)
	if err != nil {
		return nil, nil, err
	}
	fit = linearFit{slope: slope, intercept: intercept}.asTable()
	return states, fit, nil
}
