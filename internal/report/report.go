// Package report implements the two built-in exploratory analyses:
// NYPD shooting incidents and the JHU COVID-19 time series. Each report
// is a single batch run of the tidy-data pipeline producing named output
// tables for the presentation layer.
package report

import (
	"context"
	_ "embed"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tidytable/internal/config"
	"tidytable/internal/domain"
	"tidytable/internal/loader"
	"tidytable/internal/table"
)

//go:embed sources.yaml
var sourcesYAML []byte

// Chart names the presentation a report output is intended for. The
// pipeline's contract ends at "a Table with a named, typed schema" — the
// chart type is a hint, not behavior.
type Chart string

const (
	ChartBar        Chart = "bar"
	ChartStackedBar Chart = "stacked bar"
	ChartLine       Chart = "line"
	ChartPointMap   Chart = "point-map"
	ChartTable      Chart = "table"
)

// Output is one named result table of a report run.
type Output struct {
	Name  string
	Title string
	Chart Chart
	Table *table.Table
}

// Runner wires the loader to the built-in reports.
type Runner struct {
	loader  *loader.Loader
	sources []loader.Source
	logger  *slog.Logger
}

// NewRunner builds a Runner from config. offline restricts all fetches
// to the local cache.
func NewRunner(cfg *config.Config, offline bool, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sources, err := loader.ParseSources(sourcesYAML)
	if err != nil {
		return nil, err
	}
	fetcher := loader.NewFetcher(loader.FetcherOptions{
		Timeout:  cfg.HTTPTimeout,
		RateRPS:  cfg.RateLimitRPS,
		CacheDir: cfg.CacheDir,
		Offline:  offline,
		Logger:   logger,
	})
	return &Runner{
		loader:  loader.New(fetcher, logger),
		sources: sources,
		logger:  logger,
	}, nil
}

// Sources returns the embedded dataset descriptors.
func (r *Runner) Sources() []loader.Source { return r.sources }

// Run executes the named report and returns its output tables.
func (r *Runner) Run(ctx context.Context, name string) ([]Output, error) {
	runID := uuid.New().String()
	log := r.logger.With("report", name, "run_id", runID)
	start := time.Now()
	log.Info("report started")

	var outputs []Output
	var err error
	switch name {
	case "shootings":
		outputs, err = r.runShootings(ctx, log)
	case "covid":
		outputs, err = r.runCovid(ctx, log)
	default:
		return nil, domain.ErrValidation("unknown report %q", name)
	}
	if err != nil {
		log.Error("report failed", "error", err)
		return nil, err
	}
	log.Info("report finished", "outputs", len(outputs), "elapsed", time.Since(start).Round(time.Millisecond))
	return outputs, nil
}

// source looks up a descriptor by name; the embedded file is validated at
// startup so a miss is a programming error surfaced as validation.
func (r *Runner) source(name string) (loader.Source, error) {
	src, ok := loader.Find(r.sources, name)
	if !ok {
		return loader.Source{}, domain.ErrValidation("source %q not declared in sources.yaml", name)
	}
	return src, nil
}
