package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/nyc-forestry-etl/internal/domain"
	"github.com/couchcryptid/nyc-forestry-etl/internal/observability"
)

// Extractor loads both input tables.
type Extractor interface {
	Extract(ctx context.Context) (domain.Dataset, error)
}

// Transformer cleans, joins and summarizes a dataset.
type Transformer interface {
	Transform(ctx context.Context, ds domain.Dataset) (domain.Report, error)
}

// Loader delivers a finished report to one destination.
type Loader interface {
	Load(ctx context.Context, report domain.Report) error
}

// Pipeline runs extract → transform → load exactly once. Any stage error
// aborts the run; there is no partial success.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     map[string]Loader
	order       []string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline with the given stages and observability. Loaders
// are added with AddLoader.
func New(e Extractor, t Transformer, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     make(map[string]Loader),
		logger:      logger,
		metrics:     metrics,
	}
}

// AddLoader registers a named sink. Sinks run in registration order.
func (p *Pipeline) AddLoader(name string, l Loader) {
	if _, ok := p.loaders[name]; !ok {
		p.order = append(p.order, name)
	}
	p.loaders[name] = l
}

// Run executes the pipeline and returns the report it delivered.
func (p *Pipeline) Run(ctx context.Context) (domain.Report, error) {
	p.logger.Info("pipeline started", "sinks", p.order)

	start := time.Now()
	ds, err := p.extractor.Extract(ctx)
	if err != nil {
		return domain.Report{}, fmt.Errorf("extract: %w", err)
	}
	p.observeStage("extract", start)
	p.metrics.RowsRead.WithLabelValues("requests").Add(float64(len(ds.Requests)))
	p.metrics.RowsRead.WithLabelValues("canopy").Add(float64(len(ds.Canopy)))

	start = time.Now()
	report, err := p.transformer.Transform(ctx, ds)
	if err != nil {
		return domain.Report{}, fmt.Errorf("transform: %w", err)
	}
	p.observeStage("transform", start)
	p.recordReport(report)

	start = time.Now()
	if err := p.load(ctx, report); err != nil {
		return report, err
	}
	p.observeStage("load", start)

	p.metrics.LastSuccess.SetToCurrentTime()
	p.logger.Info("pipeline finished",
		"rows_read", report.Clean.Read,
		"rows_retained", report.Clean.Retained,
		"canopy_misses", report.CanopyMisses,
	)
	return report, nil
}

// load hands the report to every sink, stopping at the first failure.
func (p *Pipeline) load(ctx context.Context, report domain.Report) error {
	for _, name := range p.order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		if err := p.loaders[name].Load(ctx, report); err != nil {
			p.metrics.LoadErrors.WithLabelValues(name).Inc()
			p.logger.Error("load failed", "sink", name, "error", err)
			return fmt.Errorf("load %s: %w", name, err)
		}
		p.logger.Debug("report delivered", "sink", name)
	}
	return nil
}

func (p *Pipeline) recordReport(r domain.Report) {
	p.metrics.RowsDropped.WithLabelValues("invalid_code").Add(float64(r.Clean.InvalidCode))
	p.metrics.RowsDropped.WithLabelValues("missing_start").Add(float64(r.Clean.MissingStart))
	p.metrics.RowsDropped.WithLabelValues("open_case").Add(float64(r.Clean.OpenCase))
	p.metrics.RowsDropped.WithLabelValues("excluded_category").Add(float64(r.Clean.ExcludedCategory))
	p.metrics.RowsRetained.Set(float64(r.Clean.Retained))
	p.metrics.CanopyMisses.Set(float64(r.CanopyMisses))

	p.metrics.SummaryRows.WithLabelValues("by_borough").Set(float64(len(r.ByBorough)))
	p.metrics.SummaryRows.WithLabelValues("by_year_borough").Set(float64(len(r.ByYearBorough)))
	p.metrics.SummaryRows.WithLabelValues("by_year_borough_category").Set(float64(len(r.ByYearBoroughCategory)))
	p.metrics.SummaryRows.WithLabelValues("by_community_board").Set(float64(len(r.ByCommunityBoard)))
	p.metrics.SummaryRows.WithLabelValues("by_year_community_board_category").Set(float64(len(r.ByYearCommunityBoardCategory)))
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// IsDataError reports whether err came from malformed or underivable input
// rather than from the environment (missing files, sink outages).
func IsDataError(err error) bool {
	var pe *domain.ParseError
	var dq *domain.DataQualityError
	return errors.As(err, &pe) || errors.As(err, &dq)
}
