package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "forestry_report"
	jobName   = "forestry_canopy_report"
)

// Metrics holds the Prometheus counters, gauges and histograms for one report
// run. Each Metrics owns its registry, so a run (or a test) never collides
// with another.
type Metrics struct {
	Registry *prometheus.Registry

	RowsRead     *prometheus.CounterVec // labels: file={requests,canopy}
	RowsDropped  *prometheus.CounterVec // labels: reason={invalid_code,missing_start,open_case,excluded_category}
	RowsRetained prometheus.Gauge
	CanopyMisses prometheus.Gauge
	SummaryRows  *prometheus.GaugeVec // labels: summary

	StageDuration *prometheus.HistogramVec // labels: stage={extract,transform,load}
	LoadErrors    *prometheus.CounterVec   // labels: sink
	LastSuccess   prometheus.Gauge
}

// NewMetrics creates all report metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Rows parsed from each input file.",
		}, []string{"file"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Service requests removed during cleaning, by first failing filter.",
		}, []string{"reason"}),
		RowsRetained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_retained",
			Help:      "Service requests kept after cleaning.",
		}),
		CanopyMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "canopy_misses",
			Help:      "Cleaned requests whose community board has no canopy record.",
		}),
		SummaryRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summary_rows",
			Help:      "Rows in each summary table.",
		}, []string{"summary"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Summary sink failures.",
		}, []string{"sink"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed every stage.",
		}),
	}

	m.Registry.MustRegister(
		m.RowsRead,
		m.RowsDropped,
		m.RowsRetained,
		m.CanopyMisses,
		m.SummaryRows,
		m.StageDuration,
		m.LoadErrors,
		m.LastSuccess,
	)

	return m
}

// Push sends the registry to a Prometheus Pushgateway. A batch run exits
// before any scrape could reach it.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if err := push.New(url, jobName).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
