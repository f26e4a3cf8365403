package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/nyc-forestry-etl/internal/domain"
	"github.com/couchcryptid/nyc-forestry-etl/internal/observability"
	"github.com/couchcryptid/nyc-forestry-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	ds  domain.Dataset
	err error
}

func (m *mockExtractor) Extract(_ context.Context) (domain.Dataset, error) {
	return m.ds, m.err
}

type mockTransformer struct {
	report domain.Report
	err    error
	called bool
}

func (m *mockTransformer) Transform(_ context.Context, _ domain.Dataset) (domain.Report, error) {
	m.called = true
	return m.report, m.err
}

type mockLoader struct {
	name   string
	err    error
	calls  *[]string
	loaded []domain.Report
}

func (m *mockLoader) Load(_ context.Context, r domain.Report) error {
	if m.calls != nil {
		*m.calls = append(*m.calls, m.name)
	}
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, r)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ts(year int, month time.Month) *time.Time {
	t := time.Date(year, month, 10, 8, 0, 0, 0, time.UTC)
	return &t
}

func sampleDataset() domain.Dataset {
	closed := func(code, category string, start *time.Time) domain.RawServiceRequest {
		return domain.RawServiceRequest{
			Status:         "Closed",
			Category:       category,
			Priority:       "A",
			CommunityBoard: code,
			StartDate:      start,
			EndDate:        ts(2022, time.December),
		}
	}
	open := closed("102", "Hazard", ts(2021, time.May))
	open.EndDate = nil

	v1, v2 := 0.2, 0.4
	return domain.Dataset{
		Requests: []domain.RawServiceRequest{
			closed("101", "Hazard", ts(2021, time.March)),
			closed("101", "Prune", ts(2020, time.January)),
			closed("226", "Hazard", ts(2021, time.April)),
			closed("X1", "Hazard", ts(2021, time.April)),
			closed("301", "Claims", ts(2021, time.April)),
			open,
		},
		Canopy: []domain.CanopyRecord{
			{CommunityBoardName: "MN01", CanopyCover: &v1},
			{CommunityBoardName: "BK01", CanopyCover: &v2},
		},
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var calls []string
	console := &mockLoader{name: "console", calls: &calls}
	kafka := &mockLoader{name: "kafka", calls: &calls}
	metrics := observability.NewMetrics()

	p := pipeline.New(&mockExtractor{ds: sampleDataset()}, pipeline.NewTransformer(discardLogger()), discardLogger(), metrics)
	p.AddLoader("console", console)
	p.AddLoader("kafka", kafka)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"console", "kafka"}, calls)
	require.Len(t, console.loaded, 1)
	assert.Equal(t, report, console.loaded[0])

	assert.Equal(t, domain.CleanStats{Read: 6, InvalidCode: 1, OpenCase: 1, ExcludedCategory: 1, Retained: 3}, report.Clean)
	assert.Equal(t, 3, report.JoinedRows)
	assert.Equal(t, 1, report.CanopyMisses)
	require.Len(t, report.ByCommunityBoard, 1, "BX26 is a joint interest area")
	assert.Equal(t, "MN01", report.ByCommunityBoard[0].CommunityBoardName)

	assert.InDelta(t, 6, testutil.ToFloat64(metrics.RowsRead.WithLabelValues("requests")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RowsRead.WithLabelValues("canopy")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RowsDropped.WithLabelValues("open_case")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.RowsRetained), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CanopyMisses), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SummaryRows.WithLabelValues("by_community_board")), 0)
	assert.Positive(t, testutil.ToFloat64(metrics.LastSuccess))
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	tfm := &mockTransformer{}
	ldr := &mockLoader{}
	parseErr := &domain.ParseError{Path: "requests.csv", Line: 7, Err: domain.ErrInvalidDate}

	p := pipeline.New(&mockExtractor{err: parseErr}, tfm, discardLogger(), observability.NewMetrics())
	p.AddLoader("console", ldr)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract")
	assert.True(t, pipeline.IsDataError(err))
	assert.False(t, tfm.called)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_TransformError(t *testing.T) {
	ds := domain.Dataset{Requests: []domain.RawServiceRequest{{
		CommunityBoard: "901",
		StartDate:      ts(2021, time.January),
		EndDate:        ts(2021, time.February),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetrics()

	p := pipeline.New(&mockExtractor{ds: ds}, pipeline.NewTransformer(discardLogger()), discardLogger(), metrics)
	p.AddLoader("console", ldr)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownBorough)
	assert.True(t, pipeline.IsDataError(err))
	assert.Empty(t, ldr.loaded)
	assert.Zero(t, testutil.ToFloat64(metrics.LastSuccess))
}

func TestPipeline_Run_LoaderErrorStopsRemainingSinks(t *testing.T) {
	var calls []string
	failing := &mockLoader{name: "kafka", calls: &calls, err: errors.New("broker down")}
	after := &mockLoader{name: "xlsx", calls: &calls}
	metrics := observability.NewMetrics()

	p := pipeline.New(&mockExtractor{ds: sampleDataset()}, pipeline.NewTransformer(discardLogger()), discardLogger(), metrics)
	p.AddLoader("kafka", failing)
	p.AddLoader("xlsx", after)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load kafka")
	assert.False(t, pipeline.IsDataError(err))
	assert.Equal(t, []string{"kafka"}, calls)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LoadErrors.WithLabelValues("kafka")), 0)
}

func TestPipeline_Run_ContextCancelledBeforeLoad(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{ds: sampleDataset()}, &mockTransformer{}, discardLogger(), observability.NewMetrics())
	p.AddLoader("console", ldr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ldr.loaded)
}

func TestReportTransformer_Transform(t *testing.T) {
	fixed := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	report, err := pipeline.NewTransformer(discardLogger()).Transform(context.Background(), sampleDataset())
	require.NoError(t, err)

	assert.Equal(t, fixed, report.GeneratedAt)
	require.Len(t, report.ByBorough, 2)
	assert.Equal(t, "Bronx", report.ByBorough[0].BoroughName)
	assert.Nil(t, report.ByBorough[0].MeanCanopyCover)
	assert.Equal(t, "Manhattan", report.ByBorough[1].BoroughName)
	assert.InDelta(t, 0.2, *report.ByBorough[1].MeanCanopyCover, 1e-9)
	assert.Equal(t, domain.BoroughYearCalls{Year: "2020", BoroughName: "Manhattan", TotalCalls: 1}, report.ByYearBorough[0])
}

func TestReportTransformer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline.NewTransformer(discardLogger()).Transform(ctx, sampleDataset())
	assert.ErrorIs(t, err, context.Canceled)
}
