package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/nyc-forestry-etl/internal/domain"
)

// ReportTransformer implements Transformer using the domain clean, join and
// summarize functions.
type ReportTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a ReportTransformer.
func NewTransformer(logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{logger: logger}
}

func (t *ReportTransformer) Transform(ctx context.Context, ds domain.Dataset) (domain.Report, error) {
	cleaned, stats, err := domain.CleanRequests(ds.Requests)
	if err != nil {
		return domain.Report{}, err
	}
	t.logger.Info("service requests cleaned",
		"read", stats.Read,
		"retained", stats.Retained,
		"invalid_code", stats.InvalidCode,
		"missing_start", stats.MissingStart,
		"open_case", stats.OpenCase,
		"excluded_category", stats.ExcludedCategory,
	)

	if err := ctx.Err(); err != nil {
		return domain.Report{}, err
	}

	joined, misses := domain.JoinCanopy(cleaned, ds.Canopy)
	if misses > 0 {
		t.logger.Info("requests without canopy record", "rows", misses)
	}

	return domain.NewReport(stats, joined, misses), nil
}
