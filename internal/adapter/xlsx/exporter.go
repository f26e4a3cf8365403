// Package xlsx exports report summaries to an Excel workbook, one sheet per
// summary table.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/nyc-forestry-etl/internal/domain"
)

// Sheet names.
const (
	SheetOverview              = "Overview"
	SheetByBorough             = "By borough"
	SheetByYearBorough         = "By year, borough"
	SheetByYearBoroughCategory = "By year, borough, category"
	SheetByCommunityBoard      = "By community board"
	SheetByYearBoardCategory   = "By year, board, category"
	defaultSheet               = "Sheet1"
)

// Exporter writes a report workbook to path.
// It implements pipeline.Loader.
type Exporter struct {
	path   string
	logger *slog.Logger
}

// NewExporter creates an Exporter writing to path.
func NewExporter(path string, logger *slog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

func (e *Exporter) Load(_ context.Context, report domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	for _, s := range sheets(report) {
		if err := writeSheet(f, s); err != nil {
			return fmt.Errorf("write sheet %q: %w", s.name, err)
		}
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	e.logger.Info("workbook written", "path", e.path)
	return nil
}

type sheet struct {
	name    string
	headers []any
	rows    [][]any
}

func writeSheet(f *excelize.File, s sheet) error {
	if _, err := f.NewSheet(s.name); err != nil {
		return err
	}
	if err := f.SetSheetRow(s.name, "A1", &s.headers); err != nil {
		return err
	}
	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// canopyCell leaves the cell empty when there is no mean so spreadsheet
// averages skip it.
func canopyCell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func sheets(r domain.Report) []sheet {
	c := r.Clean
	overview := sheet{
		name:    SheetOverview,
		headers: []any{"Metric", "Value"},
		rows: [][]any{
			{"Generated at", r.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")},
			{"Rows read", c.Read},
			{"Dropped: invalid community board code", c.InvalidCode},
			{"Dropped: missing start date", c.MissingStart},
			{"Dropped: open case", c.OpenCase},
			{"Dropped: excluded category", c.ExcludedCategory},
			{"Rows retained", c.Retained},
			{"Joined rows", r.JoinedRows},
			{"Rows without canopy record", r.CanopyMisses},
		},
	}

	byBorough := sheet{name: SheetByBorough, headers: []any{"Borough", "Mean canopy cover"}}
	for _, row := range r.ByBorough {
		byBorough.rows = append(byBorough.rows, []any{row.BoroughName, canopyCell(row.MeanCanopyCover)})
	}

	byYearBorough := sheet{name: SheetByYearBorough, headers: []any{"Year", "Borough", "Total calls"}}
	for _, row := range r.ByYearBorough {
		byYearBorough.rows = append(byYearBorough.rows, []any{row.Year, row.BoroughName, row.TotalCalls})
	}

	byYearBoroughCategory := sheet{name: SheetByYearBoroughCategory, headers: []any{"Year", "Borough", "Category", "Total calls"}}
	for _, row := range r.ByYearBoroughCategory {
		byYearBoroughCategory.rows = append(byYearBoroughCategory.rows,
			[]any{row.Year, row.BoroughName, row.Category, row.TotalCalls})
	}

	byBoard := sheet{name: SheetByCommunityBoard, headers: []any{"Community board", "Borough", "Total calls", "Mean canopy cover"}}
	for _, row := range r.ByCommunityBoard {
		byBoard.rows = append(byBoard.rows,
			[]any{row.CommunityBoardName, row.BoroughName, row.TotalCalls, canopyCell(row.MeanCanopyCover)})
	}

	byYearBoardCategory := sheet{name: SheetByYearBoardCategory, headers: []any{"Year", "Community board", "Borough", "Category", "Total calls"}}
	for _, row := range r.ByYearCommunityBoardCategory {
		byYearBoardCategory.rows = append(byYearBoardCategory.rows,
			[]any{row.Year, row.CommunityBoardName, row.BoroughName, row.Category, row.TotalCalls})
	}

	return []sheet{overview, byBorough, byYearBorough, byYearBoroughCategory, byBoard, byYearBoardCategory}
}
