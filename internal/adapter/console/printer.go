// Package console prints report summaries as terminal tables.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/couchcryptid/nyc-forestry-etl/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Printer writes every summary table of a report to w.
// It implements pipeline.Loader.
type Printer struct {
	w        io.Writer
	rowLimit int
}

// NewPrinter creates a Printer. rowLimit caps the rows shown per table; 0
// shows every row.
func NewPrinter(w io.Writer, rowLimit int) *Printer {
	return &Printer{w: w, rowLimit: rowLimit}
}

// section is one printable summary table.
type section struct {
	title   string
	headers []string
	rows    [][]string
}

func (p *Printer) Load(_ context.Context, report domain.Report) error {
	if _, err := fmt.Fprintln(p.w, titleStyle.Render("NYC forestry service requests × tree canopy")); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	c := report.Clean
	summary := fmt.Sprintf("generated %s · read %d · kept %d · dropped %d (bad code %d, no start %d, open %d, excluded category %d) · no canopy %d",
		report.GeneratedAt.Format("2006-01-02 15:04 MST"),
		c.Read, c.Retained, c.Dropped(), c.InvalidCode, c.MissingStart, c.OpenCase, c.ExcludedCategory,
		report.CanopyMisses)
	if _, err := fmt.Fprintln(p.w, noteStyle.Render(summary)); err != nil {
		return fmt.Errorf("print report: %w", err)
	}

	for _, s := range sections(report) {
		if err := p.printSection(s); err != nil {
			return fmt.Errorf("print %s: %w", s.title, err)
		}
	}
	return nil
}

func (p *Printer) printSection(s section) error {
	rows := s.rows
	note := ""
	if p.rowLimit > 0 && len(rows) > p.rowLimit {
		note = fmt.Sprintf("showing %d of %d rows", p.rowLimit, len(rows))
		rows = rows[:p.rowLimit]
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(s.headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if _, err := fmt.Fprintf(p.w, "\n%s\n%s\n", titleStyle.Render(s.title), t.String()); err != nil {
		return err
	}
	if note != "" {
		if _, err := fmt.Fprintln(p.w, noteStyle.Render(note)); err != nil {
			return err
		}
	}
	return nil
}

func sections(r domain.Report) []section {
	byBorough := make([][]string, 0, len(r.ByBorough))
	for _, row := range r.ByBorough {
		byBorough = append(byBorough, []string{row.BoroughName, FormatCanopy(row.MeanCanopyCover)})
	}

	byYearBorough := make([][]string, 0, len(r.ByYearBorough))
	for _, row := range r.ByYearBorough {
		byYearBorough = append(byYearBorough, []string{row.Year, row.BoroughName, strconv.Itoa(row.TotalCalls)})
	}

	byYearBoroughCategory := make([][]string, 0, len(r.ByYearBoroughCategory))
	for _, row := range r.ByYearBoroughCategory {
		byYearBoroughCategory = append(byYearBoroughCategory,
			[]string{row.Year, row.BoroughName, row.Category, strconv.Itoa(row.TotalCalls)})
	}

	byBoard := make([][]string, 0, len(r.ByCommunityBoard))
	for _, row := range r.ByCommunityBoard {
		byBoard = append(byBoard, []string{
			row.CommunityBoardName, row.BoroughName, strconv.Itoa(row.TotalCalls), FormatCanopy(row.MeanCanopyCover),
		})
	}

	byYearBoardCategory := make([][]string, 0, len(r.ByYearCommunityBoardCategory))
	for _, row := range r.ByYearCommunityBoardCategory {
		byYearBoardCategory = append(byYearBoardCategory, []string{
			row.Year, row.CommunityBoardName, row.BoroughName, row.Category, strconv.Itoa(row.TotalCalls),
		})
	}

	return []section{
		{"Mean canopy cover by borough", []string{"Borough", "Canopy cover"}, byBorough},
		{"Calls by year and borough", []string{"Year", "Borough", "Calls"}, byYearBorough},
		{"Calls by year, borough and category", []string{"Year", "Borough", "Category", "Calls"}, byYearBoroughCategory},
		{"Calls and canopy cover by community board", []string{"Board", "Borough", "Calls", "Canopy cover"}, byBoard},
		{"Calls by year, community board and category", []string{"Year", "Board", "Borough", "Category", "Calls"}, byYearBoardCategory},
	}
}

// FormatCanopy renders a canopy proportion as a percentage, or "n/a" when
// no canopy record contributed.
func FormatCanopy(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v*100, 'f', 1, 64) + "%"
}
