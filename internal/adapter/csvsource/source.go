// Package csvsource loads the forestry service request and canopy exports.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/nyc-forestry-etl/internal/config"
	"github.com/couchcryptid/nyc-forestry-etl/internal/domain"
)

// Service request export columns consumed by the report.
const (
	ColumnStatus         = "SRStatus"
	ColumnCategory       = "SRCategory"
	ColumnPriority       = "SRPriority"
	ColumnCommunityBoard = "CommunityBoard"
	ColumnZIPCode        = "ZIPCode"
	ColumnInitiatedDate  = "InitiatedDate"
	ColumnClosedDate     = "ClosedDate"
)

var requestColumns = []string{
	ColumnStatus,
	ColumnCategory,
	ColumnPriority,
	ColumnCommunityBoard,
	ColumnZIPCode,
	ColumnInitiatedDate,
	ColumnClosedDate,
}

// Source reads both exports from disk.
// It implements pipeline.Extractor.
type Source struct {
	requestsPath      string
	canopyPath        string
	dateLayout        string
	canopyKeyColumn   string
	canopyValueColumn string
	logger            *slog.Logger
}

// NewSource creates a Source for the configured file paths and columns.
func NewSource(cfg *config.Config, logger *slog.Logger) *Source {
	return &Source{
		requestsPath:      cfg.RequestsPath,
		canopyPath:        cfg.CanopyPath,
		dateLayout:        cfg.DateLayout,
		canopyKeyColumn:   cfg.CanopyKeyColumn,
		canopyValueColumn: cfg.CanopyValueColumn,
		logger:            logger,
	}
}

// Extract loads both files fully into memory.
func (s *Source) Extract(ctx context.Context) (domain.Dataset, error) {
	requests, err := readFile(s.requestsPath, func(r io.Reader) ([]domain.RawServiceRequest, error) {
		return ReadServiceRequests(r, s.requestsPath, s.dateLayout)
	})
	if err != nil {
		return domain.Dataset{}, err
	}
	s.logger.Info("service requests loaded", "path", s.requestsPath, "rows", len(requests))

	if err := ctx.Err(); err != nil {
		return domain.Dataset{}, err
	}

	canopy, err := readFile(s.canopyPath, func(r io.Reader) ([]domain.CanopyRecord, error) {
		return ReadCanopy(r, s.canopyPath, s.canopyKeyColumn, s.canopyValueColumn)
	})
	if err != nil {
		return domain.Dataset{}, err
	}
	s.logger.Info("canopy records loaded", "path", s.canopyPath, "rows", len(canopy))

	return domain.Dataset{Requests: requests, Canopy: canopy}, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(f)
}

// ReadServiceRequests parses a service request export. Every row must have
// the header's column count. Community board and ZIP codes are kept as text;
// the two date columns are parsed with layout and left nil when empty.
func ReadServiceRequests(r io.Reader, path, layout string) ([]domain.RawServiceRequest, error) {
	cr, cols, err := openTable(r, path, requestColumns...)
	if err != nil {
		return nil, err
	}

	var out []domain.RawServiceRequest
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, wrapCSVError(path, err)
		}
		line, _ := cr.FieldPos(0)

		start, err := parseDate(row[cols[ColumnInitiatedDate]], layout)
		if err != nil {
			return nil, &domain.ParseError{Path: path, Line: line, Column: ColumnInitiatedDate, Err: err}
		}
		end, err := parseDate(row[cols[ColumnClosedDate]], layout)
		if err != nil {
			return nil, &domain.ParseError{Path: path, Line: line, Column: ColumnClosedDate, Err: err}
		}

		out = append(out, domain.RawServiceRequest{
			Line:           line,
			Status:         row[cols[ColumnStatus]],
			Category:       row[cols[ColumnCategory]],
			Priority:       row[cols[ColumnPriority]],
			CommunityBoard: strings.TrimSpace(row[cols[ColumnCommunityBoard]]),
			ZIPCode:        strings.TrimSpace(row[cols[ColumnZIPCode]]),
			StartDate:      start,
			EndDate:        end,
		})
	}
}

// ReadCanopy parses a canopy export, renaming keyColumn to the community
// board name. Blank canopy values are nil.
func ReadCanopy(r io.Reader, path, keyColumn, valueColumn string) ([]domain.CanopyRecord, error) {
	cr, cols, err := openTable(r, path, keyColumn, valueColumn)
	if err != nil {
		return nil, err
	}

	var out []domain.CanopyRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, wrapCSVError(path, err)
		}
		line, _ := cr.FieldPos(0)

		value, err := parseFloat(row[cols[valueColumn]])
		if err != nil {
			return nil, &domain.ParseError{Path: path, Line: line, Column: valueColumn, Err: err}
		}
		out = append(out, domain.CanopyRecord{
			CommunityBoardName: strings.TrimSpace(row[cols[keyColumn]]),
			CanopyCover:        value,
		})
	}
}

// openTable reads the header row and resolves the index of each required
// column.
func openTable(r io.Reader, path string, required ...string) (*csv.Reader, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &domain.ParseError{Path: path, Err: errors.New("empty file")}
	}
	if err != nil {
		return nil, nil, wrapCSVError(path, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		index[h] = i
	}

	cols := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := index[name]
		if !ok {
			return nil, nil, &domain.ParseError{Path: path, Column: name, Err: domain.ErrMissingColumn}
		}
		cols[name] = i
	}
	return cr, cols, nil
}

func wrapCSVError(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &domain.ParseError{Path: path, Line: pe.Line, Err: pe.Err}
	}
	return fmt.Errorf("read %s: %w", path, err)
}

func parseDate(s, layout string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q does not match %q", domain.ErrInvalidDate, s, layout)
	}
	return &t, nil
}

func parseFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidNumber, s)
	}
	return &v, nil
}
