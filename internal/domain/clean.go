package domain

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// communityBoardCodeLen is the length in characters of a valid code: borough
// digit plus a two-digit district, e.g. "101".
const communityBoardCodeLen = 3

// monthLayout truncates a timestamp to its year-month prefix.
const monthLayout = "2006-01"

// CleanStats counts rows dropped by each cleaning filter, in filter order.
type CleanStats struct {
	Read             int `json:"read"`
	InvalidCode      int `json:"invalid_code"`
	MissingStart     int `json:"missing_start"`
	OpenCase         int `json:"open_case"`
	ExcludedCategory int `json:"excluded_category"`
	Retained         int `json:"retained"`
}

// Dropped returns the total number of filtered rows.
func (s CleanStats) Dropped() int {
	return s.InvalidCode + s.MissingStart + s.OpenCase + s.ExcludedCategory
}

// CleanRequests filters raw service requests down to closed cases with a
// well-formed community board code, derives the borough and community board
// names, and returns the projection sorted by start month.
//
// Filters run in this order and each dropped row is counted once, against
// the first filter it fails:
//  1. community board code is not exactly three characters (runes, not bytes)
//  2. start date missing
//  3. end date missing (the case is still open)
//  4. category is in [ExcludedCategories]
//
// A row that passes every filter but whose first character is not a borough
// digit 1-5 aborts cleaning with a [*DataQualityError].
func CleanRequests(raws []RawServiceRequest) ([]ServiceRequest, CleanStats, error) {
	stats := CleanStats{Read: len(raws)}
	out := make([]ServiceRequest, 0, len(raws))

	for i := range raws {
		raw := &raws[i]
		switch {
		case utf8.RuneCountInString(raw.CommunityBoard) != communityBoardCodeLen:
			stats.InvalidCode++
			continue
		case raw.StartDate == nil:
			stats.MissingStart++
			continue
		case raw.EndDate == nil:
			stats.OpenCase++
			continue
		case IsExcludedCategory(raw.Category):
			stats.ExcludedCategory++
			continue
		}

		req, err := deriveRequest(raw)
		if err != nil {
			return nil, stats, err
		}
		out = append(out, req)
	}

	slices.SortStableFunc(out, func(a, b ServiceRequest) int {
		return strings.Compare(a.StartMonth, b.StartMonth)
	})

	stats.Retained = len(out)
	return out, stats, nil
}

// deriveRequest splits the community board code into its first character
// (the borough digit) and the district, and builds the projected row.
func deriveRequest(raw *RawServiceRequest) (ServiceRequest, error) {
	first, size := utf8.DecodeRuneInString(raw.CommunityBoard)
	district := raw.CommunityBoard[size:]
	borough, ok := lookupBoroughRune(first)
	if !ok {
		return ServiceRequest{}, &DataQualityError{
			Line: raw.Line,
			Code: raw.CommunityBoard,
			Err:  ErrUnknownBorough,
		}
	}

	return ServiceRequest{
		BoroughName:        borough.Name,
		CommunityBoardName: borough.Initials + district,
		StartMonth:         truncateMonth(*raw.StartDate),
		EndMonth:           truncateMonth(*raw.EndDate),
		Status:             raw.Status,
		Priority:           raw.Priority,
		Category:           raw.Category,
	}, nil
}

func lookupBoroughRune(r rune) (Borough, bool) {
	if r >= utf8.RuneSelf {
		return Borough{}, false
	}
	return LookupBorough(byte(r))
}

func truncateMonth(t time.Time) string {
	return t.Format(monthLayout)
}
