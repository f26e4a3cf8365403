package domain

import (
	"cmp"
	"slices"

	"github.com/aclements/go-moremath/stats"
)

// BoroughCanopy is the mean canopy cover across a borough's requests.
type BoroughCanopy struct {
	BoroughName     string   `json:"borough_name"`
	MeanCanopyCover *float64 `json:"mean_canopy_cover"`
}

// BoroughYearCalls counts requests per start year and borough.
type BoroughYearCalls struct {
	Year        string `json:"year"`
	BoroughName string `json:"borough_name"`
	TotalCalls  int    `json:"total_calls"`
}

// BoroughYearCategoryCalls counts requests per start year, borough and category.
type BoroughYearCategoryCalls struct {
	Year        string `json:"year"`
	BoroughName string `json:"borough_name"`
	Category    string `json:"category"`
	TotalCalls  int    `json:"total_calls"`
}

// CommunityBoardSummary counts requests and averages canopy cover per
// community board.
type CommunityBoardSummary struct {
	CommunityBoardName string   `json:"community_board_name"`
	BoroughName        string   `json:"borough_name"`
	TotalCalls         int      `json:"total_calls"`
	MeanCanopyCover    *float64 `json:"mean_canopy_cover"`
}

// CommunityBoardYearCategoryCalls counts requests per start year, community
// board and category.
type CommunityBoardYearCategoryCalls struct {
	Year               string `json:"year"`
	CommunityBoardName string `json:"community_board_name"`
	BoroughName        string `json:"borough_name"`
	Category           string `json:"category"`
	TotalCalls         int    `json:"total_calls"`
}

// Summaries bundles every grouped aggregate of the joined table.
type Summaries struct {
	ByBorough                    []BoroughCanopy                   `json:"by_borough"`
	ByYearBorough                []BoroughYearCalls                `json:"by_year_borough"`
	ByYearBoroughCategory        []BoroughYearCategoryCalls        `json:"by_year_borough_category"`
	ByCommunityBoard             []CommunityBoardSummary           `json:"by_community_board"`
	ByYearCommunityBoardCategory []CommunityBoardYearCategoryCalls `json:"by_year_community_board_category"`
}

// Summarize runs every aggregate over the joined table.
func Summarize(rows []JoinedRecord) Summaries {
	return Summaries{
		ByBorough:                    SummarizeByBorough(rows),
		ByYearBorough:                SummarizeByYearBorough(rows),
		ByYearBoroughCategory:        SummarizeByYearBoroughCategory(rows),
		ByCommunityBoard:             SummarizeByCommunityBoard(rows),
		ByYearCommunityBoardCategory: SummarizeByYearCommunityBoardCategory(rows),
	}
}

// group accumulates one aggregate bucket. calls counts every row; canopy
// only collects non-nil covers.
type group struct {
	calls  int
	canopy []float64
}

func (g *group) meanCanopy() *float64 {
	if len(g.canopy) == 0 {
		return nil
	}
	m := stats.Mean(g.canopy)
	return &m
}

// groupBy buckets rows by key and returns the keys in first-seen order.
func groupBy[K comparable](rows []JoinedRecord, key func(*JoinedRecord) K) ([]K, map[K]*group) {
	var keys []K
	groups := make(map[K]*group)
	for i := range rows {
		k := key(&rows[i])
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			keys = append(keys, k)
		}
		g.calls++
		if c := rows[i].CanopyCover; c != nil {
			g.canopy = append(g.canopy, *c)
		}
	}
	return keys, groups
}

// SummarizeByBorough averages canopy cover per borough, ignoring rows without
// a canopy record. Rows are ordered by borough name.
func SummarizeByBorough(rows []JoinedRecord) []BoroughCanopy {
	keys, groups := groupBy(rows, func(r *JoinedRecord) string { return r.BoroughName })

	out := make([]BoroughCanopy, 0, len(keys))
	for _, k := range keys {
		out = append(out, BoroughCanopy{BoroughName: k, MeanCanopyCover: groups[k].meanCanopy()})
	}
	slices.SortFunc(out, func(a, b BoroughCanopy) int {
		return cmp.Compare(a.BoroughName, b.BoroughName)
	})
	return out
}

// SummarizeByYearBorough counts requests per (year, borough), busiest first.
func SummarizeByYearBorough(rows []JoinedRecord) []BoroughYearCalls {
	type key struct{ year, borough string }
	keys, groups := groupBy(rows, func(r *JoinedRecord) key {
		return key{r.Year(), r.BoroughName}
	})

	out := make([]BoroughYearCalls, 0, len(keys))
	for _, k := range keys {
		out = append(out, BoroughYearCalls{Year: k.year, BoroughName: k.borough, TotalCalls: groups[k].calls})
	}
	slices.SortFunc(out, func(a, b BoroughYearCalls) int {
		return cmp.Or(
			cmp.Compare(b.TotalCalls, a.TotalCalls),
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.BoroughName, b.BoroughName),
		)
	})
	return out
}

// SummarizeByYearBoroughCategory counts requests per (year, borough,
// category), busiest first.
func SummarizeByYearBoroughCategory(rows []JoinedRecord) []BoroughYearCategoryCalls {
	type key struct{ year, borough, category string }
	keys, groups := groupBy(rows, func(r *JoinedRecord) key {
		return key{r.Year(), r.BoroughName, r.Category}
	})

	out := make([]BoroughYearCategoryCalls, 0, len(keys))
	for _, k := range keys {
		out = append(out, BoroughYearCategoryCalls{
			Year:        k.year,
			BoroughName: k.borough,
			Category:    k.category,
			TotalCalls:  groups[k].calls,
		})
	}
	slices.SortFunc(out, func(a, b BoroughYearCategoryCalls) int {
		return cmp.Or(
			cmp.Compare(b.TotalCalls, a.TotalCalls),
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.BoroughName, b.BoroughName),
			cmp.Compare(a.Category, b.Category),
		)
	})
	return out
}

// SummarizeByCommunityBoard counts requests and averages canopy cover per
// community board, busiest first. Joint interest areas
// ([NonCommunityBoardCodes]) are left out.
func SummarizeByCommunityBoard(rows []JoinedRecord) []CommunityBoardSummary {
	type key struct{ board, borough string }
	boards := make([]JoinedRecord, 0, len(rows))
	for i := range rows {
		if !IsNonCommunityBoard(rows[i].CommunityBoardName) {
			boards = append(boards, rows[i])
		}
	}
	keys, groups := groupBy(boards, func(r *JoinedRecord) key {
		return key{r.CommunityBoardName, r.BoroughName}
	})

	out := make([]CommunityBoardSummary, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		out = append(out, CommunityBoardSummary{
			CommunityBoardName: k.board,
			BoroughName:        k.borough,
			TotalCalls:         g.calls,
			MeanCanopyCover:    g.meanCanopy(),
		})
	}
	slices.SortFunc(out, func(a, b CommunityBoardSummary) int {
		return cmp.Or(
			cmp.Compare(b.TotalCalls, a.TotalCalls),
			cmp.Compare(a.CommunityBoardName, b.CommunityBoardName),
			cmp.Compare(a.BoroughName, b.BoroughName),
		)
	})
	return out
}

// SummarizeByYearCommunityBoardCategory counts requests per (year, community
// board, borough, category), busiest first.
func SummarizeByYearCommunityBoardCategory(rows []JoinedRecord) []CommunityBoardYearCategoryCalls {
	type key struct{ year, board, borough, category string }
	keys, groups := groupBy(rows, func(r *JoinedRecord) key {
		return key{r.Year(), r.CommunityBoardName, r.BoroughName, r.Category}
	})

	out := make([]CommunityBoardYearCategoryCalls, 0, len(keys))
	for _, k := range keys {
		out = append(out, CommunityBoardYearCategoryCalls{
			Year:               k.year,
			CommunityBoardName: k.board,
			BoroughName:        k.borough,
			Category:           k.category,
			TotalCalls:         groups[k].calls,
		})
	}
	slices.SortFunc(out, func(a, b CommunityBoardYearCategoryCalls) int {
		return cmp.Or(
			cmp.Compare(b.TotalCalls, a.TotalCalls),
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.CommunityBoardName, b.CommunityBoardName),
			cmp.Compare(a.BoroughName, b.BoroughName),
			cmp.Compare(a.Category, b.Category),
		)
	})
	return out
}
