// Command validate performs end-to-end integrity checks on real forestry and
// canopy exports. It loads both files, re-runs cleaning, the canopy join and
// every aggregate, and checks each stage's output against its guarantees.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -requests data/Forestry_Service_Requests.csv \
//	  -canopy data/Tree_Canopy_Community_District.csv
//
// Exit status is 0 when every phase passes, 1 on a failed phase or an
// unreadable input, and 2 when the input itself is malformed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/couchcryptid/nyc-forestry-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/nyc-forestry-etl/internal/config"
	"github.com/couchcryptid/nyc-forestry-etl/internal/domain"
	"github.com/couchcryptid/nyc-forestry-etl/internal/pipeline"
)

// maxErrorsPerPhase keeps the report readable on large exports.
const maxErrorsPerPhase = 25

var (
	boardNameRe = regexp.MustCompile(`^(MN|BX|BK|QN|SI)\d{2}$`)
	monthRe     = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

	boroughByInitials = map[string]string{
		"MN": "Manhattan",
		"BX": "Bronx",
		"BK": "Brooklyn",
		"QN": "Queens",
		"SI": "Staten Island",
	}
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	errors  []string
	dropped int
}

func (p *phase) errorf(format string, args ...any) {
	if len(p.errors) >= maxErrorsPerPhase {
		p.dropped++
		return
	}
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// Exit codes, shared with cmd/report.
const (
	exitOK        = 0
	exitFailure   = 1
	exitDataError = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(out, "FATAL: load config: %v\n", err)
		return exitFailure
	}
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.RequestsPath, "requests", cfg.RequestsPath, "service request CSV export")
	fs.StringVar(&cfg.CanopyPath, "canopy", cfg.CanopyPath, "canopy coverage CSV export")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "FATAL: invalid config: %v\n", err)
		return exitFailure
	}

	fmt.Fprintln(out, "=== Forestry × Canopy Integrity Validation ===")
	fmt.Fprintln(out)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ds, err := csvsource.NewSource(cfg, logger).Extract(context.Background())
	if err != nil {
		fmt.Fprintf(out, "FATAL: load inputs: %v\n", err)
		return failureCode(err)
	}

	cleaned, stats, err := domain.CleanRequests(ds.Requests)
	if err != nil {
		fmt.Fprintf(out, "FATAL: clean: %v\n", err)
		return failureCode(err)
	}
	joined, misses := domain.JoinCanopy(cleaned, ds.Canopy)
	summaries := domain.Summarize(joined)

	phases := []*phase{
		validateCleaning(stats, cleaned),
		validateCanopy(ds.Canopy),
		validateJoin(cleaned, ds.Canopy, joined, misses),
		validateSummaries(joined, summaries),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors)+p.dropped)
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %d requests read, %d cleaned, %d joined (%d without canopy), %d canopy records\n",
		stats.Read, stats.Retained, len(joined), misses, len(ds.Canopy))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
		if p.dropped > 0 {
			fmt.Fprintf(out, "  ... %d more\n", p.dropped)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return exitOK
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return exitFailure
}

// failureCode maps a load or clean error to the same exit code cmd/report
// uses for it.
func failureCode(err error) int {
	if pipeline.IsDataError(err) {
		return exitDataError
	}
	return exitFailure
}

// ── Phase 1: Cleaning ──
// Every cleaned row has a well-formed board name, both months and a kept
// category, and the drop counters account for every input row.

func validateCleaning(stats domain.CleanStats, cleaned []domain.ServiceRequest) *phase {
	p := &phase{name: "Phase 1: Cleaning (filters + derivation)"}

	if stats.Read != stats.Dropped()+stats.Retained {
		p.errorf("counters: read %d != dropped %d + retained %d", stats.Read, stats.Dropped(), stats.Retained)
	}
	if stats.Retained != len(cleaned) {
		p.errorf("counters: retained %d but %d rows returned", stats.Retained, len(cleaned))
	}

	for i, r := range cleaned {
		checkCleanedRow(p, i, r)
	}

	if !slices.IsSortedFunc(cleaned, func(a, b domain.ServiceRequest) int {
		return strings.Compare(a.StartMonth, b.StartMonth)
	}) {
		p.errorf("rows are not sorted by start month")
	}
	return p
}

func checkCleanedRow(p *phase, i int, r domain.ServiceRequest) {
	if !boardNameRe.MatchString(r.CommunityBoardName) {
		p.errorf("row %d: community board %q is not <initials><district>", i, r.CommunityBoardName)
	} else if want := boroughByInitials[r.CommunityBoardName[:2]]; want != r.BoroughName {
		p.errorf("row %d: board %s belongs to %s, got borough %q", i, r.CommunityBoardName, want, r.BoroughName)
	}
	if !monthRe.MatchString(r.StartMonth) {
		p.errorf("row %d: start month %q is not YYYY-MM", i, r.StartMonth)
	}
	if !monthRe.MatchString(r.EndMonth) {
		p.errorf("row %d: end month %q is not YYYY-MM", i, r.EndMonth)
	}
	if domain.IsExcludedCategory(r.Category) {
		p.errorf("row %d: excluded category %q survived cleaning", i, r.Category)
	}
}

// ── Phase 2: Canopy ──
// Canopy keys are unique board names and covers are proportions.

func validateCanopy(canopy []domain.CanopyRecord) *phase {
	p := &phase{name: "Phase 2: Canopy records"}

	seen := make(map[string]int, len(canopy))
	for i, rec := range canopy {
		if prev, ok := seen[rec.CommunityBoardName]; ok {
			p.errorf("record %d: duplicate key %q (first at record %d)", i, rec.CommunityBoardName, prev)
		}
		seen[rec.CommunityBoardName] = i

		if !boardNameRe.MatchString(rec.CommunityBoardName) {
			p.errorf("record %d: key %q is not a community board name", i, rec.CommunityBoardName)
		}
		if c := rec.CanopyCover; c != nil && (*c < 0 || *c > 1) {
			p.errorf("record %d (%s): canopy cover %g outside 0..1", i, rec.CommunityBoardName, *c)
		}
	}
	return p
}

// ── Phase 3: Join ──
// A left join keeps every cleaned row, multiplied only by duplicate keys.

func validateJoin(cleaned []domain.ServiceRequest, canopy []domain.CanopyRecord, joined []domain.JoinedRecord, misses int) *phase {
	p := &phase{name: "Phase 3: Canopy join (left join cardinality)"}

	multiplicity := make(map[string]int, len(canopy))
	for _, rec := range canopy {
		multiplicity[rec.CommunityBoardName]++
	}

	expected, expectedMisses := 0, 0
	for _, r := range cleaned {
		if n := multiplicity[r.CommunityBoardName]; n > 0 {
			expected += n
		} else {
			expected++
			expectedMisses++
		}
	}
	if len(joined) != expected {
		p.errorf("joined rows: expected %d, got %d", expected, len(joined))
	}
	if misses != expectedMisses {
		p.errorf("canopy misses: expected %d, got %d", expectedMisses, misses)
	}

	for code := range domain.NonCommunityBoardCodes {
		if multiplicity[code] > 0 {
			p.errorf("joint interest area %s has a canopy record", code)
		}
	}
	return p
}

// ── Phase 4: Summaries ──
// Totals reconcile with the joined table and joint interest areas never
// reach the community board summary.

func validateSummaries(joined []domain.JoinedRecord, s domain.Summaries) *phase {
	p := &phase{name: "Phase 4: Summaries (totals + exclusions)"}

	checkTotal(p, "by year+borough", len(joined), sumCalls(s.ByYearBorough, func(r domain.BoroughYearCalls) int { return r.TotalCalls }))
	checkTotal(p, "by year+borough+category", len(joined), sumCalls(s.ByYearBoroughCategory, func(r domain.BoroughYearCategoryCalls) int { return r.TotalCalls }))
	checkTotal(p, "by year+board+category", len(joined), sumCalls(s.ByYearCommunityBoardCategory, func(r domain.CommunityBoardYearCategoryCalls) int { return r.TotalCalls }))

	jointInterest := 0
	for _, r := range joined {
		if domain.IsNonCommunityBoard(r.CommunityBoardName) {
			jointInterest++
		}
	}
	checkTotal(p, "by community board", len(joined)-jointInterest, sumCalls(s.ByCommunityBoard, func(r domain.CommunityBoardSummary) int { return r.TotalCalls }))

	for _, r := range s.ByCommunityBoard {
		if domain.IsNonCommunityBoard(r.CommunityBoardName) {
			p.errorf("by community board: joint interest area %s present", r.CommunityBoardName)
		}
		if m := r.MeanCanopyCover; m != nil && (*m < 0 || *m > 1) {
			p.errorf("by community board: %s mean canopy %g outside 0..1", r.CommunityBoardName, *m)
		}
	}
	for _, r := range s.ByBorough {
		if m := r.MeanCanopyCover; m != nil && (*m < 0 || *m > 1) {
			p.errorf("by borough: %s mean canopy %g outside 0..1", r.BoroughName, *m)
		}
	}

	if !slices.IsSortedFunc(s.ByCommunityBoard, func(a, b domain.CommunityBoardSummary) int {
		return b.TotalCalls - a.TotalCalls
	}) {
		p.errorf("by community board: not sorted by total calls descending")
	}
	return p
}

func checkTotal(p *phase, name string, want, got int) {
	if want != got {
		p.errorf("%s: total calls %d, expected %d", name, got, want)
	}
}

func sumCalls[T any](rows []T, calls func(T) int) int {
	n := 0
	for _, r := range rows {
		n += calls(r)
	}
	return n
}
