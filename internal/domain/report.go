package domain

import "time"

// Report is the terminal artifact of one run: cleaning counters, join
// cardinality and every summary table.
type Report struct {
	GeneratedAt  time.Time  `json:"generated_at"`
	Clean        CleanStats `json:"clean"`
	JoinedRows   int        `json:"joined_rows"`
	CanopyMisses int        `json:"canopy_misses"`
	Summaries
}

// NewReport summarizes the joined table and stamps the report with the
// current time.
func NewReport(stats CleanStats, joined []JoinedRecord, misses int) Report {
	return Report{
		GeneratedAt:  clock.Now().UTC(),
		Clean:        stats,
		JoinedRows:   len(joined),
		CanopyMisses: misses,
		Summaries:    Summarize(joined),
	}
}
