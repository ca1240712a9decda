package h1b

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultStatus is the case status counted when none is configured.
const DefaultStatus = "CERTIFIED"

// Tally counts occurrences per grouping key.
type Tally struct {
	counts map[string]int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Inc adds one to key's count.
func (t *Tally) Inc(key string) {
	t.counts[key]++
}

// Get returns key's count, zero when absent.
func (t *Tally) Get(key string) int {
	return t.counts[key]
}

// Len returns the number of distinct keys.
func (t *Tally) Len() int {
	return len(t.counts)
}

// Sum returns the total of all counts.
func (t *Tally) Sum() int {
	var n int
	for _, c := range t.counts {
		n += c
	}
	return n
}

// Aggregator accumulates certified-application counts for one run.
// Occupations.Sum() and States.Sum() always equal Total.
type Aggregator struct {
	Occupations *Tally
	States      *Tally
	Total       int

	RowsRead    int
	RowsSkipped int

	cols   Columns
	status string
}

// NewAggregator creates an aggregator over rows laid out as cols. An empty status
// falls back to DefaultStatus.
func NewAggregator(cols Columns, status string) *Aggregator {
	if status == "" {
		status = DefaultStatus
	}
	return &Aggregator{
		Occupations: NewTally(),
		States:      NewTally(),
		cols:        cols,
		status:      status,
	}
}

// Add processes one data row. It reports false when the row is too short to hold
// every resolved column; such rows are counted in RowsSkipped and otherwise ignored.
func (a *Aggregator) Add(row []string) bool {
	a.RowsRead++
	if len(row) <= a.cols.Max() {
		a.RowsSkipped++
		zap.L().Debug("h1b: skipping malformed row",
			zap.Int("row", a.RowsRead),
			zap.Int("fields", len(row)),
			zap.Int("required", a.cols.Max()+1),
		)
		return false
	}

	if CleanValue(row[a.cols.Status]) != a.status {
		return true
	}

	a.Total++
	a.Occupations.Inc(CleanValue(row[a.cols.Occupation]))
	a.States.Inc(CleanValue(row[a.cols.Location]))
	return true
}

// CleanValue strips every double-quote character. Case, whitespace, and other
// punctuation are preserved.
func CleanValue(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}
