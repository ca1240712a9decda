package h1b

import (
	"bufio"
	"cmp"
	"io"
	"slices"
	"strconv"

	"github.com/rotisserie/eris"
)

// Report headers written as the first line of each output file.
const (
	OccupationsHeader = "TOP_OCCUPATIONS;NUMBER_CERTIFIED_APPLICATIONS;PERCENTAGE"
	StatesHeader      = "TOP_STATES;NUMBER_CERTIFIED_APPLICATIONS;PERCENTAGE"
)

// DefaultTopN is the number of ranked entries written per report.
const DefaultTopN = 10

// Entry is one ranked line of a report.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Percent formats Count as a share of total with one decimal digit, e.g. "42.5%".
// A non-positive total yields "0.0%".
func (e Entry) Percent(total int) string {
	if total <= 0 {
		return "0.0%"
	}
	pct := float64(e.Count) / float64(total) * 100
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}

// compareEntries orders by count descending, then key ascending.
func compareEntries(a, b Entry) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

// Top returns at most n entries ranked by count descending, ties broken by key ascending.
func (t *Tally) Top(n int) []Entry {
	entries := make([]Entry, 0, len(t.counts))
	for k, c := range t.counts {
		entries = append(entries, Entry{Key: k, Count: c})
	}
	slices.SortFunc(entries, compareEntries)
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// WriteReport writes header followed by one "key;count;percent" line per entry.
// Every line, the header included, ends in a newline. When total is zero only the
// header is written.
func WriteReport(w io.Writer, header string, entries []Entry, total int, delim rune) error {
	if delim == 0 {
		delim = ';'
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(header + "\n"); err != nil {
		return eris.Wrap(err, "report: write header")
	}

	if total > 0 {
		for _, e := range entries {
			bw.WriteString(e.Key)
			bw.WriteRune(delim)
			bw.WriteString(strconv.Itoa(e.Count))
			bw.WriteRune(delim)
			bw.WriteString(e.Percent(total))
			if err := bw.WriteByte('\n'); err != nil {
				return eris.Wrap(err, "report: write entry")
			}
		}
	}

	return eris.Wrap(bw.Flush(), "report: flush")
}
