// Package monitoring exports report-run metrics and summarizes run history.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/h1b-counting/internal/model"
	"github.com/sells-group/h1b-counting/internal/store"
)

// collectLimit bounds how many runs a snapshot reads.
const collectLimit = 10000

// HistorySnapshot summarizes recorded runs within a lookback window.
type HistorySnapshot struct {
	Total    int     `json:"total"`
	Complete int     `json:"complete"`
	Failed   int     `json:"failed"`
	Running  int     `json:"running"`
	FailRate float64 `json:"fail_rate"`

	// Totals over completed runs.
	Certified     int     `json:"certified"`
	RowsRead      int     `json:"rows_read"`
	RowsSkipped   int     `json:"rows_skipped"`
	AvgDurationMS float64 `json:"avg_duration_ms"`

	Lookback    time.Duration `json:"lookback"`
	CollectedAt time.Time     `json:"collected_at"`
}

// RunLister is the part of store.Store the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector builds history snapshots from the run store.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new history collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect summarizes runs created within lookback. A zero lookback covers all runs.
func (c *Collector) Collect(ctx context.Context, lookback time.Duration) (*HistorySnapshot, error) {
	now := time.Now().UTC()
	snap := &HistorySnapshot{Lookback: lookback, CollectedAt: now}

	filter := store.RunFilter{Limit: collectLimit}
	if lookback > 0 {
		filter.CreatedAfter = now.Add(-lookback)
	}
	runs, err := c.runs.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.Total = len(runs)
	var totalDur int64
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
		case model.RunStatusFailed:
			snap.Failed++
		case model.RunStatusRunning:
			snap.Running++
		}
		if r.Summary != nil {
			snap.Certified += r.Summary.Certified
			snap.RowsRead += r.Summary.RowsRead
			snap.RowsSkipped += r.Summary.RowsSkipped
			totalDur += r.Summary.DurationMS
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if snap.Complete > 0 {
		snap.AvgDurationMS = float64(totalDur) / float64(snap.Complete)
	}
	return snap, nil
}
