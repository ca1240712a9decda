// Package h1b ranks occupations and work-site states by certified visa applications.
package h1b

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/h1b-counting/internal/model"
)

// ErrEmptyInput is returned when the input has no header row.
var ErrEmptyInput = eris.New("input has no header row")

// renameFile is swapped in tests to simulate a failed commit.
var renameFile = os.Rename

// utf8BOM is stripped from the first header cell; spreadsheet exports often carry one.
const utf8BOM = "\ufeff"

// Options configures a single report run.
type Options struct {
	TopN   int
	Status string
	Source SourceOptions
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return DefaultTopN
	}
	return o.TopN
}

func (o Options) delimiter() rune {
	if o.Source.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Source.Delimiter
}

// Result summarizes one completed run.
type Result struct {
	Job                 model.Job
	Columns             Columns
	Total               int
	RowsRead            int
	RowsSkipped         int
	DistinctOccupations int
	DistinctStates      int
	TopOccupations      []Entry
	TopStates           []Entry
	Duration            time.Duration
}

// Summary converts the result into its persisted form.
func (r *Result) Summary() *model.RunSummary {
	return &model.RunSummary{
		Certified:           r.Total,
		RowsRead:            r.RowsRead,
		RowsSkipped:         r.RowsSkipped,
		DistinctOccupations: r.DistinctOccupations,
		DistinctStates:      r.DistinctStates,
		TopOccupations:      rankedItems(r.TopOccupations, r.Total),
		TopStates:           rankedItems(r.TopStates, r.Total),
		DurationMS:          r.Duration.Milliseconds(),
	}
}

func rankedItems(entries []Entry, total int) []model.RankedItem {
	items := make([]model.RankedItem, len(entries))
	for i, e := range entries {
		items[i] = model.RankedItem{Key: e.Key, Count: e.Count, Percent: e.Percent(total)}
	}
	return items
}

// Run reads job.Input once and writes the occupation and state reports.
// Column resolution happens before any row is aggregated, and both reports are
// rendered before either output file is touched.
func Run(ctx context.Context, job model.Job, opts Options) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("input", job.Input))

	srcOpts := opts.Source
	srcOpts.Delimiter = opts.delimiter()
	src, err := OpenSource(ctx, job.Input, srcOpts)
	if err != nil {
		return nil, eris.Wrap(err, "h1b: open input")
	}
	defer src.Close() //nolint:errcheck

	header, ok := <-src.Rows
	if !ok {
		if err := src.Err(); err != nil {
			return nil, eris.Wrap(err, "h1b: read header")
		}
		return nil, ErrEmptyInput
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	cols, err := ResolveColumns(header)
	if err != nil {
		return nil, eris.Wrap(err, "h1b: resolve columns")
	}
	log.Debug("h1b: resolved columns",
		zap.Int("occupation", cols.Occupation),
		zap.Int("status", cols.Status),
		zap.Int("location", cols.Location),
	)

	agg := NewAggregator(cols, opts.Status)
	for row := range src.Rows {
		agg.Add(row)
	}
	if err := src.Err(); err != nil {
		return nil, eris.Wrap(err, "h1b: read rows")
	}

	res := &Result{
		Job:                 job,
		Columns:             cols,
		Total:               agg.Total,
		RowsRead:            agg.RowsRead,
		RowsSkipped:         agg.RowsSkipped,
		DistinctOccupations: agg.Occupations.Len(),
		DistinctStates:      agg.States.Len(),
		TopOccupations:      agg.Occupations.Top(opts.topN()),
		TopStates:           agg.States.Top(opts.topN()),
	}

	delim := opts.delimiter()
	var occBuf, stateBuf bytes.Buffer
	if err := WriteReport(&occBuf, headerWith(OccupationsHeader, delim), res.TopOccupations, res.Total, delim); err != nil {
		return nil, eris.Wrap(err, "h1b: render occupations report")
	}
	if err := WriteReport(&stateBuf, headerWith(StatesHeader, delim), res.TopStates, res.Total, delim); err != nil {
		return nil, eris.Wrap(err, "h1b: render states report")
	}

	if err := writeFiles([]pendingFile{
		{path: job.Occupations, data: occBuf.Bytes()},
		{path: job.States, data: stateBuf.Bytes()},
	}); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	if res.Total == 0 {
		log.Warn("h1b: no certified applications found, reports contain headers only")
	}
	if res.RowsSkipped > 0 {
		log.Warn("h1b: skipped malformed rows", zap.Int("rows_skipped", res.RowsSkipped))
	}
	log.Info("h1b: reports written",
		zap.Int("certified", res.Total),
		zap.Int("rows_read", res.RowsRead),
		zap.Int("distinct_occupations", res.DistinctOccupations),
		zap.Int("distinct_states", res.DistinctStates),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func headerWith(header string, delim rune) string {
	if delim == ';' {
		return header
	}
	return strings.ReplaceAll(header, ";", string(delim))
}

type pendingFile struct {
	path string
	data []byte
}

// writeFiles stages every file as a temp file beside its target, then renames
// them into place. On any failure every target is left as it was, except when
// restoring a moved-aside report itself fails.
func writeFiles(files []pendingFile) error {
	staged := make([]string, 0, len(files))
	cleanup := func() {
		for _, p := range staged {
			_ = os.Remove(p)
		}
	}

	for _, pf := range files {
		tmp, err := os.CreateTemp(filepath.Dir(pf.path), "."+filepath.Base(pf.path)+".tmp-*")
		if err != nil {
			cleanup()
			return eris.Wrapf(err, "h1b: create temp for %s", pf.path)
		}
		staged = append(staged, tmp.Name())

		if _, err := tmp.Write(pf.data); err != nil {
			_ = tmp.Close()
			cleanup()
			return eris.Wrapf(err, "h1b: write %s", pf.path)
		}
		if err := tmp.Chmod(0o644); err != nil {
			_ = tmp.Close()
			cleanup()
			return eris.Wrapf(err, "h1b: chmod %s", pf.path)
		}
		if err := tmp.Close(); err != nil {
			cleanup()
			return eris.Wrapf(err, "h1b: close %s", pf.path)
		}
	}

	// Existing reports are moved aside first so a failed commit can put them back.
	type placed struct {
		path   string
		backup string
	}
	var done []placed
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			if done[i].backup != "" {
				_ = renameFile(done[i].backup, done[i].path)
			} else {
				_ = os.Remove(done[i].path)
			}
		}
	}

	for i, pf := range files {
		var backup string
		if _, err := os.Stat(pf.path); err == nil {
			backup = staged[i] + ".bak"
			if err := renameFile(pf.path, backup); err != nil {
				rollback()
				cleanup()
				return eris.Wrapf(err, "h1b: back up %s", pf.path)
			}
		}
		if err := renameFile(staged[i], pf.path); err != nil {
			if backup != "" {
				_ = renameFile(backup, pf.path)
			}
			rollback()
			cleanup()
			return eris.Wrapf(err, "h1b: rename into %s", pf.path)
		}
		done = append(done, placed{path: pf.path, backup: backup})
	}

	for _, p := range done {
		if p.backup != "" {
			_ = os.Remove(p.backup)
		}
	}
	return nil
}

// CheckPaths verifies that a local input exists and that both output
// directories exist. Remote inputs are not checked.
func CheckPaths(job model.Job) error {
	if !IsRemote(job.Input) {
		info, err := os.Stat(job.Input)
		if err != nil {
			return eris.Errorf("input file %q was not found", job.Input)
		}
		if info.IsDir() {
			return eris.Errorf("input %q is a directory", job.Input)
		}
	}
	for _, out := range []string{job.Occupations, job.States} {
		dir := filepath.Dir(out)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return eris.Errorf("output directory %q was not found", dir)
		}
	}
	return nil
}
