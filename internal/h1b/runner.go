package h1b

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/h1b-counting/internal/model"
)

// Recorder persists run history.
type Recorder interface {
	CreateRun(ctx context.Context, job model.Job) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, reason string) error
}

// Observer is notified after every run, successful or not.
type Observer interface {
	ObserveRun(res *Result, err error)
}

// Runner executes jobs with shared options and optional history and metrics hooks.
type Runner struct {
	Options  Options
	Recorder Recorder // optional
	Observer Observer // optional
}

// Run executes one job. A history record is created before the input is opened
// and finalized afterwards; failing to finalize it is logged, not returned.
func (r *Runner) Run(ctx context.Context, job model.Job) (*Result, error) {
	var runID string
	if r.Recorder != nil {
		run, err := r.Recorder.CreateRun(ctx, job)
		if err != nil {
			return nil, eris.Wrap(err, "h1b: create run record")
		}
		runID = run.ID
	}

	res, err := Run(ctx, job, r.Options)

	if r.Observer != nil {
		r.Observer.ObserveRun(res, err)
	}

	if r.Recorder != nil {
		var recErr error
		if err != nil {
			recErr = r.Recorder.FailRun(ctx, runID, err.Error())
		} else {
			recErr = r.Recorder.CompleteRun(ctx, runID, res.Summary())
		}
		if recErr != nil {
			zap.L().Warn("h1b: update run record", zap.String("run_id", runID), zap.Error(recErr))
		}
	}

	return res, err
}

// JobOutcome pairs a batch job with its result or error.
type JobOutcome struct {
	Job    model.Job
	Result *Result
	Err    error
}

// RunAll executes jobs with at most concurrency running at once. One job failing
// does not stop the others. Outcomes are returned in job order.
func (r *Runner) RunAll(ctx context.Context, jobs []model.Job, concurrency int) []JobOutcome {
	if concurrency <= 0 {
		concurrency = 1
	}

	outcomes := make([]JobOutcome, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i].Job = job
			if err := CheckPaths(job); err != nil {
				outcomes[i].Err = err
				zap.L().Error("h1b: job rejected", zap.String("input", job.Input), zap.Error(err))
				return nil
			}
			res, err := r.Run(gCtx, job)
			outcomes[i].Result = res
			outcomes[i].Err = err
			if err != nil {
				zap.L().Error("h1b: job failed", zap.String("input", job.Input), zap.Error(err))
			}
			return nil // don't abort batch on individual failure
		})
	}

	_ = g.Wait()
	return outcomes
}
