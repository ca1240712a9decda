package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/h1b-counting/internal/fetcher"
	"github.com/sells-group/h1b-counting/internal/h1b"
	"github.com/sells-group/h1b-counting/internal/monitoring"
	"github.com/sells-group/h1b-counting/internal/store"
)

// reportEnv holds the runner and the optional history store and metrics
// needed by the report and batch commands.
type reportEnv struct {
	Runner  *h1b.Runner
	Store   store.Store            // nil when history is disabled
	Metrics *monitoring.RunMetrics // nil when no textfile is configured
}

// Close flushes metrics and releases the store.
func (e *reportEnv) Close() {
	if e.Metrics != nil {
		if err := e.Metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			zap.L().Warn("metrics textfile not written", zap.Error(err))
		}
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initReportEnv builds a Runner from cfg. Callers should defer env.Close().
func initReportEnv(ctx context.Context) (*reportEnv, error) {
	env := &reportEnv{Runner: &h1b.Runner{Options: reportOptions()}}

	if cfg.Store.Driver != "" {
		st, err := openHistory(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
		env.Runner.Recorder = st
	}

	if cfg.Metrics.Textfile != "" {
		env.Metrics = monitoring.NewRunMetrics()
		env.Runner.Observer = env.Metrics
	}

	return env, nil
}

// reportOptions maps configuration onto h1b.Options.
func reportOptions() h1b.Options {
	return h1b.Options{
		TopN:   cfg.Report.TopN,
		Status: cfg.Report.Status,
		Source: h1b.SourceOptions{
			Delimiter:    cfg.Report.DelimiterRune(),
			Charset:      cfg.Input.Encoding,
			Sheet:        cfg.Input.Sheet,
			StrictQuotes: !cfg.Input.LazyQuotes,
			Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				UserAgent:    cfg.Fetch.UserAgent,
				Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
				MaxRetries:   cfg.Fetch.MaxRetries,
				RateLimiters: fetcher.DefaultRateLimiters(),
			}),
		},
	}
}
