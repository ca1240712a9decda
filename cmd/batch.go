package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/h1b-counting/internal/h1b"
)

var (
	batchManifest    string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run every job listed in a YAML manifest",
	Long: `Runs one report per manifest job, several at a time. A failing job is
logged and reported but does not stop the others.

Manifest format:
  jobs:
    - input: input/H1B_FY2014.csv
      occupations: output/2014_occupations.txt
      states: output/2014_states.txt
    - input: https://www.foreignlaborcert.doleta.gov/pdf/PerformanceData/2016/H-1B_Disclosure_Data_FY16.xlsx
      occupations: output/2016_occupations.txt
      states: output/2016_states.txt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		manifest, err := h1b.LoadManifest(batchManifest)
		if err != nil {
			return err
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		env, err := initReportEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		outcomes := env.Runner.RunAll(ctx, manifest.Jobs, concurrency)
		failed := formatBatchOutcomes(os.Stdout, outcomes)

		zap.L().Info("batch: complete",
			zap.Int("total", len(outcomes)),
			zap.Int("succeeded", len(outcomes)-failed),
			zap.Int("failed", failed),
		)
		if failed > 0 {
			return eris.Errorf("batch: %d of %d jobs failed", failed, len(outcomes))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchManifest, "manifest", "", "path to the YAML job manifest")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "jobs to run at once (default batch.concurrency)")
	_ = batchCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(batchCmd)
}

// formatBatchOutcomes writes one line per job and returns the number that failed.
func formatBatchOutcomes(out io.Writer, outcomes []h1b.JobOutcome) int {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "INPUT\tSTATUS\tCERTIFIED\tSKIPPED\tDETAIL")

	var failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			_, _ = fmt.Fprintf(w, "%s\tfailed\t-\t-\t%s\n", o.Job.Input, o.Err.Error())
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\tcomplete\t%d\t%d\t%s\n",
			o.Job.Input, o.Result.Total, o.Result.RowsSkipped, o.Result.Duration.Round(time.Millisecond))
	}
	_ = w.Flush()
	return failed
}
