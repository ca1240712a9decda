package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/h1b-counting/internal/config"
	"github.com/sells-group/h1b-counting/internal/h1b"
	"github.com/sells-group/h1b-counting/internal/model"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "h1b-counting <input> <top_occupations_out> <top_states_out>",
	Short: "Rank occupations and states by certified H-1B applications",
	Long: `Reads a semicolon-delimited H-1B disclosure file and writes two reports:
the top occupations and the top work-site states by number of certified
applications, each with its share of all certified applications.

The input may be a local file, a .zip holding one file, an .xlsx workbook,
or an http(s) URL to any of those.

Examples:
  h1b-counting ./input/h1b_input.csv ./output/top_10_occupations.txt ./output/top_10_states.txt
  H1B_STORE_DRIVER=sqlite h1b-counting H1B_FY2016.csv occ.txt states.txt`,
	Args:         cobra.ExactArgs(3),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		job := model.Job{Input: args[0], Occupations: args[1], States: args[2]}
		if err := h1b.CheckPaths(job); err != nil {
			return err
		}

		env, err := initReportEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Runner.Run(cmd.Context(), job)
		if err != nil {
			return err
		}
		zap.L().Info("report complete",
			zap.String("occupations", job.Occupations),
			zap.String("states", job.States),
			zap.Int("certified", res.Total),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
