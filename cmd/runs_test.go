package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/h1b-counting/internal/model"
	"github.com/sells-group/h1b-counting/internal/monitoring"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Job:       model.Job{Input: "./input/h1b_input.csv"},
			Status:    model.RunStatusComplete,
			Summary:   &model.RunSummary{Certified: 1234},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Second),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Job:       model.Job{Input: "https://www.foreignlaborcert.doleta.gov/pdf/PerformanceData/2016/H-1B_FY16.xlsx"},
			Status:    model.RunStatusFailed,
			Error:     "missing required column for status",
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "INPUT")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "./input/h1b_input.csv")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "1234")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "...")
	assert.NotContains(t, output, "https://www.foreignlaborcert")
}

func TestFormatRunStats(t *testing.T) {
	snap := &monitoring.HistorySnapshot{
		Total:         4,
		Complete:      3,
		Failed:        1,
		FailRate:      0.25,
		Certified:     900,
		RowsRead:      1000,
		RowsSkipped:   2,
		AvgDurationMS: 150,
	}

	var buf bytes.Buffer
	formatRunStats(&buf, snap)

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "4")
	assert.Contains(t, output, "25.0%")
	assert.Contains(t, output, "900")
	assert.Contains(t, output, "150ms")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, model.Run{ID: "r1", Status: model.RunStatusRunning}))
	assert.Contains(t, buf.String(), `"id": "r1"`)
	assert.Contains(t, buf.String(), `"status": "running"`)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}

func TestRuns_RequiresStore(t *testing.T) {
	workdir(t)
	err := executeRoot(t, "runs", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run history is disabled")
}

func TestRuns_AgainstSQLite(t *testing.T) {
	dir := workdir(t)
	writeLines(t, filepath.Join(dir, "input", "h1b_input.csv"), sampleInput...)
	t.Setenv("H1B_STORE_DRIVER", "sqlite")

	require.NoError(t, executeRoot(t, "./input/h1b_input.csv", "./output/occ.txt", "./output/st.txt"))

	assert.NoError(t, executeRoot(t, "runs", "list", "--status", "complete"))
	assert.NoError(t, executeRoot(t, "runs", "stats", "--since", "1h"))

	err := executeRoot(t, "runs", "show", "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}
