package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	run, err := st.CreateRun(ctx, testJob)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, testSummary))
	require.NoError(t, st.Close())

	st2, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st2.Close() })

	got, err := st2.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 3, got.Summary.Certified)
	assert.Equal(t, "TX", got.Summary.TopStates[0].Key)
}

func TestSQLite_CorruptSummary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testJob)
	require.NoError(t, err)
	_, err = st.db.ExecContext(ctx, `UPDATE runs SET summary = 'not json' WHERE id = ?`, run.ID)
	require.NoError(t, err)

	_, err = st.GetRun(ctx, run.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal summary")
}

func TestSQLite_ClosedDB(t *testing.T) {
	st, err := NewSQLite(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = st.CreateRun(context.Background(), testJob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: insert run")
}
