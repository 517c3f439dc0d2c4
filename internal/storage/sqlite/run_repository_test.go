package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/italolelis/fetchd/internal/storage"
	"github.com/italolelis/fetchd/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *InstrumentedRunRepository {
	t.Helper()

	db, err := InitDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	tel, err := telemetry.New(context.Background(), telemetry.Config{Enabled: false})
	require.NoError(t, err)

	return NewInstrumentedRunRepository(db, tel)
}

func TestInitDB_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := InitDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestRunRepository_RecordAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	runs := []storage.RunRecord{
		{ID: "b", SourceURL: "http://example.com/b", FilePath: "/data/b", Status: storage.StatusFailed, Bytes: 300_000, FinishedAt: base.Add(time.Minute)},
		{ID: "a", SourceURL: "http://example.com/a", FilePath: "/data/a", Status: storage.StatusDownloaded, Bytes: 1_000_000, FinishedAt: base},
	}

	for _, rec := range runs {
		require.NoError(t, repo.RecordRun(ctx, rec))
	}

	got, err := repo.GetRuns(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, runs[1], got[0])
	assert.Equal(t, runs[0], got[1])
}

func TestRunRepository_RecordRunUpserts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordRun(ctx, storage.RunRecord{ID: "r", Status: storage.StatusFailed, FinishedAt: at}))
	require.NoError(t, repo.RecordRun(ctx, storage.RunRecord{ID: "r", FilePath: "/data/x", Status: storage.StatusDownloaded, Bytes: 42, FinishedAt: at}))

	got, err := repo.GetRuns(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, storage.StatusDownloaded, got[0].Status)
	assert.Equal(t, "/data/x", got[0].FilePath)
	assert.Equal(t, int64(42), got[0].Bytes)
}

func TestRunRepository_Empty(t *testing.T) {
	got, err := newTestRepository(t).GetRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
