package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/italolelis/fetchd/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// touch creates a file whose modification time is age in the past.
func touch(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	return path
}

func TestDeleteExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	expired := touch(t, dir, "expired.bin", 2*time.Hour)
	fresh := touch(t, dir, "fresh.bin", time.Minute)
	failed := touch(t, dir, "failed.bin", 2*time.Hour)

	records := []storage.RunRecord{
		{ID: "1", FilePath: expired, Status: storage.StatusDownloaded, FinishedAt: now.Add(-2 * time.Hour)},
		{ID: "2", FilePath: fresh, Status: storage.StatusDownloaded, FinishedAt: now.Add(-time.Minute)},
		{ID: "3", FilePath: failed, Status: storage.StatusFailed, FinishedAt: now.Add(-2 * time.Hour)},
		{ID: "4", FilePath: filepath.Join(dir, "gone.bin"), Status: storage.StatusDownloaded, FinishedAt: now.Add(-2 * time.Hour)},
	}

	deleted, err := DeleteExpiredFiles(context.Background(), records, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	assert.NoFileExists(t, expired)
	assert.FileExists(t, fresh)
	assert.FileExists(t, failed, "partial files of failed runs are kept")
}

func TestDeleteExpiredFiles_ReusedPathFollowsLatestRun(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		latest     string
		fileAge    time.Duration
		wantExists bool
	}{
		{name: "fresh re-download is kept", latest: storage.StatusDownloaded, fileAge: time.Minute, wantExists: true},
		{name: "failed re-run keeps its partial file", latest: storage.StatusFailed, fileAge: time.Minute, wantExists: true},
		{name: "both runs expired", latest: storage.StatusDownloaded, fileAge: 90 * time.Minute, wantExists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := touch(t, t.TempDir(), "report.pdf", tt.fileAge)

			records := []storage.RunRecord{
				{ID: "2", FilePath: path, Status: tt.latest, FinishedAt: now.Add(-tt.fileAge)},
				{ID: "1", FilePath: path, Status: storage.StatusDownloaded, FinishedAt: now.Add(-2 * time.Hour)},
			}

			_, err := DeleteExpiredFiles(context.Background(), records, time.Hour)
			require.NoError(t, err)

			if tt.wantExists {
				assert.FileExists(t, path)
			} else {
				assert.NoFileExists(t, path)
			}
		})
	}
}

func TestDeleteExpiredFiles_RecentlyModifiedFileIsKept(t *testing.T) {
	// A run still in flight rewrites the file before its record exists.
	path := touch(t, t.TempDir(), "report.pdf", time.Second)

	records := []storage.RunRecord{
		{ID: "1", FilePath: path, Status: storage.StatusDownloaded, FinishedAt: time.Now().Add(-2 * time.Hour)},
	}

	deleted, err := DeleteExpiredFiles(context.Background(), records, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.FileExists(t, path)
}

func TestDeleteExpiredFiles_ZeroKeepDisables(t *testing.T) {
	path := touch(t, t.TempDir(), "old.bin", 24*time.Hour)

	records := []storage.RunRecord{
		{ID: "1", FilePath: path, Status: storage.StatusDownloaded, FinishedAt: time.Now().Add(-24 * time.Hour)},
	}

	deleted, err := DeleteExpiredFiles(context.Background(), records, 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.FileExists(t, path)
}
