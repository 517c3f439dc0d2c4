package cleanup

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/italolelis/fetchd/internal/logctx"
	"github.com/italolelis/fetchd/internal/storage"
)

// DeleteExpiredFiles removes the files of downloaded runs that finished more
// than keep ago. Runs reuse paths, so only the latest run recorded for a path
// decides its fate, and a file modified within keep is left alone. A zero
// keep disables cleanup.
func DeleteExpiredFiles(ctx context.Context, records []storage.RunRecord, keep time.Duration) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	logger := logctx.LoggerFromContext(ctx)
	now := time.Now()
	deleted := 0

	for _, rec := range latestByPath(records) {
		if rec.Status != storage.StatusDownloaded || now.Sub(rec.FinishedAt) <= keep {
			continue
		}

		info, err := os.Stat(rec.FilePath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue // already deleted
			}

			logger.ErrorContext(ctx, "failed to stat file", "file", rec.FilePath, "err", err)

			return deleted, err
		}

		if now.Sub(info.ModTime()) <= keep {
			continue
		}

		if err := os.Remove(rec.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.ErrorContext(ctx, "failed to delete expired file", "file", rec.FilePath, "err", err)

			return deleted, err
		}

		deleted++

		logger.InfoContext(ctx, "deleted expired file", "file", rec.FilePath, "run_id", rec.ID)
	}

	return deleted, nil
}

// latestByPath keeps the most recently finished record per file path, in
// first-seen path order.
func latestByPath(records []storage.RunRecord) []storage.RunRecord {
	index := make(map[string]int, len(records))
	latest := make([]storage.RunRecord, 0, len(records))

	for _, rec := range records {
		if rec.FilePath == "" {
			continue
		}

		i, ok := index[rec.FilePath]
		if !ok {
			index[rec.FilePath] = len(latest)
			latest = append(latest, rec)

			continue
		}

		if rec.FinishedAt.After(latest[i].FinishedAt) {
			latest[i] = rec
		}
	}

	return latest
}
