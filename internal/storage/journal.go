package storage

import (
	"context"
	"time"

	"github.com/italolelis/fetchd/internal/download"
	"github.com/italolelis/fetchd/internal/logctx"
)

// Journal records every finished run in a RunRepository.
type Journal struct {
	repo RunRepository
	now  func() time.Time
}

func NewJournal(repo RunRepository) *Journal {
	return &Journal{repo: repo, now: time.Now}
}

func (j *Journal) Handle(ctx context.Context, ev download.Event) {
	if ev.Kind != download.RunCompleted {
		return
	}

	rec := RunRecord{
		ID:         ev.RunID,
		FilePath:   ev.Path,
		Status:     StatusFailed,
		Bytes:      ev.Bytes,
		FinishedAt: j.now().UTC(),
	}

	if ev.Request.SourceURL != nil {
		rec.SourceURL = ev.Request.SourceURL.Redacted()
	}

	if ev.Success {
		rec.Status = StatusDownloaded
	}

	if err := j.repo.RecordRun(ctx, rec); err != nil {
		logctx.LoggerFromContext(ctx).ErrorContext(ctx, "failed to record run", "status", rec.Status, "err", err)
	}
}
