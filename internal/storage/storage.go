package storage

import (
	"context"
	"time"
)

const (
	StatusDownloaded = "downloaded"
	StatusFailed     = "failed"
)

// RunRecord is the journal entry of one finished run.
type RunRecord struct {
	ID         string
	SourceURL  string
	FilePath   string
	Status     string
	Bytes      int64
	FinishedAt time.Time
}

type RunRepository interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	GetRuns(ctx context.Context) ([]RunRecord, error)
}
