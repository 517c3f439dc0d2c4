package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/italolelis/fetchd/internal/storage"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(dbConn *sql.DB) *RunRepository {
	return &RunRepository{db: dbConn}
}

func (r *RunRepository) RecordRun(ctx context.Context, rec storage.RunRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_url, file_path, status, bytes, finished_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path = excluded.file_path,
			status = excluded.status,
			bytes = excluded.bytes,
			finished_at = excluded.finished_at`,
		rec.ID, rec.SourceURL, rec.FilePath, rec.Status, rec.Bytes, rec.FinishedAt.UTC().Format(time.RFC3339),
	)

	return err
}

// GetRuns returns every recorded run, oldest first.
func (r *RunRepository) GetRuns(ctx context.Context) ([]storage.RunRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, source_url, file_path, status, bytes, finished_at FROM runs ORDER BY finished_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []storage.RunRecord

	for rows.Next() {
		var (
			rec        storage.RunRecord
			sourceURL  sql.NullString
			filePath   sql.NullString
			finishedAt string
		)

		if err := rows.Scan(&rec.ID, &sourceURL, &filePath, &rec.Status, &rec.Bytes, &finishedAt); err != nil {
			return nil, err
		}

		rec.SourceURL = sourceURL.String
		rec.FilePath = filePath.String

		rec.FinishedAt, err = time.Parse(time.RFC3339, finishedAt)
		if err != nil {
			return nil, err
		}

		runs = append(runs, rec)
	}

	return runs, rows.Err()
}
