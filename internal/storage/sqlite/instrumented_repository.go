package sqlite

import (
	"context"
	"database/sql"

	"github.com/italolelis/fetchd/internal/storage"
	"github.com/italolelis/fetchd/internal/telemetry"
)

// InstrumentedRunRepository wraps RunRepository with telemetry.
type InstrumentedRunRepository struct {
	repo      *RunRepository
	telemetry *telemetry.Telemetry
}

func NewInstrumentedRunRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedRunRepository {
	return &InstrumentedRunRepository{
		repo:      NewRunRepository(dbConn),
		telemetry: tel,
	}
}

func (r *InstrumentedRunRepository) RecordRun(ctx context.Context, rec storage.RunRecord) error {
	return r.telemetry.InstrumentDBOperation(ctx, "record_run", func(ctx context.Context) error {
		return r.repo.RecordRun(ctx, rec)
	})
}

func (r *InstrumentedRunRepository) GetRuns(ctx context.Context) ([]storage.RunRecord, error) {
	var result []storage.RunRecord

	err := r.telemetry.InstrumentDBOperation(ctx, "get_runs", func(ctx context.Context) error {
		var err error

		result, err = r.repo.GetRuns(ctx)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
