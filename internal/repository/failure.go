package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"runcrew/internal/db"
	"runcrew/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// FailureRepository is the dead-letter store for aggregate updates that
// failed after their running was persisted.
type FailureRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewFailureRepository(queries *db.Queries, logger zerolog.Logger) *FailureRepository {
	return &FailureRepository{queries: queries, logger: logger}
}

func toDomainFailure(f db.AggregateFailure) domain.AggregateFailure {
	return domain.AggregateFailure{
		ID:        f.ID,
		RunningID: f.RunningID,
		Aggregate: domain.AggregateKind(f.Aggregate),
		LastError: f.LastError,
		Attempts:  int(f.Attempts),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Record stores a failure, or bumps attempts if the same running already
// failed for the same aggregate.
func (r *FailureRepository) Record(ctx context.Context, q *db.Queries, runningID string, kind domain.AggregateKind, cause error, now time.Time) error {
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	return pick(r.queries, q).RecordAggregateFailure(ctx, db.RecordAggregateFailureParams{
		ID:        id,
		RunningID: runningID,
		Aggregate: string(kind),
		LastError: cause.Error(),
		At:        now,
	})
}

func (r *FailureRepository) Get(ctx context.Context, q *db.Queries, id string) (*domain.AggregateFailure, error) {
	row, err := pick(r.queries, q).GetAggregateFailure(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "aggregate failure", ID: id}
	}
	if err != nil {
		return nil, err
	}
	f := toDomainFailure(row)
	return &f, nil
}

func (r *FailureRepository) List(ctx context.Context, limit int) ([]domain.AggregateFailure, error) {
	rows, err := r.queries.ListAggregateFailures(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	result := make([]domain.AggregateFailure, len(rows))
	for i, row := range rows {
		result[i] = toDomainFailure(row)
	}
	return result, nil
}

func (r *FailureRepository) Delete(ctx context.Context, q *db.Queries, id string) error {
	return pick(r.queries, q).DeleteAggregateFailure(ctx, id)
}

func (r *FailureRepository) Bump(ctx context.Context, q *db.Queries, id string, cause error, now time.Time) error {
	return pick(r.queries, q).BumpAggregateFailure(ctx, db.BumpAggregateFailureParams{
		LastError: cause.Error(),
		UpdatedAt: now,
		ID:        id,
	})
}
