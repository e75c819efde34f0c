package db

import (
	"context"
	"time"
)

const recordAggregateFailure = `-- name: RecordAggregateFailure :exec
INSERT INTO aggregate_failures (id, running_id, aggregate, last_error, attempts, created_at, updated_at)
VALUES (?, ?, ?, ?, 1, ?, ?)
ON CONFLICT (running_id, aggregate) DO UPDATE SET
    last_error = excluded.last_error,
    attempts = aggregate_failures.attempts + 1,
    updated_at = excluded.updated_at
`

type RecordAggregateFailureParams struct {
	ID        string
	RunningID string
	Aggregate string
	LastError string
	At        time.Time
}

func (q *Queries) RecordAggregateFailure(ctx context.Context, arg RecordAggregateFailureParams) error {
	_, err := q.db.ExecContext(ctx, recordAggregateFailure,
		arg.ID,
		arg.RunningID,
		arg.Aggregate,
		arg.LastError,
		arg.At,
		arg.At,
	)
	return err
}

const aggregateFailureColumns = `id, running_id, aggregate, last_error, attempts, created_at, updated_at`

func scanAggregateFailure(row rowScanner) (AggregateFailure, error) {
	var i AggregateFailure
	err := row.Scan(
		&i.ID,
		&i.RunningID,
		&i.Aggregate,
		&i.LastError,
		&i.Attempts,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAggregateFailure = `-- name: GetAggregateFailure :one
SELECT ` + aggregateFailureColumns + ` FROM aggregate_failures WHERE id = ?
`

func (q *Queries) GetAggregateFailure(ctx context.Context, id string) (AggregateFailure, error) {
	return scanAggregateFailure(q.db.QueryRowContext(ctx, getAggregateFailure, id))
}

const listAggregateFailures = `-- name: ListAggregateFailures :many
SELECT ` + aggregateFailureColumns + ` FROM aggregate_failures ORDER BY created_at, id LIMIT ?
`

func (q *Queries) ListAggregateFailures(ctx context.Context, limit int64) ([]AggregateFailure, error) {
	rows, err := q.db.QueryContext(ctx, listAggregateFailures, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AggregateFailure
	for rows.Next() {
		i, err := scanAggregateFailure(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAggregateFailure = `-- name: DeleteAggregateFailure :exec
DELETE FROM aggregate_failures WHERE id = ?
`

func (q *Queries) DeleteAggregateFailure(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteAggregateFailure, id)
	return err
}

const bumpAggregateFailure = `-- name: BumpAggregateFailure :exec
UPDATE aggregate_failures SET attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?
`

type BumpAggregateFailureParams struct {
	LastError string
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) BumpAggregateFailure(ctx context.Context, arg BumpAggregateFailureParams) error {
	_, err := q.db.ExecContext(ctx, bumpAggregateFailure, arg.LastError, arg.UpdatedAt, arg.ID)
	return err
}
