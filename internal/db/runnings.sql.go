package db

import (
	"context"
	"time"
)

const createRunning = `-- name: CreateRunning :exec
INSERT INTO runnings (id, contributor_id, group_id, distance, duration_seconds, started_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateRunningParams struct {
	ID              string
	ContributorID   string
	GroupID         string
	Distance        int64
	DurationSeconds int64
	StartedAt       time.Time
	CreatedAt       time.Time
}

func (q *Queries) CreateRunning(ctx context.Context, arg CreateRunningParams) error {
	_, err := q.db.ExecContext(ctx, createRunning,
		arg.ID,
		arg.ContributorID,
		arg.GroupID,
		arg.Distance,
		arg.DurationSeconds,
		arg.StartedAt,
		arg.CreatedAt,
	)
	return err
}

const getRunning = `-- name: GetRunning :one
SELECT id, contributor_id, group_id, distance, duration_seconds, started_at, created_at
FROM runnings WHERE id = ?
`

func (q *Queries) GetRunning(ctx context.Context, id string) (Running, error) {
	row := q.db.QueryRowContext(ctx, getRunning, id)
	var i Running
	err := row.Scan(
		&i.ID,
		&i.ContributorID,
		&i.GroupID,
		&i.Distance,
		&i.DurationSeconds,
		&i.StartedAt,
		&i.CreatedAt,
	)
	return i, err
}

const sumDistanceByContributor = `-- name: SumDistanceByContributor :many
SELECT contributor_id, CAST(SUM(distance) AS INTEGER) AS total_distance
FROM runnings
WHERE group_id = ? AND started_at >= ? AND started_at <= ?
GROUP BY contributor_id
ORDER BY total_distance DESC, contributor_id
`

type SumDistanceByContributorParams struct {
	GroupID string
	From    time.Time
	To      time.Time
}

type SumDistanceByContributorRow struct {
	ContributorID string
	TotalDistance int64
}

func (q *Queries) SumDistanceByContributor(ctx context.Context, arg SumDistanceByContributorParams) ([]SumDistanceByContributorRow, error) {
	rows, err := q.db.QueryContext(ctx, sumDistanceByContributor, arg.GroupID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumDistanceByContributorRow
	for rows.Next() {
		var i SumDistanceByContributorRow
		if err := rows.Scan(&i.ContributorID, &i.TotalDistance); err != nil {
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

const contributorTotals = `-- name: ContributorTotals :one
SELECT CAST(COALESCE(SUM(distance), 0) AS INTEGER) AS total_distance, COUNT(*) AS run_count
FROM runnings
WHERE contributor_id = ? AND started_at >= ? AND started_at < ?
`

type ContributorTotalsParams struct {
	ContributorID string
	From          time.Time
	Until         time.Time
}

type ContributorTotalsRow struct {
	TotalDistance int64
	RunCount      int64
}

func (q *Queries) ContributorTotals(ctx context.Context, arg ContributorTotalsParams) (ContributorTotalsRow, error) {
	row := q.db.QueryRowContext(ctx, contributorTotals, arg.ContributorID, arg.From, arg.Until)
	var i ContributorTotalsRow
	err := row.Scan(&i.TotalDistance, &i.RunCount)
	return i, err
}
