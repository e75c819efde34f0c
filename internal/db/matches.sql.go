package db

import (
	"context"
	"database/sql"
	"time"
)

const matchColumns = `id, title, description, group_a_id, group_b_id, status, winner_group_id, start_at, end_at, created_at, updated_at`

func scanMatch(row rowScanner) (Match, error) {
	var i Match
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.GroupAID,
		&i.GroupBID,
		&i.Status,
		&i.WinnerGroupID,
		&i.StartAt,
		&i.EndAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createMatch = `-- name: CreateMatch :exec
INSERT INTO matches (id, title, description, group_a_id, group_b_id, status, start_at, end_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 'ONGOING', ?, ?, ?, ?)
`

type CreateMatchParams struct {
	ID          string
	Title       string
	Description string
	GroupAID    string
	GroupBID    string
	StartAt     time.Time
	EndAt       time.Time
	CreatedAt   time.Time
}

func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) error {
	_, err := q.db.ExecContext(ctx, createMatch,
		arg.ID,
		arg.Title,
		arg.Description,
		arg.GroupAID,
		arg.GroupBID,
		arg.StartAt,
		arg.EndAt,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return err
}

const getMatch = `-- name: GetMatch :one
SELECT ` + matchColumns + ` FROM matches WHERE id = ?
`

func (q *Queries) GetMatch(ctx context.Context, id string) (Match, error) {
	return scanMatch(q.db.QueryRowContext(ctx, getMatch, id))
}

const getOngoingMatchAt = `-- name: GetOngoingMatchAt :one
SELECT ` + matchColumns + ` FROM matches
WHERE status = 'ONGOING' AND start_at <= ? AND end_at >= ?
ORDER BY start_at DESC
LIMIT 1
`

func (q *Queries) GetOngoingMatchAt(ctx context.Context, now time.Time) (Match, error) {
	return scanMatch(q.db.QueryRowContext(ctx, getOngoingMatchAt, now, now))
}

const countMatchesByStatus = `-- name: CountMatchesByStatus :one
SELECT COUNT(*) FROM matches WHERE status = ?
`

func (q *Queries) CountMatchesByStatus(ctx context.Context, status string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMatchesByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const completeMatch = `-- name: CompleteMatch :execrows
UPDATE matches SET status = ?, winner_group_id = ?, updated_at = ?
WHERE id = ? AND status = 'ONGOING'
`

type CompleteMatchParams struct {
	Status        string
	WinnerGroupID sql.NullString
	UpdatedAt     time.Time
	ID            string
}

func (q *Queries) CompleteMatch(ctx context.Context, arg CompleteMatchParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, completeMatch, arg.Status, arg.WinnerGroupID, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
