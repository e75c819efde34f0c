package db

import (
	"context"
	"time"
)

const challengeColumns = `id, group_id, title, description, challenge_type, goal_value, current_value, status, start_at, end_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChallenge(row rowScanner) (Challenge, error) {
	var i Challenge
	err := row.Scan(
		&i.ID,
		&i.GroupID,
		&i.Title,
		&i.Description,
		&i.ChallengeType,
		&i.GoalValue,
		&i.CurrentValue,
		&i.Status,
		&i.StartAt,
		&i.EndAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createChallenge = `-- name: CreateChallenge :exec
INSERT INTO challenges (id, group_id, title, description, challenge_type, goal_value, current_value, status, start_at, end_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 0, 'ACTIVE', ?, ?, ?, ?)
`

type CreateChallengeParams struct {
	ID            string
	GroupID       string
	Title         string
	Description   string
	ChallengeType string
	GoalValue     int64
	StartAt       time.Time
	EndAt         time.Time
	CreatedAt     time.Time
}

func (q *Queries) CreateChallenge(ctx context.Context, arg CreateChallengeParams) error {
	_, err := q.db.ExecContext(ctx, createChallenge,
		arg.ID,
		arg.GroupID,
		arg.Title,
		arg.Description,
		arg.ChallengeType,
		arg.GoalValue,
		arg.StartAt,
		arg.EndAt,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return err
}

const getChallenge = `-- name: GetChallenge :one
SELECT ` + challengeColumns + ` FROM challenges WHERE id = ?
`

// GetChallenge doubles as the locked read: inside a write transaction the
// connection already holds the database write lock.
func (q *Queries) GetChallenge(ctx context.Context, id string) (Challenge, error) {
	return scanChallenge(q.db.QueryRowContext(ctx, getChallenge, id))
}

const getActiveChallengeByGroup = `-- name: GetActiveChallengeByGroup :one
SELECT ` + challengeColumns + ` FROM challenges WHERE group_id = ? AND status = 'ACTIVE'
`

func (q *Queries) GetActiveChallengeByGroup(ctx context.Context, groupID string) (Challenge, error) {
	return scanChallenge(q.db.QueryRowContext(ctx, getActiveChallengeByGroup, groupID))
}

const listChallengesByGroup = `-- name: ListChallengesByGroup :many
SELECT ` + challengeColumns + ` FROM challenges WHERE group_id = ? ORDER BY created_at DESC, id LIMIT ?
`

type ListChallengesByGroupParams struct {
	GroupID string
	Limit   int64
}

func (q *Queries) ListChallengesByGroup(ctx context.Context, arg ListChallengesByGroupParams) ([]Challenge, error) {
	rows, err := q.db.QueryContext(ctx, listChallengesByGroup, arg.GroupID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Challenge
	for rows.Next() {
		i, err := scanChallenge(rows)
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

const listExpiredActiveChallengeIDs = `-- name: ListExpiredActiveChallengeIDs :many
SELECT id FROM challenges
WHERE status = 'ACTIVE' AND end_at < ? AND current_value < goal_value
ORDER BY end_at, id
`

func (q *Queries) ListExpiredActiveChallengeIDs(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listExpiredActiveChallengeIDs, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const addChallengeValue = `-- name: AddChallengeValue :one
UPDATE challenges SET current_value = current_value + ?, updated_at = ?
WHERE id = ? AND status = 'ACTIVE'
RETURNING current_value
`

type AddChallengeValueParams struct {
	Delta     int64
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) AddChallengeValue(ctx context.Context, arg AddChallengeValueParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, addChallengeValue, arg.Delta, arg.UpdatedAt, arg.ID)
	var currentValue int64
	err := row.Scan(&currentValue)
	return currentValue, err
}

const transitionChallenge = `-- name: TransitionChallenge :execrows
UPDATE challenges SET status = ?, updated_at = ?
WHERE id = ? AND status = 'ACTIVE'
`

type TransitionChallengeParams struct {
	Status    string
	UpdatedAt time.Time
	ID        string
}

// TransitionChallenge moves an ACTIVE challenge to a terminal status and
// reports how many rows changed (0 when it was no longer ACTIVE).
func (q *Queries) TransitionChallenge(ctx context.Context, arg TransitionChallengeParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, transitionChallenge, arg.Status, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countChallengesOverlapping = `-- name: CountChallengesOverlapping :one
SELECT COUNT(*) FROM challenges WHERE group_id = ? AND start_at <= ? AND end_at >= ?
`

type CountChallengesOverlappingParams struct {
	GroupID string
	To      time.Time
	From    time.Time
}

func (q *Queries) CountChallengesOverlapping(ctx context.Context, arg CountChallengesOverlappingParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countChallengesOverlapping, arg.GroupID, arg.To, arg.From)
	var count int64
	err := row.Scan(&count)
	return count, err
}
