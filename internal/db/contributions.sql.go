package db

import (
	"context"
	"time"
)

const getChallengeContribution = `-- name: GetChallengeContribution :one
SELECT id, challenge_id, contributor_id, value, created_at, updated_at
FROM challenge_contributions WHERE challenge_id = ? AND contributor_id = ?
`

type GetChallengeContributionParams struct {
	ChallengeID   string
	ContributorID string
}

func (q *Queries) GetChallengeContribution(ctx context.Context, arg GetChallengeContributionParams) (ChallengeContribution, error) {
	row := q.db.QueryRowContext(ctx, getChallengeContribution, arg.ChallengeID, arg.ContributorID)
	var i ChallengeContribution
	err := row.Scan(
		&i.ID,
		&i.ChallengeID,
		&i.ContributorID,
		&i.Value,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertChallengeContribution = `-- name: InsertChallengeContribution :exec
INSERT INTO challenge_contributions (id, challenge_id, contributor_id, value, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type InsertChallengeContributionParams struct {
	ID            string
	ChallengeID   string
	ContributorID string
	Value         int64
	CreatedAt     time.Time
}

func (q *Queries) InsertChallengeContribution(ctx context.Context, arg InsertChallengeContributionParams) error {
	_, err := q.db.ExecContext(ctx, insertChallengeContribution,
		arg.ID,
		arg.ChallengeID,
		arg.ContributorID,
		arg.Value,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return err
}

const addChallengeContribution = `-- name: AddChallengeContribution :one
UPDATE challenge_contributions SET value = value + ?, updated_at = ?
WHERE challenge_id = ? AND contributor_id = ?
RETURNING value
`

type AddChallengeContributionParams struct {
	Delta         int64
	UpdatedAt     time.Time
	ChallengeID   string
	ContributorID string
}

func (q *Queries) AddChallengeContribution(ctx context.Context, arg AddChallengeContributionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, addChallengeContribution, arg.Delta, arg.UpdatedAt, arg.ChallengeID, arg.ContributorID)
	var value int64
	err := row.Scan(&value)
	return value, err
}

const listChallengeContributions = `-- name: ListChallengeContributions :many
SELECT id, challenge_id, contributor_id, value, created_at, updated_at
FROM challenge_contributions WHERE challenge_id = ?
ORDER BY value DESC, contributor_id
LIMIT ?
`

type ListChallengeContributionsParams struct {
	ChallengeID string
	Limit       int64
}

func (q *Queries) ListChallengeContributions(ctx context.Context, arg ListChallengeContributionsParams) ([]ChallengeContribution, error) {
	rows, err := q.db.QueryContext(ctx, listChallengeContributions, arg.ChallengeID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ChallengeContribution
	for rows.Next() {
		var i ChallengeContribution
		if err := rows.Scan(
			&i.ID,
			&i.ChallengeID,
			&i.ContributorID,
			&i.Value,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
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
