package db

import (
	"context"
	"time"
)

const getMatchParticipant = `-- name: GetMatchParticipant :one
SELECT id, match_id, group_id, value, created_at, updated_at
FROM match_participants WHERE match_id = ? AND group_id = ?
`

type GetMatchParticipantParams struct {
	MatchID string
	GroupID string
}

func (q *Queries) GetMatchParticipant(ctx context.Context, arg GetMatchParticipantParams) (MatchParticipant, error) {
	row := q.db.QueryRowContext(ctx, getMatchParticipant, arg.MatchID, arg.GroupID)
	var i MatchParticipant
	err := row.Scan(
		&i.ID,
		&i.MatchID,
		&i.GroupID,
		&i.Value,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertMatchParticipant = `-- name: InsertMatchParticipant :exec
INSERT INTO match_participants (id, match_id, group_id, value, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type InsertMatchParticipantParams struct {
	ID        string
	MatchID   string
	GroupID   string
	Value     int64
	CreatedAt time.Time
}

func (q *Queries) InsertMatchParticipant(ctx context.Context, arg InsertMatchParticipantParams) error {
	_, err := q.db.ExecContext(ctx, insertMatchParticipant,
		arg.ID,
		arg.MatchID,
		arg.GroupID,
		arg.Value,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return err
}

const addMatchParticipantValue = `-- name: AddMatchParticipantValue :one
UPDATE match_participants SET value = value + ?, updated_at = ?
WHERE match_id = ? AND group_id = ?
RETURNING value
`

type AddMatchParticipantValueParams struct {
	Delta     int64
	UpdatedAt time.Time
	MatchID   string
	GroupID   string
}

func (q *Queries) AddMatchParticipantValue(ctx context.Context, arg AddMatchParticipantValueParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, addMatchParticipantValue, arg.Delta, arg.UpdatedAt, arg.MatchID, arg.GroupID)
	var value int64
	err := row.Scan(&value)
	return value, err
}

const listMatchParticipants = `-- name: ListMatchParticipants :many
SELECT id, match_id, group_id, value, created_at, updated_at
FROM match_participants WHERE match_id = ?
ORDER BY value DESC, group_id
`

func (q *Queries) ListMatchParticipants(ctx context.Context, matchID string) ([]MatchParticipant, error) {
	rows, err := q.db.QueryContext(ctx, listMatchParticipants, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchParticipant
	for rows.Next() {
		var i MatchParticipant
		if err := rows.Scan(
			&i.ID,
			&i.MatchID,
			&i.GroupID,
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
