package db

import (
	"context"
	"time"
)

const createGroup = `-- name: CreateGroup :exec
INSERT INTO crew_groups (id, name, created_at)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name
`

type CreateGroupParams struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

func (q *Queries) CreateGroup(ctx context.Context, arg CreateGroupParams) error {
	_, err := q.db.ExecContext(ctx, createGroup, arg.ID, arg.Name, arg.CreatedAt)
	return err
}

const getGroup = `-- name: GetGroup :one
SELECT id, name, created_at FROM crew_groups WHERE id = ?
`

func (q *Queries) GetGroup(ctx context.Context, id string) (CrewGroup, error) {
	row := q.db.QueryRowContext(ctx, getGroup, id)
	var i CrewGroup
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const listGroups = `-- name: ListGroups :many
SELECT id, name, created_at FROM crew_groups ORDER BY id
`

func (q *Queries) ListGroups(ctx context.Context) ([]CrewGroup, error) {
	rows, err := q.db.QueryContext(ctx, listGroups)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CrewGroup
	for rows.Next() {
		var i CrewGroup
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
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
