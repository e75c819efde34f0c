package repository

import (
	"context"
	"database/sql"
	"errors"

	"runcrew/internal/db"
	"runcrew/internal/domain"

	"github.com/rs/zerolog"
)

type GroupRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewGroupRepository(queries *db.Queries, logger zerolog.Logger) *GroupRepository {
	return &GroupRepository{queries: queries, logger: logger}
}

// Upsert registers a group or renames an existing one.
func (r *GroupRepository) Upsert(ctx context.Context, q *db.Queries, group *domain.Group) error {
	return pick(r.queries, q).CreateGroup(ctx, db.CreateGroupParams{
		ID:        group.ID,
		Name:      group.Name,
		CreatedAt: group.CreatedAt,
	})
}

func (r *GroupRepository) Get(ctx context.Context, q *db.Queries, id string) (*domain.Group, error) {
	g, err := pick(r.queries, q).GetGroup(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "group", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &domain.Group{ID: g.ID, Name: g.Name, CreatedAt: g.CreatedAt}, nil
}

func (r *GroupRepository) List(ctx context.Context, q *db.Queries) ([]domain.Group, error) {
	groups, err := pick(r.queries, q).ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Group, len(groups))
	for i, g := range groups {
		result[i] = domain.Group{ID: g.ID, Name: g.Name, CreatedAt: g.CreatedAt}
	}
	return result, nil
}
