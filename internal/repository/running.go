package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"runcrew/internal/db"
	"runcrew/internal/domain"

	"github.com/rs/zerolog"
)

type RunningRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewRunningRepository(queries *db.Queries, logger zerolog.Logger) *RunningRepository {
	return &RunningRepository{queries: queries, logger: logger}
}

func (r *RunningRepository) Create(ctx context.Context, q *db.Queries, running *domain.Running) error {
	return pick(r.queries, q).CreateRunning(ctx, db.CreateRunningParams{
		ID:              running.ID,
		ContributorID:   running.ContributorID,
		GroupID:         running.GroupID,
		Distance:        running.Distance,
		DurationSeconds: running.DurationSeconds,
		StartedAt:       running.StartedAt,
		CreatedAt:       running.CreatedAt,
	})
}

func (r *RunningRepository) Get(ctx context.Context, q *db.Queries, id string) (*domain.Running, error) {
	row, err := pick(r.queries, q).GetRunning(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "running", ID: id}
	}
	if err != nil {
		return nil, err
	}

	return &domain.Running{
		ID:              row.ID,
		ContributorID:   row.ContributorID,
		GroupID:         row.GroupID,
		Distance:        row.Distance,
		DurationSeconds: row.DurationSeconds,
		StartedAt:       row.StartedAt,
		CreatedAt:       row.CreatedAt,
	}, nil
}

// RankContributors sums each contributor's runnings for a group inside
// [from, to] and ranks them by distance.
func (r *RunningRepository) RankContributors(ctx context.Context, groupID string, from, to time.Time) ([]domain.MemberContribution, error) {
	rows, err := r.queries.SumDistanceByContributor(ctx, db.SumDistanceByContributorParams{
		GroupID: groupID,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.MemberContribution, len(rows))
	for i, row := range rows {
		result[i] = domain.MemberContribution{
			ContributorID: row.ContributorID,
			Distance:      row.TotalDistance,
			Rank:          i + 1,
		}
	}
	return result, nil
}

// ContributorTotals sums a contributor's distance and counts their runnings
// started in [from, until), across all groups.
func (r *RunningRepository) ContributorTotals(ctx context.Context, contributorID string, from, until time.Time) (distance, runs int64, err error) {
	row, err := r.queries.ContributorTotals(ctx, db.ContributorTotalsParams{
		ContributorID: contributorID,
		From:          from,
		Until:         until,
	})
	if err != nil {
		return 0, 0, err
	}
	return row.TotalDistance, row.RunCount, nil
}
