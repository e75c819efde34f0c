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

type ChallengeRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewChallengeRepository(queries *db.Queries, logger zerolog.Logger) *ChallengeRepository {
	return &ChallengeRepository{queries: queries, logger: logger}
}

func toDomainChallenge(c db.Challenge) *domain.Challenge {
	return &domain.Challenge{
		ID:           c.ID,
		GroupID:      c.GroupID,
		Title:        c.Title,
		Description:  c.Description,
		Type:         domain.ChallengeType(c.ChallengeType),
		GoalValue:    c.GoalValue,
		CurrentValue: c.CurrentValue,
		Status:       domain.ChallengeStatus(c.Status),
		StartAt:      c.StartAt,
		EndAt:        c.EndAt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// Create inserts an ACTIVE challenge. The partial unique index on
// (group_id) WHERE status = 'ACTIVE' turns a second active challenge into a
// ConflictError even when two creators race.
func (r *ChallengeRepository) Create(ctx context.Context, q *db.Queries, c *domain.Challenge) error {
	if c.Type == "" {
		c.Type = domain.ChallengeDistance
	}
	err := pick(r.queries, q).CreateChallenge(ctx, db.CreateChallengeParams{
		ID:            c.ID,
		GroupID:       c.GroupID,
		Title:         c.Title,
		Description:   c.Description,
		ChallengeType: string(c.Type),
		GoalValue:     c.GoalValue,
		StartAt:       c.StartAt,
		EndAt:         c.EndAt,
		CreatedAt:     c.CreatedAt,
	})
	if isUniqueViolation(err) {
		return &domain.ConflictError{Reason: "group " + c.GroupID + " already has an active challenge", Err: err}
	}
	return err
}

func (r *ChallengeRepository) Get(ctx context.Context, q *db.Queries, id string) (*domain.Challenge, error) {
	c, err := pick(r.queries, q).GetChallenge(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "challenge", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return toDomainChallenge(c), nil
}

// Lock re-reads a challenge inside the caller's write transaction.
func (r *ChallengeRepository) Lock(ctx context.Context, q *db.Queries, id string) (*domain.Challenge, error) {
	return r.Get(ctx, q, id)
}

// LockActiveByGroup returns the group's ACTIVE challenge read under the
// transaction's write lock, or nil when the group has none.
func (r *ChallengeRepository) LockActiveByGroup(ctx context.Context, q *db.Queries, groupID string) (*domain.Challenge, error) {
	return r.GetActiveByGroup(ctx, q, groupID)
}

func (r *ChallengeRepository) GetActiveByGroup(ctx context.Context, q *db.Queries, groupID string) (*domain.Challenge, error) {
	c, err := pick(r.queries, q).GetActiveChallengeByGroup(ctx, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainChallenge(c), nil
}

func (r *ChallengeRepository) ListByGroup(ctx context.Context, groupID string, limit int) ([]domain.Challenge, error) {
	rows, err := r.queries.ListChallengesByGroup(ctx, db.ListChallengesByGroupParams{
		GroupID: groupID,
		Limit:   int64(limit),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.Challenge, len(rows))
	for i, row := range rows {
		result[i] = *toDomainChallenge(row)
	}
	return result, nil
}

// ListExpiredIDs is an unlocked candidate scan; each candidate must be
// re-checked under lock before it is transitioned.
func (r *ChallengeRepository) ListExpiredIDs(ctx context.Context, now time.Time) ([]string, error) {
	return r.queries.ListExpiredActiveChallengeIDs(ctx, now)
}

func (r *ChallengeRepository) AddValue(ctx context.Context, q *db.Queries, id string, delta int64, now time.Time) (int64, error) {
	value, err := pick(r.queries, q).AddChallengeValue(ctx, db.AddChallengeValueParams{
		Delta:     delta,
		UpdatedAt: now,
		ID:        id,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &domain.ConflictError{Reason: "challenge " + id + " is no longer active"}
	}
	return value, err
}

// Transition moves an ACTIVE challenge to status. It reports false when the
// challenge had already left ACTIVE.
func (r *ChallengeRepository) Transition(ctx context.Context, q *db.Queries, id string, status domain.ChallengeStatus, now time.Time) (bool, error) {
	n, err := pick(r.queries, q).TransitionChallenge(ctx, db.TransitionChallengeParams{
		Status:    string(status),
		UpdatedAt: now,
		ID:        id,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ChallengeRepository) HasOverlapping(ctx context.Context, q *db.Queries, groupID string, from, to time.Time) (bool, error) {
	n, err := pick(r.queries, q).CountChallengesOverlapping(ctx, db.CountChallengesOverlappingParams{
		GroupID: groupID,
		To:      to,
		From:    from,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ChallengeRepository) Contributions(ctx context.Context, challengeID string, limit int) ([]domain.ChallengeContribution, error) {
	rows, err := r.queries.ListChallengeContributions(ctx, db.ListChallengeContributionsParams{
		ChallengeID: challengeID,
		Limit:       int64(limit),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.ChallengeContribution, len(rows))
	for i, row := range rows {
		result[i] = domain.ChallengeContribution{
			ID:            row.ID,
			ChallengeID:   row.ChallengeID,
			ContributorID: row.ContributorID,
			Value:         row.Value,
			CreatedAt:     row.CreatedAt,
			UpdatedAt:     row.UpdatedAt,
		}
	}
	return result, nil
}

func (r *ChallengeRepository) Contribution(ctx context.Context, challengeID, contributorID string) (*domain.ChallengeContribution, error) {
	row, err := r.queries.GetChallengeContribution(ctx, db.GetChallengeContributionParams{
		ChallengeID:   challengeID,
		ContributorID: contributorID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "contribution", ID: challengeID + "/" + contributorID}
	}
	if err != nil {
		return nil, err
	}
	return &domain.ChallengeContribution{
		ID:            row.ID,
		ChallengeID:   row.ChallengeID,
		ContributorID: row.ContributorID,
		Value:         row.Value,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}
