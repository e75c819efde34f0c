package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"runcrew/internal/db"
	"runcrew/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type MatchRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewMatchRepository(queries *db.Queries, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{queries: queries, logger: logger}
}

func toDomainMatch(m db.Match) *domain.Match {
	return &domain.Match{
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		GroupAID:      m.GroupAID,
		GroupBID:      m.GroupBID,
		Status:        domain.MatchStatus(m.Status),
		WinnerGroupID: m.WinnerGroupID.String,
		StartAt:       m.StartAt,
		EndAt:         m.EndAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toDomainParticipant(p db.MatchParticipant) domain.MatchParticipant {
	return domain.MatchParticipant{
		ID:        p.ID,
		MatchID:   p.MatchID,
		GroupID:   p.GroupID,
		Value:     p.Value,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Create inserts an ONGOING match and a zero-valued participant row for each
// group. q must belong to a transaction so the three inserts land together.
func (r *MatchRepository) Create(ctx context.Context, q *db.Queries, m *domain.Match) error {
	err := q.CreateMatch(ctx, db.CreateMatchParams{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		GroupAID:    m.GroupAID,
		GroupBID:    m.GroupBID,
		StartAt:     m.StartAt,
		EndAt:       m.EndAt,
		CreatedAt:   m.CreatedAt,
	})
	if isUniqueViolation(err) {
		return &domain.ConflictError{Reason: "another match is already ongoing", Err: err}
	}
	if err != nil {
		return fmt.Errorf("failed to create match %s: %w", m.ID, err)
	}

	m.Participants = m.Participants[:0]
	for _, groupID := range []string{m.GroupAID, m.GroupBID} {
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		err = q.InsertMatchParticipant(ctx, db.InsertMatchParticipantParams{
			ID:        id,
			MatchID:   m.ID,
			GroupID:   groupID,
			Value:     0,
			CreatedAt: m.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to create participant %s/%s: %w", m.ID, groupID, err)
		}
		m.Participants = append(m.Participants, domain.MatchParticipant{
			ID:        id,
			MatchID:   m.ID,
			GroupID:   groupID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.CreatedAt,
		})
	}
	return nil
}

// Get returns the match with its participants ranked by value.
func (r *MatchRepository) Get(ctx context.Context, q *db.Queries, id string) (*domain.Match, error) {
	row, err := pick(r.queries, q).GetMatch(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "match", ID: id}
	}
	if err != nil {
		return nil, err
	}

	m := toDomainMatch(row)
	m.Participants, err = r.Participants(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FindOngoingAt returns the ONGOING match whose window contains now, or nil.
func (r *MatchRepository) FindOngoingAt(ctx context.Context, q *db.Queries, now time.Time) (*domain.Match, error) {
	row, err := pick(r.queries, q).GetOngoingMatchAt(ctx, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainMatch(row), nil
}

func (r *MatchRepository) CountOngoing(ctx context.Context, q *db.Queries) (int64, error) {
	return pick(r.queries, q).CountMatchesByStatus(ctx, string(domain.MatchOngoing))
}

// Complete records the outcome of an ONGOING match. It reports false when the
// match had already been completed.
func (r *MatchRepository) Complete(ctx context.Context, q *db.Queries, id string, status domain.MatchStatus, winnerGroupID string, now time.Time) (bool, error) {
	n, err := pick(r.queries, q).CompleteMatch(ctx, db.CompleteMatchParams{
		Status:        string(status),
		WinnerGroupID: sql.NullString{String: winnerGroupID, Valid: winnerGroupID != ""},
		UpdatedAt:     now,
		ID:            id,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MatchRepository) Participants(ctx context.Context, q *db.Queries, matchID string) ([]domain.MatchParticipant, error) {
	rows, err := pick(r.queries, q).ListMatchParticipants(ctx, matchID)
	if err != nil {
		return nil, err
	}

	result := make([]domain.MatchParticipant, len(rows))
	for i, row := range rows {
		result[i] = toDomainParticipant(row)
	}
	return result, nil
}
