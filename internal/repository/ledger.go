package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"runcrew/internal/db"
	"runcrew/internal/ledger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ChallengeLedger stores per-contributor challenge shares. Bind it to a
// transaction's queries; it is not usable outside one.
type ChallengeLedger struct {
	q   *db.Queries
	now time.Time
}

func NewChallengeLedger(q *db.Queries, now time.Time) *ChallengeLedger {
	return &ChallengeLedger{q: q, now: now}
}

var _ ledger.Store = (*ChallengeLedger)(nil)

func (l *ChallengeLedger) GetForUpdate(ctx context.Context, key ledger.Key) (int64, bool, error) {
	row, err := l.q.GetChallengeContribution(ctx, db.GetChallengeContributionParams{
		ChallengeID:   key.AggregateID,
		ContributorID: key.OwnerID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.Value, true, nil
}

func (l *ChallengeLedger) Insert(ctx context.Context, key ledger.Key, value int64) error {
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	return l.q.Savepoint(ctx, "challenge_contribution_insert", func() error {
		err := l.q.InsertChallengeContribution(ctx, db.InsertChallengeContributionParams{
			ID:            id,
			ChallengeID:   key.AggregateID,
			ContributorID: key.OwnerID,
			Value:         value,
			CreatedAt:     l.now,
		})
		if isUniqueViolation(err) {
			return ledger.ErrDuplicate
		}
		return err
	})
}

func (l *ChallengeLedger) Add(ctx context.Context, key ledger.Key, delta int64) (int64, error) {
	return l.q.AddChallengeContribution(ctx, db.AddChallengeContributionParams{
		Delta:         delta,
		UpdatedAt:     l.now,
		ChallengeID:   key.AggregateID,
		ContributorID: key.OwnerID,
	})
}

// MatchLedger stores per-group match totals, keyed by (match, group).
type MatchLedger struct {
	q   *db.Queries
	now time.Time
}

func NewMatchLedger(q *db.Queries, now time.Time) *MatchLedger {
	return &MatchLedger{q: q, now: now}
}

var _ ledger.Store = (*MatchLedger)(nil)

func (l *MatchLedger) GetForUpdate(ctx context.Context, key ledger.Key) (int64, bool, error) {
	row, err := l.q.GetMatchParticipant(ctx, db.GetMatchParticipantParams{
		MatchID: key.AggregateID,
		GroupID: key.OwnerID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.Value, true, nil
}

func (l *MatchLedger) Insert(ctx context.Context, key ledger.Key, value int64) error {
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	return l.q.Savepoint(ctx, "match_participant_insert", func() error {
		err := l.q.InsertMatchParticipant(ctx, db.InsertMatchParticipantParams{
			ID:        id,
			MatchID:   key.AggregateID,
			GroupID:   key.OwnerID,
			Value:     value,
			CreatedAt: l.now,
		})
		if isUniqueViolation(err) {
			return ledger.ErrDuplicate
		}
		return err
	})
}

func (l *MatchLedger) Add(ctx context.Context, key ledger.Key, delta int64) (int64, error) {
	return l.q.AddMatchParticipantValue(ctx, db.AddMatchParticipantValueParams{
		Delta:     delta,
		UpdatedAt: l.now,
		MatchID:   key.AggregateID,
		GroupID:   key.OwnerID,
	})
}
