package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"runcrew/internal/clock"
	"runcrew/internal/db"
	"runcrew/internal/domain"
	"runcrew/internal/ledger"
	"runcrew/internal/metrics"
	"runcrew/internal/notify"
	"runcrew/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type MatchService struct {
	store    *repository.Store
	matches  *repository.MatchRepository
	groups   *repository.GroupRepository
	runnings *repository.RunningRepository
	clock    clock.Clock
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewMatchService(
	store *repository.Store,
	matches *repository.MatchRepository,
	groups *repository.GroupRepository,
	runnings *repository.RunningRepository,
	clk clock.Clock,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *MatchService {
	return &MatchService{
		store:    store,
		matches:  matches,
		groups:   groups,
		runnings: runnings,
		clock:    clk,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("aggregate", "match").Logger(),
	}
}

type FormMatchInput struct {
	Title       string
	Description string
	GroupAID    string
	GroupBID    string
	StartAt     time.Time
	EndAt       time.Time
}

// FormMatch pairs two registered groups. Only one match may be ONGOING at a
// time.
func (s *MatchService) FormMatch(ctx context.Context, in FormMatchInput) (*domain.Match, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, &domain.ValidationError{Field: "title", Message: "required"}
	}
	if in.GroupAID == "" || in.GroupBID == "" {
		return nil, &domain.ValidationError{Field: "group_id", Message: "both groups are required"}
	}
	if in.GroupAID == in.GroupBID {
		return nil, &domain.ValidationError{Field: "group_id", Message: "a group cannot play itself"}
	}
	if !in.EndAt.After(in.StartAt) {
		return nil, &domain.ValidationError{Field: "end_at", Message: "must be after start_at"}
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	match := &domain.Match{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		GroupAID:    in.GroupAID,
		GroupBID:    in.GroupBID,
		Status:      domain.MatchOngoing,
		StartAt:     in.StartAt.UTC(),
		EndAt:       in.EndAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.store.InTx(ctx, func(q *db.Queries) error {
		for _, groupID := range []string{in.GroupAID, in.GroupBID} {
			if _, err := s.groups.Get(ctx, q, groupID); err != nil {
				return err
			}
		}

		ongoing, err := s.matches.CountOngoing(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to count ongoing matches: %w", err)
		}
		if ongoing > 0 {
			return &domain.ConflictError{Reason: "another match is already ongoing"}
		}

		return s.matches.Create(ctx, q, match)
	})
	if err != nil {
		s.countLockTimeout(err)
		s.logger.Warn().Err(err).Str("group_a_id", in.GroupAID).Str("group_b_id", in.GroupBID).Msg("failed to form match")
		return nil, err
	}

	s.logger.Info().
		Str("match_id", id).
		Str("group_a_id", in.GroupAID).
		Str("group_b_id", in.GroupBID).
		Time("start_at", match.StartAt).
		Time("end_at", match.EndAt).
		Msg("match formed")
	return match, nil
}

func (s *MatchService) kind() domain.AggregateKind { return domain.AggregateMatch }

func (s *MatchService) updateTx(ctx context.Context, q *db.Queries, running *domain.Running) (applied, error) {
	return s.applyTx(ctx, q, running.GroupID, running.Distance, running.CreatedAt)
}

// applyTx credits delta to group inside the match ONGOING at "at". No ongoing
// match, or a group that is not one of its two participants, is a no-op.
func (s *MatchService) applyTx(ctx context.Context, q *db.Queries, groupID string, delta int64, at time.Time) (applied, error) {
	if delta <= 0 {
		return applied{}, &domain.InvalidContributionError{Delta: delta}
	}

	match, err := s.matches.FindOngoingAt(ctx, q, at)
	if err != nil {
		return applied{}, fmt.Errorf("failed to find ongoing match: %w", err)
	}
	if match == nil {
		s.logger.Debug().Str("group_id", groupID).Msg("no ongoing match")
		return applied{}, nil
	}
	if !match.HasGroup(groupID) {
		s.logger.Debug().Str("match_id", match.ID).Str("group_id", groupID).Msg("group is not a match participant")
		return applied{}, nil
	}

	key := ledger.Key{AggregateID: match.ID, OwnerID: groupID}
	if _, err := ledger.Add(ctx, repository.NewMatchLedger(q, s.clock.Now()), key, delta); err != nil {
		return applied{}, err
	}

	return applied{
		aggregateID: match.ID,
		onCommit: func() {
			s.metrics.DistanceApplied.WithLabelValues(string(domain.AggregateMatch)).Add(float64(delta))
		},
	}, nil
}

// ApplyContribution credits delta to group in the currently ongoing match.
// Returns the updated match, or nil when nothing was credited.
func (s *MatchService) ApplyContribution(ctx context.Context, groupID string, delta int64) (*domain.Match, error) {
	if delta <= 0 {
		return nil, &domain.InvalidContributionError{Delta: delta}
	}

	var result applied
	err := s.store.InTx(ctx, func(q *db.Queries) error {
		var err error
		result, err = s.applyTx(ctx, q, groupID, delta, s.clock.Now())
		return err
	})
	if err != nil {
		s.countLockTimeout(err)
		return nil, err
	}
	if result.onCommit != nil {
		result.onCommit()
	}
	if result.aggregateID == "" {
		return nil, nil
	}
	return s.matches.Get(ctx, nil, result.aggregateID)
}

// Finish decides an ONGOING match: the strictly greater total wins, equal
// totals draw.
func (s *MatchService) Finish(ctx context.Context, matchID string) (*domain.Match, error) {
	var match *domain.Match
	err := s.store.InTx(ctx, func(q *db.Queries) error {
		m, err := s.matches.Get(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.Status != domain.MatchOngoing {
			return &domain.ConflictError{Reason: fmt.Sprintf("match %s is already %s", matchID, m.Status)}
		}

		a, b, err := participantTotals(m)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		switch {
		case a > b:
			m.Status, m.WinnerGroupID = domain.MatchFinished, m.GroupAID
		case b > a:
			m.Status, m.WinnerGroupID = domain.MatchFinished, m.GroupBID
		default:
			m.Status, m.WinnerGroupID = domain.MatchDraw, ""
		}

		ok, err := s.matches.Complete(ctx, q, m.ID, m.Status, m.WinnerGroupID, now)
		if err != nil {
			return fmt.Errorf("failed to complete match %s: %w", m.ID, err)
		}
		if !ok {
			return &domain.ConflictError{Reason: "match " + m.ID + " completed concurrently"}
		}
		m.UpdatedAt = now
		match = m
		return nil
	})
	if err != nil {
		s.countLockTimeout(err)
		s.logger.Warn().Err(err).Str("match_id", matchID).Msg("failed to finish match")
		return nil, err
	}

	s.metrics.MatchesCompleted.WithLabelValues(string(match.Status)).Inc()
	s.logger.Info().
		Str("match_id", match.ID).
		Str("status", string(match.Status)).
		Str("winner_group_id", match.WinnerGroupID).
		Msg("match finished")

	var value int64
	for _, p := range match.Participants {
		if p.GroupID == match.WinnerGroupID {
			value = p.Value
		}
	}
	s.notifier.Notify(notify.Event{
		Type:          notify.EventMatchFinished,
		AggregateID:   match.ID,
		Status:        string(match.Status),
		WinnerGroupID: match.WinnerGroupID,
		Value:         value,
		OccurredAt:    match.UpdatedAt,
	})
	return match, nil
}

// participantTotals returns the totals of group A and group B, failing when
// either participant row is missing.
func participantTotals(m *domain.Match) (int64, int64, error) {
	var (
		a, b         int64
		seenA, seenB bool
	)
	for _, p := range m.Participants {
		switch p.GroupID {
		case m.GroupAID:
			a, seenA = p.Value, true
		case m.GroupBID:
			b, seenB = p.Value, true
		}
	}
	if !seenA {
		return 0, 0, &domain.NotFoundError{Entity: "match participant", ID: m.ID + "/" + m.GroupAID}
	}
	if !seenB {
		return 0, 0, &domain.NotFoundError{Entity: "match participant", ID: m.ID + "/" + m.GroupBID}
	}
	return a, b, nil
}

// GetOngoing returns the ONGOING match whose window contains now, or nil.
func (s *MatchService) GetOngoing(ctx context.Context) (*domain.Match, error) {
	m, err := s.matches.FindOngoingAt(ctx, nil, s.clock.Now())
	if err != nil || m == nil {
		return nil, err
	}
	return s.matches.Get(ctx, nil, m.ID)
}

func (s *MatchService) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	return s.matches.Get(ctx, nil, matchID)
}

// MemberContributions ranks a participating group's contributors by the
// distance they ran inside the match window.
func (s *MatchService) MemberContributions(ctx context.Context, matchID, groupID string) ([]domain.MemberContribution, error) {
	m, err := s.matches.Get(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	if !m.HasGroup(groupID) {
		return nil, &domain.NotFoundError{Entity: "match participant", ID: matchID + "/" + groupID}
	}
	return s.runnings.RankContributors(ctx, groupID, m.StartAt, m.EndAt)
}

func (s *MatchService) countLockTimeout(err error) {
	if domain.IsLockTimeout(err) {
		s.metrics.LockTimeouts.Inc()
	}
}
