package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"runcrew/internal/clock"
	"runcrew/internal/config"
	"runcrew/internal/constants"
	"runcrew/internal/db"
	"runcrew/internal/domain"
	"runcrew/internal/ledger"
	"runcrew/internal/metrics"
	"runcrew/internal/notify"
	"runcrew/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type ChallengeService struct {
	store       *repository.Store
	challenges  *repository.ChallengeRepository
	groups      *repository.GroupRepository
	clock       clock.Clock
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	defaultGoal int64
	logger      zerolog.Logger
}

func NewChallengeService(
	store *repository.Store,
	challenges *repository.ChallengeRepository,
	groups *repository.GroupRepository,
	clk clock.Clock,
	notifier notify.Notifier,
	m *metrics.Metrics,
	cfg *config.Config,
	logger zerolog.Logger,
) *ChallengeService {
	return &ChallengeService{
		store:       store,
		challenges:  challenges,
		groups:      groups,
		clock:       clk,
		notifier:    notifier,
		metrics:     m,
		defaultGoal: cfg.DefaultChallengeGoal,
		logger:      logger.With().Str("aggregate", "challenge").Logger(),
	}
}

type StartChallengeInput struct {
	GroupID     string
	Title       string
	Description string
	GoalValue   int64
	EndAt       time.Time
}

// StartChallenge opens an ACTIVE challenge for a registered group, starting
// now. A group may hold only one ACTIVE challenge at a time.
func (s *ChallengeService) StartChallenge(ctx context.Context, in StartChallengeInput) (*domain.Challenge, error) {
	now := s.clock.Now()

	if in.GroupID == "" {
		return nil, &domain.ValidationError{Field: "group_id", Message: "required"}
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, &domain.ValidationError{Field: "title", Message: "required"}
	}
	if in.GoalValue <= 0 {
		return nil, &domain.ValidationError{Field: "goal_value", Message: "must be positive"}
	}
	if !in.EndAt.After(now) {
		return nil, &domain.ValidationError{Field: "end_at", Message: "must be in the future"}
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	challenge := &domain.Challenge{
		ID:          id,
		GroupID:     in.GroupID,
		Title:       in.Title,
		Description: in.Description,
		Type:        domain.ChallengeDistance,
		GoalValue:   in.GoalValue,
		Status:      domain.ChallengeActive,
		StartAt:     now,
		EndAt:       in.EndAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.store.InTx(ctx, func(q *db.Queries) error {
		return s.startTx(ctx, q, challenge)
	})
	if err != nil {
		s.countLockTimeout(err)
		s.logger.Warn().Err(err).Str("group_id", in.GroupID).Msg("failed to start challenge")
		return nil, err
	}

	s.logger.Info().
		Str("challenge_id", id).
		Str("group_id", in.GroupID).
		Int64("goal", in.GoalValue).
		Time("end_at", challenge.EndAt).
		Msg("challenge started")
	return challenge, nil
}

func (s *ChallengeService) startTx(ctx context.Context, q *db.Queries, c *domain.Challenge) error {
	if _, err := s.groups.Get(ctx, q, c.GroupID); err != nil {
		return err
	}

	active, err := s.challenges.LockActiveByGroup(ctx, q, c.GroupID)
	if err != nil {
		return fmt.Errorf("failed to lock active challenge: %w", err)
	}
	if active != nil {
		return &domain.ConflictError{Reason: fmt.Sprintf("group %s already has active challenge %s", c.GroupID, active.ID)}
	}

	return s.challenges.Create(ctx, q, c)
}

func (s *ChallengeService) kind() domain.AggregateKind { return domain.AggregateChallenge }

// updateTx credits the running to its group's ACTIVE challenge. A group
// without one, or a running older than the challenge, is a no-op.
func (s *ChallengeService) updateTx(ctx context.Context, q *db.Queries, running *domain.Running) (applied, error) {
	return s.applyTx(ctx, q, running.GroupID, running.ContributorID, running.Distance, running.CreatedAt)
}

func (s *ChallengeService) applyTx(ctx context.Context, q *db.Queries, groupID, contributorID string, delta int64, at time.Time) (applied, error) {
	if delta <= 0 {
		return applied{}, &domain.InvalidContributionError{Delta: delta}
	}

	challenge, err := s.challenges.LockActiveByGroup(ctx, q, groupID)
	if err != nil {
		return applied{}, fmt.Errorf("failed to lock active challenge: %w", err)
	}
	if challenge == nil || at.Before(challenge.StartAt) {
		s.logger.Debug().Str("group_id", groupID).Msg("no active challenge for group")
		return applied{}, nil
	}

	now := s.clock.Now()
	key := ledger.Key{AggregateID: challenge.ID, OwnerID: contributorID}
	if _, err := ledger.Add(ctx, repository.NewChallengeLedger(q, now), key, delta); err != nil {
		return applied{}, err
	}

	value, err := s.challenges.AddValue(ctx, q, challenge.ID, delta, now)
	if err != nil {
		return applied{}, fmt.Errorf("failed to add to challenge %s: %w", challenge.ID, err)
	}
	challenge.CurrentValue = value
	challenge.UpdatedAt = now

	result := applied{aggregateID: challenge.ID}
	if !challenge.GoalReached() {
		result.onCommit = func() {
			s.metrics.DistanceApplied.WithLabelValues(string(domain.AggregateChallenge)).Add(float64(delta))
		}
		return result, nil
	}

	ok, err := s.challenges.Transition(ctx, q, challenge.ID, domain.ChallengeSuccess, now)
	if err != nil {
		return applied{}, fmt.Errorf("failed to complete challenge %s: %w", challenge.ID, err)
	}
	if !ok {
		return applied{}, &domain.ConflictError{Reason: "challenge " + challenge.ID + " left ACTIVE while locked"}
	}

	result.onCommit = func() {
		s.metrics.DistanceApplied.WithLabelValues(string(domain.AggregateChallenge)).Add(float64(delta))
		s.metrics.ChallengeTransitions.WithLabelValues(string(domain.ChallengeSuccess)).Inc()
		s.logger.Info().
			Str("challenge_id", challenge.ID).
			Str("group_id", groupID).
			Int64("value", value).
			Int64("goal", challenge.GoalValue).
			Msg("challenge succeeded")
		s.notifier.Notify(notify.Event{
			Type:        notify.EventChallengeSucceeded,
			AggregateID: challenge.ID,
			GroupID:     groupID,
			Status:      string(domain.ChallengeSuccess),
			Value:       value,
			Goal:        challenge.GoalValue,
			OccurredAt:  now,
		})
	}
	return result, nil
}

// ApplyContribution credits delta from contributor to the group's ACTIVE
// challenge in its own transaction. It returns the updated challenge, or nil
// when the group has no ACTIVE challenge.
func (s *ChallengeService) ApplyContribution(ctx context.Context, groupID, contributorID string, delta int64) (*domain.Challenge, error) {
	if delta <= 0 {
		return nil, &domain.InvalidContributionError{Delta: delta}
	}

	var result applied
	err := s.store.InTx(ctx, func(q *db.Queries) error {
		var err error
		result, err = s.applyTx(ctx, q, groupID, contributorID, delta, s.clock.Now())
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
	return s.challenges.Get(ctx, nil, result.aggregateID)
}

// SweepExpired fails every ACTIVE challenge whose window closed before now
// with the goal unmet. Each candidate is re-checked under lock in its own
// transaction, so a challenge pushed over goal concurrently is left alone.
// It returns how many challenges it failed; per-candidate errors are joined.
func (s *ChallengeService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.challenges.ListExpiredIDs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired challenges: %w", err)
	}

	var (
		failed int
		errs   []error
	)
	for _, id := range ids {
		var transitioned *domain.Challenge
		err := s.store.InTx(ctx, func(q *db.Queries) error {
			c, err := s.challenges.Lock(ctx, q, id)
			if err != nil {
				return err
			}
			if !c.Expired(now) {
				return nil
			}
			ok, err := s.challenges.Transition(ctx, q, id, domain.ChallengeFailed, s.clock.Now())
			if err != nil {
				return err
			}
			if ok {
				transitioned = c
			}
			return nil
		})
		if err != nil {
			s.countLockTimeout(err)
			s.logger.Error().Err(err).Str("challenge_id", id).Msg("failed to sweep challenge")
			errs = append(errs, fmt.Errorf("challenge %s: %w", id, err))
			continue
		}
		if transitioned == nil {
			s.logger.Debug().Str("challenge_id", id).Msg("challenge no longer expired, skipping")
			continue
		}

		failed++
		s.metrics.ChallengeTransitions.WithLabelValues(string(domain.ChallengeFailed)).Inc()
		s.logger.Info().
			Str("challenge_id", id).
			Str("group_id", transitioned.GroupID).
			Int64("value", transitioned.CurrentValue).
			Int64("goal", transitioned.GoalValue).
			Msg("challenge failed")
		s.notifier.Notify(notify.Event{
			Type:        notify.EventChallengeFailed,
			AggregateID: id,
			GroupID:     transitioned.GroupID,
			Status:      string(domain.ChallengeFailed),
			Value:       transitioned.CurrentValue,
			Goal:        transitioned.GoalValue,
			OccurredAt:  now,
		})
	}

	return failed, errors.Join(errs...)
}

// EnsureMonthlyChallenges opens the default monthly challenge for every
// registered group that has neither an ACTIVE challenge nor any challenge
// overlapping now's calendar month. Returns how many were created.
func (s *ChallengeService) EnsureMonthlyChallenges(ctx context.Context, now time.Time) (int, error) {
	groups, err := s.groups.List(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list groups: %w", err)
	}

	from, to := clock.MonthBounds(now)
	created := 0
	var errs []error
	for _, g := range groups {
		id, err := gonanoid.New()
		if err != nil {
			return created, err
		}
		challenge := &domain.Challenge{
			ID:          id,
			GroupID:     g.ID,
			Title:       constants.MonthlyChallengeTitle,
			Description: constants.MonthlyChallengeDesc,
			Type:        domain.ChallengeDistance,
			GoalValue:   s.defaultGoal,
			Status:      domain.ChallengeActive,
			StartAt:     from,
			EndAt:       to,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		made := false
		err = s.store.InTx(ctx, func(q *db.Queries) error {
			active, err := s.challenges.LockActiveByGroup(ctx, q, g.ID)
			if err != nil || active != nil {
				return err
			}
			overlapping, err := s.challenges.HasOverlapping(ctx, q, g.ID, from, to)
			if err != nil || overlapping {
				return err
			}
			if err := s.challenges.Create(ctx, q, challenge); err != nil {
				return err
			}
			made = true
			return nil
		})
		if err != nil {
			s.countLockTimeout(err)
			s.logger.Error().Err(err).Str("group_id", g.ID).Msg("failed to create monthly challenge")
			errs = append(errs, fmt.Errorf("group %s: %w", g.ID, err))
			continue
		}
		if made {
			created++
			s.logger.Info().Str("challenge_id", id).Str("group_id", g.ID).Msg("monthly challenge created")
		}
	}

	return created, errors.Join(errs...)
}

func (s *ChallengeService) Get(ctx context.Context, id string) (*domain.Challenge, error) {
	return s.challenges.Get(ctx, nil, id)
}

// GetActive returns the group's ACTIVE challenge, or nil.
func (s *ChallengeService) GetActive(ctx context.Context, groupID string) (*domain.Challenge, error) {
	return s.challenges.GetActiveByGroup(ctx, nil, groupID)
}

func (s *ChallengeService) ListByGroup(ctx context.Context, groupID string) ([]domain.Challenge, error) {
	return s.challenges.ListByGroup(ctx, groupID, constants.ChallengeListLimit)
}

// Contributions ranks contributors of a challenge by value.
func (s *ChallengeService) Contributions(ctx context.Context, challengeID string) ([]domain.ChallengeContribution, error) {
	if _, err := s.challenges.Get(ctx, nil, challengeID); err != nil {
		return nil, err
	}
	return s.challenges.Contributions(ctx, challengeID, constants.ContributionListLimit)
}

func (s *ChallengeService) countLockTimeout(err error) {
	if domain.IsLockTimeout(err) {
		s.metrics.LockTimeouts.Inc()
	}
}
