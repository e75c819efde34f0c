package service

import (
	"context"
	"fmt"
	"time"

	"runcrew/internal/clock"
	"runcrew/internal/constants"
	"runcrew/internal/db"
	"runcrew/internal/domain"
	"runcrew/internal/metrics"
	"runcrew/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RunningService persists runnings and fans each one out to the challenge
// and match aggregates. Only persistence can fail a submission; aggregate
// updates are isolated from each other and from the running, and their
// failures are dead-lettered for replay.
type RunningService struct {
	store      *repository.Store
	runnings   *repository.RunningRepository
	failures   *repository.FailureRepository
	challenges *ChallengeService
	matches    *MatchService
	updaters   []aggregateUpdater
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewRunningService(
	store *repository.Store,
	runnings *repository.RunningRepository,
	failures *repository.FailureRepository,
	challenges *ChallengeService,
	matches *MatchService,
	clk clock.Clock,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *RunningService {
	return &RunningService{
		store:      store,
		runnings:   runnings,
		failures:   failures,
		challenges: challenges,
		matches:    matches,
		updaters:   []aggregateUpdater{challenges, matches},
		clock:      clk,
		metrics:    m,
		logger:     logger.With().Str("component", "coordinator").Logger(),
	}
}

type SubmitRunningInput struct {
	ContributorID   string
	GroupID         string
	Distance        int64
	DurationSeconds int64
	StartedAt       time.Time
}

// SubmitResult carries the persisted running and best-effort snapshots of
// the aggregates it was credited to. A nil snapshot means there was nothing
// to credit or the snapshot read failed.
type SubmitResult struct {
	Running   *domain.Running
	Challenge *domain.Challenge
	Match     *domain.Match
}

func (s *RunningService) SubmitRunning(ctx context.Context, in SubmitRunningInput) (*SubmitResult, error) {
	if in.Distance <= 0 {
		return nil, &domain.InvalidContributionError{Delta: in.Distance}
	}
	if in.ContributorID == "" {
		return nil, &domain.ValidationError{Field: "contributor_id", Message: "required"}
	}
	if in.GroupID == "" {
		return nil, &domain.ValidationError{Field: "group_id", Message: "required"}
	}
	if in.DurationSeconds < 0 {
		return nil, &domain.ValidationError{Field: "duration_seconds", Message: "must not be negative"}
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	startedAt := in.StartedAt.UTC()
	if in.StartedAt.IsZero() {
		startedAt = now
	}
	running := &domain.Running{
		ID:              id,
		ContributorID:   in.ContributorID,
		GroupID:         in.GroupID,
		Distance:        in.Distance,
		DurationSeconds: in.DurationSeconds,
		StartedAt:       startedAt,
		CreatedAt:       now,
	}

	err = s.store.InTx(ctx, func(q *db.Queries) error {
		return s.runnings.Create(ctx, q, running)
	})
	if err != nil {
		if domain.IsLockTimeout(err) {
			s.metrics.LockTimeouts.Inc()
		}
		s.logger.Error().Err(err).Str("contributor_id", in.ContributorID).Str("group_id", in.GroupID).Msg("failed to persist running")
		return nil, fmt.Errorf("failed to persist running: %w", err)
	}
	s.metrics.RunningsSubmitted.Inc()

	log := s.logger.With().Str("running_id", id).Str("group_id", in.GroupID).Logger()
	log.Info().Str("contributor_id", in.ContributorID).Int64("distance", in.Distance).Msg("running persisted")

	touched := make(map[domain.AggregateKind]string, len(s.updaters))
	for _, u := range s.updaters {
		result, err := applyInTx(ctx, s.store, u, running)
		if err != nil {
			s.deadLetter(ctx, log, running, u.kind(), err)
			continue
		}
		if result.aggregateID == "" {
			s.metrics.Contributions.WithLabelValues(string(u.kind()), "skipped").Inc()
			continue
		}
		s.metrics.Contributions.WithLabelValues(string(u.kind()), "applied").Inc()
		touched[u.kind()] = result.aggregateID
	}

	result := &SubmitResult{Running: running}
	s.snapshots(ctx, log, result, touched)
	return result, nil
}

// deadLetter records a failed aggregate update. The running stays persisted
// whatever happens here.
func (s *RunningService) deadLetter(ctx context.Context, log zerolog.Logger, running *domain.Running, kind domain.AggregateKind, cause error) {
	s.metrics.Contributions.WithLabelValues(string(kind), "failed").Inc()
	if domain.IsLockTimeout(cause) {
		s.metrics.LockTimeouts.Inc()
	}
	log.Error().Err(cause).Str("aggregate", string(kind)).Msg("aggregate update failed")

	if err := s.failures.Record(ctx, nil, running.ID, kind, cause, s.clock.Now()); err != nil {
		log.Error().Err(err).Str("aggregate", string(kind)).Msg("failed to record aggregate failure")
	}
}

// snapshots reads the post-update aggregates concurrently. Read failures are
// logged and leave the snapshot nil.
func (s *RunningService) snapshots(ctx context.Context, log zerolog.Logger, result *SubmitResult, touched map[domain.AggregateKind]string) {
	ctx, cancel := context.WithTimeout(ctx, constants.SnapshotTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var (
			c   *domain.Challenge
			err error
		)
		if id, ok := touched[domain.AggregateChallenge]; ok {
			c, err = s.challenges.Get(gCtx, id)
		} else {
			c, err = s.challenges.GetActive(gCtx, result.Running.GroupID)
		}
		if err != nil {
			log.Warn().Err(err).Msg("failed to read challenge snapshot")
			return nil
		}
		result.Challenge = c
		return nil
	})

	g.Go(func() error {
		id, ok := touched[domain.AggregateMatch]
		if !ok {
			return nil
		}
		m, err := s.matches.Get(gCtx, id)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read match snapshot")
			return nil
		}
		result.Match = m
		return nil
	})

	_ = g.Wait()
}

func (s *RunningService) updaterFor(kind domain.AggregateKind) (aggregateUpdater, error) {
	for _, u := range s.updaters {
		if u.kind() == kind {
			return u, nil
		}
	}
	return nil, fmt.Errorf("unknown aggregate %q", kind)
}

func (s *RunningService) ListFailures(ctx context.Context) ([]domain.AggregateFailure, error) {
	return s.failures.List(ctx, constants.FailureListLimit)
}

// PersonalChallenges reports a contributor's progress toward the monthly
// distance and run-count goals for the current calendar month.
func (s *RunningService) PersonalChallenges(ctx context.Context, contributorID string) ([]domain.PersonalChallenge, error) {
	if contributorID == "" {
		return nil, &domain.ValidationError{Field: "contributor_id", Message: "required"}
	}

	now := s.clock.Now()
	from, to := clock.MonthBounds(now)
	distance, runs, err := s.runnings.ContributorTotals(ctx, contributorID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to total runnings: %w", err)
	}

	daysRemaining := int64(to.Sub(now) / (24 * time.Hour))
	return []domain.PersonalChallenge{
		{
			Title:         constants.PersonalDistanceTitle,
			Description:   constants.PersonalDistanceDesc,
			Type:          domain.ChallengeDistance,
			GoalValue:     constants.PersonalDistanceGoal,
			CurrentValue:  distance,
			DaysRemaining: daysRemaining,
			StartAt:       from,
			EndAt:         to,
		},
		{
			Title:         constants.PersonalRunCountTitle,
			Description:   constants.PersonalRunCountDesc,
			Type:          domain.ChallengeStreak,
			GoalValue:     constants.PersonalRunCountGoal,
			CurrentValue:  runs,
			DaysRemaining: daysRemaining,
			StartAt:       from,
			EndAt:         to,
		},
	}, nil
}

// ReplayFailure re-applies a dead-lettered update. The update and the removal
// of the dead letter commit together, so a replay takes effect at most once.
// On failure the attempt is counted on the dead letter.
func (s *RunningService) ReplayFailure(ctx context.Context, failureID string) (*domain.AggregateFailure, error) {
	var (
		failure *domain.AggregateFailure
		result  applied
	)
	err := s.store.InTx(ctx, func(q *db.Queries) error {
		var err error
		failure, err = s.failures.Get(ctx, q, failureID)
		if err != nil {
			return err
		}
		running, err := s.runnings.Get(ctx, q, failure.RunningID)
		if err != nil {
			return err
		}
		u, err := s.updaterFor(failure.Aggregate)
		if err != nil {
			return err
		}
		if result, err = u.updateTx(ctx, q, running); err != nil {
			return err
		}
		return s.failures.Delete(ctx, q, failureID)
	})
	if err != nil {
		s.metrics.Replays.WithLabelValues("failed").Inc()
		if domain.IsLockTimeout(err) {
			s.metrics.LockTimeouts.Inc()
		}
		s.logger.Warn().Err(err).Str("failure_id", failureID).Msg("replay failed")
		if failure != nil {
			if bumpErr := s.failures.Bump(ctx, nil, failureID, err, s.clock.Now()); bumpErr != nil {
				s.logger.Error().Err(bumpErr).Str("failure_id", failureID).Msg("failed to count replay attempt")
			}
		}
		return nil, err
	}

	if result.onCommit != nil {
		result.onCommit()
	}
	s.metrics.Replays.WithLabelValues("replayed").Inc()
	s.metrics.Contributions.WithLabelValues(string(failure.Aggregate), "replayed").Inc()
	s.logger.Info().
		Str("failure_id", failureID).
		Str("running_id", failure.RunningID).
		Str("aggregate", string(failure.Aggregate)).
		Bool("credited", result.aggregateID != "").
		Msg("aggregate failure replayed")
	return failure, nil
}
