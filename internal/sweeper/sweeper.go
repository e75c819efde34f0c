package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"runcrew/internal/clock"
	"runcrew/internal/config"
	"runcrew/internal/metrics"
	"runcrew/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Target is the challenge lifecycle work the sweeper drives.
type Target interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	EnsureMonthlyChallenges(ctx context.Context, now time.Time) (int, error)
}

type Options struct {
	Interval       time.Duration
	AutoChallenges bool
}

type Result struct {
	Failed   int
	Created  int
	Duration time.Duration
}

// Sweeper periodically fails expired challenges and opens monthly ones.
// Errors are logged and retried on the next tick; the loop never exits on
// its own.
type Sweeper struct {
	target  Target
	clock   clock.Clock
	opts    Options
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewSweeper(target Target, clk clock.Clock, opts Options, m *metrics.Metrics, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		target:  target,
		clock:   clk,
		opts:    opts,
		metrics: m,
		logger:  logger.With().Str("component", "sweeper").Logger(),
	}
}

func (s *Sweeper) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweeper is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.logger.Info().
		Dur("interval", s.opts.Interval).
		Bool("auto_challenges", s.opts.AutoChallenges).
		Msg("sweeper starting")

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish or for ctx
// to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.execute(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx)
		}
	}
}

func (s *Sweeper) execute(ctx context.Context) {
	result, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep run failed")
	}
	if result.Failed > 0 || result.Created > 0 {
		s.logger.Info().
			Int("failed", result.Failed).
			Int("created", result.Created).
			Dur("duration", result.Duration).
			Msg("sweep run completed")
		return
	}
	s.logger.Debug().Dur("duration", result.Duration).Msg("sweep run completed, nothing to do")
}

// RunOnce sweeps expired challenges and, when enabled, opens monthly ones.
// Both steps run even if the first fails; their errors are joined.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	now := s.clock.Now()
	var result Result

	failed, sweepErr := s.target.SweepExpired(ctx, now)
	result.Failed = failed

	var ensureErr error
	if s.opts.AutoChallenges {
		result.Created, ensureErr = s.target.EnsureMonthlyChallenges(ctx, now)
	}

	result.Duration = time.Since(start)
	s.metrics.SweepRuns.Inc()
	s.metrics.SweepDuration.Observe(result.Duration.Seconds())

	return result, errors.Join(sweepErr, ensureErr)
}

func New(lc fx.Lifecycle, cfg *config.Config, challenges *service.ChallengeService, clk clock.Clock, m *metrics.Metrics, logger zerolog.Logger) *Sweeper {
	s := NewSweeper(challenges, clk, Options{
		Interval:       cfg.SweepInterval,
		AutoChallenges: cfg.AutoChallenges,
	}, m, logger)

	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
	return s
}

var Module = fx.Options(
	fx.Provide(New),
)
