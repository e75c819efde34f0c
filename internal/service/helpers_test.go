package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"runcrew/internal/clock"
	"runcrew/internal/config"
	"runcrew/internal/db"
	"runcrew/internal/domain"
	"runcrew/internal/logger"
	"runcrew/internal/metrics"
	"runcrew/internal/notify"
	"runcrew/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

// failingUpdater stands in for an aggregate whose update path is broken.
type failingUpdater struct {
	k   domain.AggregateKind
	err error
}

func (f failingUpdater) kind() domain.AggregateKind { return f.k }

func (f failingUpdater) updateTx(context.Context, *db.Queries, *domain.Running) (applied, error) {
	return applied{}, f.err
}

var errInjected = errors.New("injected aggregate failure")

type env struct {
	repos      *testutil.Repos
	clock      *clock.Manual
	metrics    *metrics.Metrics
	notifier   *recordingNotifier
	groups     *GroupService
	challenges *ChallengeService
	matches    *MatchService
	runnings   *RunningService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	repos := testutil.NewRepos(t)
	clk := clock.NewManual(testNow)
	m := metrics.New(prometheus.NewRegistry())
	n := &recordingNotifier{}
	log := logger.Nop()
	cfg := &config.Config{DefaultChallengeGoal: 100000}

	challenges := NewChallengeService(repos.Store, repos.Challenges, repos.Groups, clk, n, m, cfg, log)
	matches := NewMatchService(repos.Store, repos.Matches, repos.Groups, repos.Runnings, clk, n, m, log)
	return &env{
		repos:      repos,
		clock:      clk,
		metrics:    m,
		notifier:   n,
		groups:     NewGroupService(repos.Groups, clk, log),
		challenges: challenges,
		matches:    matches,
		runnings:   NewRunningService(repos.Store, repos.Runnings, repos.Failures, challenges, matches, clk, m, log),
	}
}

func (e *env) registerGroup(t *testing.T, id string) {
	t.Helper()
	_, err := e.groups.RegisterGroup(context.Background(), id, "crew "+id)
	require.NoError(t, err)
}

func (e *env) startChallenge(t *testing.T, groupID string, goal int64) *domain.Challenge {
	t.Helper()
	c, err := e.challenges.StartChallenge(context.Background(), StartChallengeInput{
		GroupID:   groupID,
		Title:     "March distance",
		GoalValue: goal,
		EndAt:     e.clock.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return c
}

func (e *env) formMatch(t *testing.T, groupA, groupB string) *domain.Match {
	t.Helper()
	now := e.clock.Now()
	m, err := e.matches.FormMatch(context.Background(), FormMatchInput{
		Title:    "Spring derby",
		GroupAID: groupA,
		GroupBID: groupB,
		StartAt:  now.Add(-time.Hour),
		EndAt:    now.Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return m
}
