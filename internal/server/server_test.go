package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"runcrew/internal/clock"
	"runcrew/internal/config"
	"runcrew/internal/domain"
	"runcrew/internal/logger"
	"runcrew/internal/metrics"
	"runcrew/internal/middleware"
	"runcrew/internal/notify"
	"runcrew/internal/service"
	"runcrew/internal/sweeper"
	"runcrew/internal/testutil"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	clock  *clock.Manual
	srv    *httptest.Server
	client *Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	repos := testutil.NewRepos(t)
	clk := clock.NewManual(now)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	log := logger.Nop()
	cfg := &config.Config{DefaultChallengeGoal: 100000, AutoChallenges: true, SweepInterval: time.Hour}

	groups := service.NewGroupService(repos.Groups, clk, log)
	challenges := service.NewChallengeService(repos.Store, repos.Challenges, repos.Groups, clk, notify.Noop{}, m, cfg, log)
	matches := service.NewMatchService(repos.Store, repos.Matches, repos.Groups, repos.Runnings, clk, notify.Noop{}, m, log)
	runnings := service.NewRunningService(repos.Store, repos.Runnings, repos.Failures, challenges, matches, clk, m, log)
	sw := sweeper.NewSweeper(challenges, clk, sweeper.Options{Interval: time.Hour, AutoChallenges: cfg.AutoChallenges}, m, log)

	crew := NewCrewServer(groups, challenges, matches, runnings, sw, log)
	srv := httptest.NewServer(NewRouter(crew, reg, m, log))
	t.Cleanup(srv.Close)

	return &harness{
		clock:  clk,
		srv:    srv,
		client: NewClient(srv.Client(), srv.URL),
	}
}

func TestCrewService_ChallengeFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	group, err := h.client.RegisterGroup(ctx, &RegisterGroupRequest{ID: "g1", Name: "Dawn Patrol"})
	require.NoError(t, err)
	assert.Equal(t, "g1", group.Group.ID)

	started, err := h.client.StartChallenge(ctx, &StartChallengeRequest{
		GroupID:   "g1",
		Title:     "Ten k together",
		GoalValue: 10000,
		EndAt:     now.Add(72 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.NotNil(t, started.Challenge)
	assert.Equal(t, "ACTIVE", started.Challenge.Status)
	assert.Equal(t, "DISTANCE", started.Challenge.Type)

	var last *SubmitRunningResponse
	for _, who := range []string{"alice", "bob", "carol"} {
		last, err = h.client.SubmitRunning(ctx, &SubmitRunningRequest{ContributorID: who, GroupID: "g1", Distance: 4000})
		require.NoError(t, err)
	}
	require.NotNil(t, last.Challenge)
	assert.Equal(t, "SUCCESS", last.Challenge.Status)
	assert.Equal(t, int64(12000), last.Challenge.CurrentValue)
	assert.Equal(t, 100, last.Challenge.ProgressPercent)
	assert.Nil(t, last.Match)

	contributions, err := h.client.ListContributions(ctx, &ListContributionsRequest{ChallengeID: started.Challenge.ID})
	require.NoError(t, err)
	require.Len(t, contributions.Contributions, 3)
	for _, c := range contributions.Contributions {
		assert.Equal(t, int64(4000), c.Value)
	}

	active, err := h.client.GetActiveChallenge(ctx, &GetActiveChallengeRequest{GroupID: "g1"})
	require.NoError(t, err)
	assert.Nil(t, active.Challenge)

	list, err := h.client.ListChallenges(ctx, &ListChallengesRequest{GroupID: "g1"})
	require.NoError(t, err)
	assert.Len(t, list.Challenges, 1)
}

func TestCrewService_MatchFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := h.client.RegisterGroup(ctx, &RegisterGroupRequest{ID: id, Name: id})
		require.NoError(t, err)
	}

	formed, err := h.client.FormMatch(ctx, &FormMatchRequest{
		Title:    "Derby",
		GroupAID: "a",
		GroupBID: "b",
		StartAt:  now.Add(-time.Hour).Format(time.RFC3339),
		EndAt:    now.Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Len(t, formed.Match.Participants, 2)

	_, err = h.client.SubmitRunning(ctx, &SubmitRunningRequest{ContributorID: "alice", GroupID: "a", Distance: 10000})
	require.NoError(t, err)
	_, err = h.client.SubmitRunning(ctx, &SubmitRunningRequest{ContributorID: "bob", GroupID: "b", Distance: 8000})
	require.NoError(t, err)

	ongoing, err := h.client.GetOngoingMatch(ctx)
	require.NoError(t, err)
	require.NotNil(t, ongoing.Match)
	assert.Equal(t, formed.Match.ID, ongoing.Match.ID)

	members, err := h.client.ListMemberContributions(ctx, &ListMemberContributionsRequest{MatchID: formed.Match.ID, GroupID: "a"})
	require.NoError(t, err)
	require.Len(t, members.Members, 1)
	assert.Equal(t, "alice", members.Members[0].ContributorID)

	finished, err := h.client.FinishMatch(ctx, &FinishMatchRequest{MatchID: formed.Match.ID})
	require.NoError(t, err)
	assert.Equal(t, "FINISHED", finished.Match.Status)
	assert.Equal(t, "a", finished.Match.WinnerGroupID)

	got, err := h.client.GetMatch(ctx, &GetMatchRequest{MatchID: formed.Match.ID})
	require.NoError(t, err)
	assert.Equal(t, "FINISHED", got.Match.Status)
}

func TestCrewService_ErrorCodes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.client.SubmitRunning(ctx, &SubmitRunningRequest{ContributorID: "alice", GroupID: "g1", Distance: 0})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = h.client.StartChallenge(ctx, &StartChallengeRequest{GroupID: "g1", Title: "t", GoalValue: 1, EndAt: "tomorrow"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = h.client.StartChallenge(ctx, &StartChallengeRequest{GroupID: "nope", Title: "t", GoalValue: 1, EndAt: now.Add(time.Hour).Format(time.RFC3339)})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = h.client.FinishMatch(ctx, &FinishMatchRequest{MatchID: "missing"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = h.client.RegisterGroup(ctx, &RegisterGroupRequest{ID: "g1", Name: "g1"})
	require.NoError(t, err)
	req := &StartChallengeRequest{GroupID: "g1", Title: "t", GoalValue: 1, EndAt: now.Add(time.Hour).Format(time.RFC3339)}
	_, err = h.client.StartChallenge(ctx, req)
	require.NoError(t, err)
	_, err = h.client.StartChallenge(ctx, req)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{&domain.InvalidContributionError{Delta: 0}, connect.CodeInvalidArgument},
		{&domain.ValidationError{Field: "f", Message: "m"}, connect.CodeInvalidArgument},
		{&domain.ConflictError{Reason: "r"}, connect.CodeFailedPrecondition},
		{&domain.NotFoundError{Entity: "match", ID: "m"}, connect.CodeNotFound},
		{&domain.LockTimeoutError{Err: errors.New("busy")}, connect.CodeUnavailable},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, codeFor(tt.err), tt.err.Error())
	}
}

func TestCrewService_SweepAndFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, id := range []string{"g1", "g2"} {
		_, err := h.client.RegisterGroup(ctx, &RegisterGroupRequest{ID: id, Name: id})
		require.NoError(t, err)
	}
	started, err := h.client.StartChallenge(ctx, &StartChallengeRequest{
		GroupID: "g1", Title: "short", GoalValue: 5000, EndAt: now.Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	h.clock.Set(now.Add(2 * time.Hour))
	swept, err := h.client.RunSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept.Failed)
	// g1 already had a challenge this month, so only g2 gets a monthly one.
	assert.Equal(t, 1, swept.Created)

	list, err := h.client.ListChallenges(ctx, &ListChallengesRequest{GroupID: "g1"})
	require.NoError(t, err)
	require.Len(t, list.Challenges, 1)
	assert.Equal(t, started.Challenge.ID, list.Challenges[0].ID)
	assert.Equal(t, "FAILED", list.Challenges[0].Status)

	active, err := h.client.GetActiveChallenge(ctx, &GetActiveChallengeRequest{GroupID: "g2"})
	require.NoError(t, err)
	require.NotNil(t, active.Challenge)
	assert.Equal(t, int64(100000), active.Challenge.GoalValue)

	failures, err := h.client.ListFailures(ctx)
	require.NoError(t, err)
	assert.Empty(t, failures.Failures)

	_, err = h.client.ReplayFailure(ctx, &ReplayFailureRequest{FailureID: "missing"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestRouter_MetricsAndRequestID(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.RegisterGroup(context.Background(), &RegisterGroupRequest{ID: "g1", Name: "g1"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.RequestIDHeader, "req-123")

	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-123", resp.Header.Get(middleware.RequestIDHeader))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "runcrew_http_request_duration_seconds")
	assert.Contains(t, string(body), `route="`+RegisterGroupProcedure+`"`)

	health, err := h.srv.Client().Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
	assert.NotEmpty(t, health.Header.Get(middleware.RequestIDHeader))
}

func TestRouter_UnknownPathsShareOneRouteLabel(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/wp-login.php", "/.git/config", "/nope/123"} {
		resp, err := h.srv.Client().Get(h.srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := h.srv.Client().Get(h.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `route="other"`)
	assert.NotContains(t, string(body), "wp-login")
	assert.NotContains(t, string(body), "/nope/123")
}

func TestCrewService_ListPersonalChallenges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, d := range []int64{30000, 25000} {
		_, err := h.client.SubmitRunning(ctx, &SubmitRunningRequest{ContributorID: "alice", GroupID: "g1", Distance: d})
		require.NoError(t, err)
	}

	resp, err := h.client.ListPersonalChallenges(ctx, &ListPersonalChallengesRequest{ContributorID: "alice"})
	require.NoError(t, err)
	require.Len(t, resp.Challenges, 2)

	assert.Equal(t, "DISTANCE", resp.Challenges[0].Type)
	assert.Equal(t, int64(55000), resp.Challenges[0].CurrentValue)
	assert.Equal(t, 100, resp.Challenges[0].ProgressPercent)
	assert.Equal(t, "STREAK", resp.Challenges[1].Type)
	assert.Equal(t, int64(2), resp.Challenges[1].CurrentValue)
	assert.Equal(t, "2026-03-01T00:00:00Z", resp.Challenges[1].StartAt)

	_, err = h.client.ListPersonalChallenges(ctx, &ListPersonalChallengesRequest{})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
