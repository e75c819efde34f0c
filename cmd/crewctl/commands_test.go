package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"runcrew/internal/clock"
	"runcrew/internal/config"
	"runcrew/internal/logger"
	"runcrew/internal/metrics"
	"runcrew/internal/notify"
	"runcrew/internal/server"
	"runcrew/internal/service"
	"runcrew/internal/sweeper"
	"runcrew/internal/testutil"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()

	repos := testutil.NewRepos(t)
	clk := clock.NewManual(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	log := logger.Nop()
	cfg := &config.Config{DefaultChallengeGoal: 100000}

	groups := service.NewGroupService(repos.Groups, clk, log)
	challenges := service.NewChallengeService(repos.Store, repos.Challenges, repos.Groups, clk, notify.Noop{}, m, cfg, log)
	matches := service.NewMatchService(repos.Store, repos.Matches, repos.Groups, repos.Runnings, clk, notify.Noop{}, m, log)
	runnings := service.NewRunningService(repos.Store, repos.Runnings, repos.Failures, challenges, matches, clk, m, log)
	sw := sweeper.NewSweeper(challenges, clk, sweeper.Options{Interval: time.Hour}, m, log)

	srv := httptest.NewServer(server.NewRouter(server.NewCrewServer(groups, challenges, matches, runnings, sw, log), reg, m, log))
	t.Cleanup(srv.Close)
	return srv.URL
}

func execute(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	out := &bytes.Buffer{}
	root := newRootCmd()
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	return out, root.Execute()
}

func TestCrewctl_GroupAndChallenge(t *testing.T) {
	addr := startServer(t)

	out, err := execute(t, "--addr", addr, "group", "register", "--id", "g1", "Dawn Patrol")
	require.NoError(t, err)
	var registered server.RegisterGroupResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &registered))
	assert.Equal(t, "Dawn Patrol", registered.Group.Name)

	out, err = execute(t, "--addr", addr, "challenge", "start",
		"--group", "g1", "--title", "Spring", "--goal", "5000", "--end-at", "2026-03-20T00:00:00Z")
	require.NoError(t, err)
	var started server.ChallengeResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &started))
	require.NotNil(t, started.Challenge)

	out, err = execute(t, "--addr", addr, "run", "submit", "--contributor", "alice", "--group", "g1", "--distance", "6000")
	require.NoError(t, err)
	var submitted server.SubmitRunningResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &submitted))
	require.NotNil(t, submitted.Challenge)
	assert.Equal(t, "SUCCESS", submitted.Challenge.Status)

	out, err = execute(t, "--addr", addr, "challenge", "contributions", started.Challenge.ID)
	require.NoError(t, err)
	var contributions server.ListContributionsResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &contributions))
	require.Len(t, contributions.Contributions, 1)
	assert.Equal(t, "alice", contributions.Contributions[0].ContributorID)

	out, err = execute(t, "--addr", addr, "run", "personal", "alice")
	require.NoError(t, err)
	var personal server.ListPersonalChallengesResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &personal))
	require.Len(t, personal.Challenges, 2)
	assert.Equal(t, int64(6000), personal.Challenges[0].CurrentValue)
	assert.Equal(t, int64(1), personal.Challenges[1].CurrentValue)
}

func TestCrewctl_Errors(t *testing.T) {
	addr := startServer(t)

	_, err := execute(t, "--addr", addr, "match", "finish", "missing")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = execute(t, "--addr", addr, "run", "submit", "--contributor", "alice", "--group", "g1", "--distance", "-5")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = execute(t, "--addr", addr, "match", "members", "only-one")
	assert.Error(t, err)
}
