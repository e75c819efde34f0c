package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"runcrew/internal/domain"
	"runcrew/internal/notify"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participantValue(m *domain.Match, groupID string) int64 {
	for _, p := range m.Participants {
		if p.GroupID == groupID {
			return p.Value
		}
	}
	return -1
}

func TestFormMatch_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerGroup(t, "a")
	e.registerGroup(t, "b")

	tests := []struct {
		name  string
		input FormMatchInput
		check func(error) bool
	}{
		{"missing title", FormMatchInput{GroupAID: "a", GroupBID: "b", StartAt: testNow, EndAt: testNow.Add(time.Hour)}, domain.IsValidation},
		{"same group", FormMatchInput{Title: "t", GroupAID: "a", GroupBID: "a", StartAt: testNow, EndAt: testNow.Add(time.Hour)}, domain.IsValidation},
		{"empty window", FormMatchInput{Title: "t", GroupAID: "a", GroupBID: "b", StartAt: testNow, EndAt: testNow}, domain.IsValidation},
		{"unregistered group", FormMatchInput{Title: "t", GroupAID: "a", GroupBID: "zzz", StartAt: testNow, EndAt: testNow.Add(time.Hour)}, domain.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.matches.FormMatch(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestFormMatch_CreatesTwoZeroParticipants(t *testing.T) {
	e := newEnv(t)
	e.registerGroup(t, "a")
	e.registerGroup(t, "b")

	m := e.formMatch(t, "a", "b")
	assert.Equal(t, domain.MatchOngoing, m.Status)

	got, err := e.matches.Get(context.Background(), m.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 2)
	assert.Equal(t, int64(0), participantValue(got, "a"))
	assert.Equal(t, int64(0), participantValue(got, "b"))
	assert.Empty(t, got.WinnerGroupID)
}

func TestFormMatch_SecondOngoingConflicts(t *testing.T) {
	e := newEnv(t)
	for _, g := range []string{"a", "b", "c", "d"} {
		e.registerGroup(t, g)
	}
	e.formMatch(t, "a", "b")

	_, err := e.matches.FormMatch(context.Background(), FormMatchInput{
		Title:    "other",
		GroupAID: "c",
		GroupBID: "d",
		StartAt:  testNow,
		EndAt:    testNow.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestMatchApplyContribution_NoOngoingMatchIsNoop(t *testing.T) {
	e := newEnv(t)
	e.registerGroup(t, "a")

	m, err := e.matches.ApplyContribution(context.Background(), "a", 1000)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestMatchApplyContribution_OutsideWindowIsNoop(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerGroup(t, "a")
	e.registerGroup(t, "b")

	_, err := e.matches.FormMatch(ctx, FormMatchInput{
		Title:    "next week",
		GroupAID: "a",
		GroupBID: "b",
		StartAt:  testNow.Add(24 * time.Hour),
		EndAt:    testNow.Add(48 * time.Hour),
	})
	require.NoError(t, err)

	m, err := e.matches.ApplyContribution(ctx, "a", 1000)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestMatchApplyContribution_NonParticipantIsolation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, g := range []string{"a", "b", "outsider"} {
		e.registerGroup(t, g)
	}
	match := e.formMatch(t, "a", "b")

	_, err := e.matches.ApplyContribution(ctx, "a", 700)
	require.NoError(t, err)

	m, err := e.matches.ApplyContribution(ctx, "outsider", 5000)
	require.NoError(t, err)
	assert.Nil(t, m)

	got, err := e.matches.Get(ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 2)
	assert.Equal(t, int64(700), participantValue(got, "a"))
	assert.Equal(t, int64(0), participantValue(got, "b"))
}

func TestMatchApplyContribution_ConcurrentSum(t *testing.T) {
	e := newEnv(t)
	e.registerGroup(t, "a")
	e.registerGroup(t, "b")
	match := e.formMatch(t, "a", "b")

	var wg sync.WaitGroup
	var wantA, wantB int64
	for i := 1; i <= 40; i++ {
		group := "a"
		if i%2 == 0 {
			group = "b"
			wantB += int64(i)
		} else {
			wantA += int64(i)
		}
		wg.Add(1)
		go func(group string, delta int64) {
			defer wg.Done()
			_, err := e.matches.ApplyContribution(context.Background(), group, delta)
			assert.NoError(t, err)
		}(group, int64(i))
	}
	wg.Wait()

	got, err := e.matches.Get(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, wantA, participantValue(got, "a"))
	assert.Equal(t, wantB, participantValue(got, "b"))
}

func TestFinish_WinnerAndDraw(t *testing.T) {
	tests := []struct {
		name       string
		a, b       int64
		wantStatus domain.MatchStatus
		wantWinner string
	}{
		{"a wins", 10000, 8000, domain.MatchFinished, "a"},
		{"b wins", 8000, 10000, domain.MatchFinished, "b"},
		{"draw", 10000, 10000, domain.MatchDraw, ""},
		{"scoreless draw", 0, 0, domain.MatchDraw, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			e.registerGroup(t, "a")
			e.registerGroup(t, "b")
			match := e.formMatch(t, "a", "b")

			if tt.a > 0 {
				_, err := e.matches.ApplyContribution(ctx, "a", tt.a)
				require.NoError(t, err)
			}
			if tt.b > 0 {
				_, err := e.matches.ApplyContribution(ctx, "b", tt.b)
				require.NoError(t, err)
			}

			got, err := e.matches.Finish(ctx, match.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantWinner, got.WinnerGroupID)

			stored, err := e.matches.Get(ctx, match.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Equal(t, tt.wantWinner, stored.WinnerGroupID)

			events := e.notifier.Events()
			require.Len(t, events, 1)
			assert.Equal(t, notify.EventMatchFinished, events[0].Type)
			assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.MatchesCompleted.WithLabelValues(string(tt.wantStatus))))
		})
	}
}

func TestFinish_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerGroup(t, "a")
	e.registerGroup(t, "b")

	_, err := e.matches.Finish(ctx, "missing")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	match := e.formMatch(t, "a", "b")
	_, err = e.matches.Finish(ctx, match.ID)
	require.NoError(t, err)

	_, err = e.matches.Finish(ctx, match.ID)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestFinish_MissingParticipantIsNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerGroup(t, "a")
	e.registerGroup(t, "b")
	match := e.formMatch(t, "a", "b")

	_, err := e.repos.DB.ExecContext(ctx, `DELETE FROM match_participants WHERE match_id = ? AND group_id = 'b'`, match.ID)
	require.NoError(t, err)

	_, err = e.matches.Finish(ctx, match.ID)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	got, err := e.matches.Get(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchOngoing, got.Status)
}

func TestMatchApplyContribution_RecreatesMissingParticipant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.registerGroup(t, "a")
	e.registerGroup(t, "b")
	match := e.formMatch(t, "a", "b")

	_, err := e.repos.DB.ExecContext(ctx, `DELETE FROM match_participants WHERE match_id = ? AND group_id = 'b'`, match.ID)
	require.NoError(t, err)

	got, err := e.matches.ApplyContribution(ctx, "b", 1200)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1200), participantValue(got, "b"))
}

func TestFormMatch_AfterFinishAllowsNewMatch(t *testing.T) {
	e := newEnv(t)
	e.registerGroup(t, "a")
	e.registerGroup(t, "b")

	first := e.formMatch(t, "a", "b")
	_, err := e.matches.Finish(context.Background(), first.ID)
	require.NoError(t, err)

	second := e.formMatch(t, "b", "a")
	assert.NotEqual(t, first.ID, second.ID)

	ongoing, err := e.matches.GetOngoing(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ongoing)
	assert.Equal(t, second.ID, ongoing.ID)
}
