package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"runcrew/internal/logger"
	"runcrew/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhook_DeliversEvent(t *testing.T) {
	var (
		mu     sync.Mutex
		events []Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var e Event
		if err := json.Unmarshal(body, &e); err == nil {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	w := NewWebhook(srv.URL, 100, m, logger.Nop())

	w.Notify(Event{
		Type:        EventChallengeSucceeded,
		AggregateID: "c1",
		GroupID:     "g1",
		Status:      "SUCCESS",
		Value:       100000,
		Goal:        100000,
		OccurredAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, EventChallengeSucceeded, events[0].Type)
	assert.Equal(t, "c1", events[0].AggregateID)
	assert.Equal(t, int64(100000), events[0].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues(EventChallengeSucceeded, "sent")))
}

func TestWebhook_ServerErrorIsCountedNotReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	w := NewWebhook(srv.URL, 100, m, logger.Nop())

	w.Notify(Event{Type: EventMatchFinished, AggregateID: "m1", Status: "DRAW"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues(EventMatchFinished, "failed")))
}

func TestNoop_Notify(t *testing.T) {
	var n Notifier = Noop{}
	assert.NotPanics(t, func() { n.Notify(Event{Type: EventMatchFinished}) })
}

func TestWebhook_NotifyDoesNotWaitForSlowEndpoint(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	w := newWebhook(srv.URL, 1000, 2, 4, m, logger.Nop())

	const total = 20
	start := time.Now()
	for range total {
		w.Notify(Event{Type: EventChallengeFailed, AggregateID: "c1", Status: "FAILED"})
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// Two workers hold one event each and the queue holds four more.
	dropped := testutil.ToFloat64(m.NotificationsSent.WithLabelValues(EventChallengeFailed, "dropped"))
	assert.GreaterOrEqual(t, dropped, float64(total-6))

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))

	sent := testutil.ToFloat64(m.NotificationsSent.WithLabelValues(EventChallengeFailed, "sent"))
	assert.Equal(t, float64(total), sent+dropped)
}

func TestWebhook_NotifyAfterCloseIsDropped(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	w := NewWebhook("http://127.0.0.1:1", 100, m, logger.Nop())
	require.NoError(t, w.Close(context.Background()))

	assert.NotPanics(t, func() { w.Notify(Event{Type: EventMatchFinished, AggregateID: "m1"}) })
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues(EventMatchFinished, "dropped")))
}
