package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

type Metrics struct {
	// RunningsSubmitted counts persisted runnings.
	RunningsSubmitted prometheus.Counter

	// Contributions counts aggregate updates by aggregate and result
	// (applied, skipped, failed).
	Contributions *prometheus.CounterVec

	// DistanceApplied sums meters credited per aggregate.
	DistanceApplied *prometheus.CounterVec

	ChallengeTransitions *prometheus.CounterVec
	MatchesCompleted     *prometheus.CounterVec

	SweepRuns     prometheus.Counter
	SweepDuration prometheus.Histogram

	LockTimeouts prometheus.Counter

	Replays *prometheus.CounterVec

	NotificationsSent *prometheus.CounterVec

	RequestDuration *prometheus.HistogramVec
}

// New registers every collector on reg. Pass a fresh prometheus.NewRegistry()
// in tests so registrations do not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunningsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "runcrew_runnings_submitted_total",
			Help: "Total runnings persisted",
		}),
		Contributions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runcrew_contributions_total",
			Help: "Aggregate updates by aggregate and result",
		}, []string{"aggregate", "result"}),
		DistanceApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runcrew_distance_applied_meters_total",
			Help: "Meters credited to aggregates",
		}, []string{"aggregate"}),
		ChallengeTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runcrew_challenge_transitions_total",
			Help: "Challenge state transitions by target status",
		}, []string{"status"}),
		MatchesCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runcrew_matches_completed_total",
			Help: "Completed matches by final status",
		}, []string{"status"}),
		SweepRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "runcrew_sweep_runs_total",
			Help: "Expiry sweeper runs",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "runcrew_sweep_duration_seconds",
			Help:    "Expiry sweeper run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		LockTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "runcrew_lock_timeouts_total",
			Help: "Write transactions that gave up waiting for the lock",
		}),
		Replays: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runcrew_failure_replays_total",
			Help: "Dead-letter replays by result",
		}, []string{"result"}),
		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runcrew_notifications_total",
			Help: "Webhook notifications by event and result",
		}, []string{"event", "result"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "runcrew_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// NewRegistry builds the process registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

var Module = fx.Options(
	fx.Provide(
		NewRegistry,
		func(reg *prometheus.Registry) prometheus.Registerer { return reg },
		New,
	),
)
