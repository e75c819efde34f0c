package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"runcrew/internal/config"
	"runcrew/internal/constants"
	"runcrew/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	EventChallengeSucceeded = "challenge.succeeded"
	EventChallengeFailed    = "challenge.failed"
	EventMatchFinished      = "match.finished"
)

// Event is a lifecycle transition delivered after its transaction commits.
type Event struct {
	Type          string    `json:"type"`
	AggregateID   string    `json:"aggregate_id"`
	GroupID       string    `json:"group_id,omitempty"`
	Status        string    `json:"status"`
	WinnerGroupID string    `json:"winner_group_id,omitempty"`
	Value         int64     `json:"value"`
	Goal          int64     `json:"goal,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier delivers events best-effort. Notify never blocks on the network
// and never reports delivery failures to the caller.
type Notifier interface {
	Notify(event Event)
}

type Noop struct{}

func (Noop) Notify(Event) {}

// Webhook POSTs events to a single URL from a fixed pool of workers draining
// a bounded queue. Events that arrive while the queue is full are dropped.
type Webhook struct {
	url     string
	client  *fasthttp.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event

	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWebhook(url string, perSecond float64, m *metrics.Metrics, logger zerolog.Logger) *Webhook {
	return newWebhook(url, perSecond, constants.WebhookWorkers, constants.WebhookQueueSize, m, logger)
}

func newWebhook(url string, perSecond float64, workers, queueSize int, m *metrics.Metrics, logger zerolog.Logger) *Webhook {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Webhook{
		url: url,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.WebhookTimeout,
			WriteTimeout:        constants.WebhookTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		metrics: m,
		logger:  logger.With().Str("component", "webhook").Logger(),
		queue:   make(chan Event, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	for range workers {
		w.group.Go(w.work)
	}
	return w
}

// Notify enqueues event without waiting. A full queue or a closed notifier
// drops it.
func (w *Webhook) Notify(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.count(event.Type, "dropped")
		return
	}
	select {
	case w.queue <- event:
	default:
		w.logger.Warn().Str("event", event.Type).Str("aggregate_id", event.AggregateID).Msg("webhook queue full, dropping event")
		w.count(event.Type, "dropped")
	}
}

func (w *Webhook) work() error {
	for event := range w.queue {
		if err := w.deliver(w.ctx, event); err != nil {
			w.logger.Warn().Err(err).Str("event", event.Type).Str("aggregate_id", event.AggregateID).Msg("webhook delivery failed")
			w.count(event.Type, "failed")
			continue
		}
		w.count(event.Type, "sent")
	}
	return nil
}

func (w *Webhook) count(event, result string) {
	if w.metrics != nil {
		w.metrics.NotificationsSent.WithLabelValues(event, result).Inc()
	}
}

func (w *Webhook) deliver(ctx context.Context, event Event) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := w.client.DoTimeout(req, resp, constants.WebhookTimeout); err != nil {
		return err
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("webhook error: %d", code)
	}
	return nil
}

// Close stops accepting events and waits for the queue to drain until ctx is
// done. After that, pending deliveries are abandoned.
func (w *Webhook) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = w.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		<-done
		return ctx.Err()
	}
}

func New(lc fx.Lifecycle, cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) Notifier {
	if cfg.WebhookURL == "" {
		logger.Info().Msg("webhook notifications disabled")
		return Noop{}
	}

	w := NewWebhook(cfg.WebhookURL, cfg.WebhookRate, m, logger)
	lc.Append(fx.Hook{
		OnStop: w.Close,
	})
	return w
}

var Module = fx.Options(
	fx.Provide(New),
)
