package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wagate/pkg/config"
	"github.com/wagate/pkg/entities"
	"github.com/wagate/pkg/eventbus"
	"github.com/wagate/pkg/events"
	"github.com/wagate/pkg/metrics"
	"golang.org/x/sync/semaphore"
)

// Payload is the JSON body POSTed to every webhook.
type Payload struct {
	Event     string    `json:"event"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Result summarizes the delivery of one event to one webhook.
type Result struct {
	WebhookID  string `json:"webhook_id"`
	Delivered  bool   `json:"delivered"`
	Attempts   int    `json:"attempts"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

type Subscriber interface {
	Subscribe(name string, h eventbus.Handler) func()
}

type DispatcherOptions struct {
	DefaultTimeout time.Duration
	MaxConcurrent  int64
	UserAgent      string
}

func DispatcherOptionsFromConfig(c config.Webhooks) DispatcherOptions {
	return DispatcherOptions{
		DefaultTimeout: c.DefaultTimeout,
		MaxConcurrent:  c.MaxConcurrent,
		UserAgent:      c.UserAgent,
	}
}

// Dispatcher delivers bus events to the active webhooks of the event's
// session. Each (event, webhook) pair runs in its own goroutine with its
// retries strictly sequential; the number of pairs in flight is capped.
type Dispatcher struct {
	repo   Deliveries
	client *http.Client
	opts   DispatcherOptions
	sem    *semaphore.Weighted
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(repo Deliveries, opts DispatcherOptions, log zerolog.Logger) *Dispatcher {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 64
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		repo:   repo,
		client: &http.Client{},
		opts:   opts,
		sem:    semaphore.NewWeighted(opts.MaxConcurrent),
		log:    log.With().Str("component", "webhook_dispatcher").Logger(),
		ctx:    ctx,
		cancel: cancel,
		now: func() time.Time {
			return time.Now().UTC()
		},
		sleep: sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attach subscribes the dispatcher to bus and returns the unsubscribe func.
func (d *Dispatcher) Attach(bus Subscriber) func() {
	return bus.Subscribe("webhooks", d.Handle)
}

// Handle resolves the webhooks interested in evt and starts their deliveries.
// It never waits for a delivery outcome.
func (d *Dispatcher) Handle(evt eventbus.Event) {
	if evt.SessionID == "" || d.isClosed() {
		return
	}

	hooks, err := d.repo.ActiveForSession(d.ctx, evt.SessionID)
	if err != nil {
		d.log.Error().Err(err).Str("session_id", evt.SessionID).Msg("load webhooks")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	for _, hook := range hooks {
		if !subscribed(hook, evt.Type) {
			continue
		}
		d.wg.Add(1)
		go func(hook entities.Webhook) {
			defer d.wg.Done()
			if err := d.sem.Acquire(d.ctx, 1); err != nil {
				return
			}
			defer d.sem.Release(1)
			d.Deliver(d.ctx, hook, evt)
		}(hook)
	}
}

func (d *Dispatcher) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func subscribed(hook entities.Webhook, typ events.Type) bool {
	return events.Contains(hookTypes(hook), typ)
}

// Deliver sends evt to hook, retrying per the hook's policy. Every attempt
// appends one log row.
func (d *Dispatcher) Deliver(ctx context.Context, hook entities.Webhook, evt eventbus.Event) Result {
	log := d.log.With().
		Str("webhook_id", hook.ID).
		Str("session_id", evt.SessionID).
		Str("event", string(evt.Type)).
		Logger()
	res := Result{WebhookID: hook.ID}

	body, err := json.Marshal(Payload{
		Event:     evt.Type.External(),
		SessionID: evt.SessionID,
		Timestamp: evt.Timestamp,
		Data:      evt.Data,
	})
	if err != nil {
		log.Error().Err(err).Msg("encode webhook payload")
		res.Error = err.Error()
		return res
	}

	policy := policyOf(hook)
	total := policy.TotalAttempts()
	for attempt := 1; attempt <= total; attempt++ {
		if attempt > 1 {
			if err := d.sleep(ctx, policy.NextDelay(attempt-2)); err != nil {
				log.Warn().Int("attempt", attempt).Msg("delivery abandoned")
				return res
			}
		}

		start := time.Now()
		status, err := d.attempt(ctx, hook, evt, body, attempt)
		elapsed := time.Since(start)
		res.Attempts = attempt
		res.StatusCode = status
		d.record(hook, evt, attempt, status, elapsed, err, log)

		if err == nil {
			res.Delivered = true
			res.Error = ""
			return res
		}
		res.Error = err.Error()
		log.Warn().Err(err).Int("attempt", attempt).Int("of", total).Msg("webhook attempt failed")
	}

	log.Error().Int("attempts", total).Msg("webhook delivery exhausted retries")
	return res
}

func (d *Dispatcher) attempt(ctx context.Context, hook entities.Webhook, evt eventbus.Event, body []byte, attempt int) (int, error) {
	timeout := d.opts.DefaultTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, &DeliveryError{Err: err}
	}
	for k, v := range hook.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}
	req.Header.Set(EventHeader, evt.Type.External())
	req.Header.Set(EventIDHeader, evt.ID)
	req.Header.Set(AttemptHeader, strconv.Itoa(attempt))
	if hook.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(hook.Secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, &DeliveryError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &DeliveryError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return resp.StatusCode, nil
}

func (d *Dispatcher) record(hook entities.Webhook, evt eventbus.Event, attempt, status int, elapsed time.Duration, err error, log zerolog.Logger) {
	row := entities.WebhookLog{
		ID:         uuid.NewString(),
		WebhookID:  hook.ID,
		SessionID:  evt.SessionID,
		EventID:    evt.ID,
		Event:      string(evt.Type),
		Status:     entities.WebhookLogSuccess,
		StatusCode: status,
		Attempt:    attempt,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  d.now(),
	}
	result := "success"
	if err != nil {
		row.Status = entities.WebhookLogFailure
		row.Error = err.Error()
		result = "failure"
	}
	metrics.WebhookAttempts.WithLabelValues(result).Inc()
	metrics.WebhookLatency.Observe(elapsed.Seconds())

	// the audit row outlives a cancelled delivery
	if err := d.repo.AppendLog(context.WithoutCancel(d.ctx), row); err != nil {
		log.Error().Err(err).Int("attempt", attempt).Msg("append webhook log")
	}
}

// Close stops accepting events and waits for in-flight deliveries, retries
// included, until ctx is done. Whatever is still running then is cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	defer d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
