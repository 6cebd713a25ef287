package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sydlexius/groovenomad/internal/event"
	"github.com/sydlexius/groovenomad/internal/version"
)

const (
	maxAttempts     = 3
	requestTimeout  = 10 * time.Second
	breakerTrip     = 5
	breakerCooldown = time.Minute
)

// Dispatcher sends events to the webhooks subscribed to them. Each webhook
// gets its own circuit breaker so one dead endpoint does not slow the rest.
type Dispatcher struct {
	service    *Service
	httpClient *http.Client
	logger     *slog.Logger
	retryDelay time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
	inflight sync.WaitGroup
}

// NewDispatcher creates a webhook dispatcher.
func NewDispatcher(service *Service, logger *slog.Logger) *Dispatcher {
	return NewDispatcherWithHTTPClient(service, &http.Client{Timeout: requestTimeout}, logger)
}

// NewDispatcherWithHTTPClient creates a dispatcher with a custom HTTP client (for testing).
func NewDispatcherWithHTTPClient(service *Service, httpClient *http.Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		service:    service,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "webhook-dispatcher")),
		retryDelay: time.Second,
		breakers:   make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Subscribe registers the dispatcher for every event type on bus.
func (d *Dispatcher) Subscribe(bus *event.Bus) {
	for _, t := range event.Types() {
		bus.Subscribe(t, d.HandleEvent)
	}
}

// HandleEvent is an event.Handler that starts a delivery to every matching
// webhook and returns without waiting for them.
func (d *Dispatcher) HandleEvent(e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	webhooks, err := d.service.ListByEvent(ctx, e.Type)
	if err != nil {
		d.logger.Error("listing webhooks for event", "type", string(e.Type), "error", err)
		return
	}

	for i := range webhooks {
		w := webhooks[i]
		d.inflight.Add(1)
		go func() {
			defer d.inflight.Done()
			d.deliver(&w, e)
		}()
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

// SendTest posts a test event to w once, bypassing the circuit breaker, and
// returns the delivery error.
func (d *Dispatcher) SendTest(ctx context.Context, w *Webhook) error {
	e := event.Event{
		ID:        "test",
		Type:      event.QuoteSubmitted,
		Timestamp: time.Now().UTC(),
		Summary:   "Test notification from " + displayName,
		Data:      map[string]any{"test": true},
	}
	body, err := formatPayload(w, e)
	if err != nil {
		return err
	}
	return d.send(ctx, w.URL, body)
}

func (d *Dispatcher) breaker(w *Webhook) *gobreaker.CircuitBreaker[struct{}] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cb, ok := d.breakers[w.ID]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        w.Name,
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.logger.Warn("webhook circuit breaker state changed",
				"webhook", name, "from", from.String(), "to", to.String())
		},
	})
	d.breakers[w.ID] = cb
	return cb
}

func (d *Dispatcher) deliver(w *Webhook, e event.Event) {
	body, err := formatPayload(w, e)
	if err != nil {
		d.logger.Error("formatting webhook payload", "webhook", w.Name, "error", err)
		return
	}
	cb := d.breaker(w)

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			time.Sleep(d.retryDelay << (attempt - 1))
		}

		_, lastErr = cb.Execute(func() (struct{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return struct{}{}, d.send(ctx, w.URL, body)
		})
		if lastErr == nil {
			d.logger.Debug("webhook delivered",
				"webhook", w.Name,
				"event", string(e.Type),
				"attempt", attempt+1,
			)
			return
		}
		if errors.Is(lastErr, gobreaker.ErrOpenState) || errors.Is(lastErr, gobreaker.ErrTooManyRequests) {
			d.logger.Warn("webhook circuit open, skipping delivery",
				"webhook", w.Name,
				"event", string(e.Type),
			)
			return
		}

		d.logger.Warn("webhook delivery failed",
			"webhook", w.Name,
			"event", string(e.Type),
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	d.logger.Error("webhook delivery exhausted retries",
		"webhook", w.Name,
		"event", string(e.Type),
		"error", lastErr,
	)
}

func (d *Dispatcher) send(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "GrooveNomad-Webhook/"+version.Version)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()        //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
