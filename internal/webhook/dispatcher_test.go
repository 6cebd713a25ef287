package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sydlexius/groovenomad/internal/event"
)

func setupDispatcher(t *testing.T, srv *httptest.Server) (*Service, *Dispatcher) {
	t.Helper()
	svc := setupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcherWithHTTPClient(svc, srv.Client(), logger)
	d.retryDelay = time.Millisecond
	return svc, d
}

func addHook(t *testing.T, svc *Service, url, typ string) *Webhook {
	t.Helper()
	w := &Webhook{
		Name:    typ + " hook",
		URL:     url,
		Type:    typ,
		Events:  []string{string(event.QuoteSubmitted)},
		Enabled: true,
	}
	if err := svc.Create(context.Background(), w); err != nil {
		t.Fatal(err)
	}
	return w
}

func quoteEvent() event.Event {
	return event.Event{
		ID:        "evt-1",
		Type:      event.QuoteSubmitted,
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Summary:   "New quote request from Ana",
		Data:      map[string]any{"source": "groovefest_ai_form"},
	}
}

type capture struct {
	mu     sync.Mutex
	bodies []map[string]any
	agent  string
}

func (c *capture) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.agent = r.Header.Get("User-Agent")
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func TestDispatcher_Formats(t *testing.T) {
	tests := []struct {
		typ   string
		check func(t *testing.T, body map[string]any)
	}{
		{TypeGeneric, func(t *testing.T, body map[string]any) {
			if body["event"] != "quote.submitted" || body["id"] != "evt-1" {
				t.Errorf("generic body = %v", body)
			}
		}},
		{TypeMake, func(t *testing.T, body map[string]any) {
			if body["source"] != "groovefest_ai_form" || len(body) != 1 {
				t.Errorf("make body should be the raw data, got %v", body)
			}
		}},
		{TypeSlack, func(t *testing.T, body map[string]any) {
			text, _ := body["text"].(string)
			if !strings.Contains(text, "quote.submitted") || !strings.Contains(text, "New quote request from Ana") {
				t.Errorf("slack text = %q", text)
			}
		}},
		{TypeDiscord, func(t *testing.T, body map[string]any) {
			embeds, _ := body["embeds"].([]any)
			if len(embeds) != 1 {
				t.Fatalf("embeds = %v", body["embeds"])
			}
			embed, _ := embeds[0].(map[string]any)
			if embed["description"] != "New quote request from Ana" {
				t.Errorf("description = %v", embed["description"])
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			c := &capture{}
			srv := httptest.NewServer(c.handler(http.StatusOK))
			defer srv.Close()

			svc, d := setupDispatcher(t, srv)
			addHook(t, svc, srv.URL, tt.typ)

			d.HandleEvent(quoteEvent())
			d.Wait()

			c.mu.Lock()
			defer c.mu.Unlock()
			if len(c.bodies) != 1 {
				t.Fatalf("deliveries = %d, want 1", len(c.bodies))
			}
			if !strings.HasPrefix(c.agent, "GrooveNomad-Webhook/") {
				t.Errorf("user agent = %q", c.agent)
			}
			tt.check(t, c.bodies[0])
		})
	}
}

func TestDispatcher_RetryOn500(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc, d := setupDispatcher(t, srv)
	addHook(t, svc, srv.URL, TypeGeneric)

	d.HandleEvent(quoteEvent())
	d.Wait()

	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestDispatcher_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, d := setupDispatcher(t, srv)
	addHook(t, svc, srv.URL, TypeGeneric)

	// Two events, three attempts each: the breaker trips on the fifth
	// failure and the sixth attempt never reaches the server.
	d.HandleEvent(quoteEvent())
	d.Wait()
	d.HandleEvent(quoteEvent())
	d.Wait()

	if got := calls.Load(); got != breakerTrip {
		t.Errorf("calls = %d, want %d", got, breakerTrip)
	}

	d.HandleEvent(quoteEvent())
	d.Wait()
	if got := calls.Load(); got != breakerTrip {
		t.Errorf("open breaker let %d extra calls through", got-breakerTrip)
	}
}

func TestDispatcher_NoMatchingWebhooks(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	svc, d := setupDispatcher(t, srv)
	addHook(t, svc, srv.URL, TypeGeneric)

	d.HandleEvent(event.Event{Type: event.LexiconReloaded, Timestamp: time.Now()})
	d.Wait()

	if calls.Load() != 0 {
		t.Error("webhook received an event it is not subscribed to")
	}
}

func TestDispatcher_SendTest(t *testing.T) {
	c := &capture{}
	ok := httptest.NewServer(c.handler(http.StatusNoContent))
	defer ok.Close()
	bad := httptest.NewServer(c.handler(http.StatusNotFound))
	defer bad.Close()

	_, d := setupDispatcher(t, ok)

	if err := d.SendTest(context.Background(), &Webhook{URL: ok.URL, Type: TypeSlack}); err != nil {
		t.Errorf("SendTest ok: %v", err)
	}
	if err := d.SendTest(context.Background(), &Webhook{URL: bad.URL, Type: TypeGeneric}); err == nil {
		t.Error("expected error for 404 endpoint")
	}
}

func TestDispatcher_SubscribeBus(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusOK))
	defer srv.Close()

	svc, d := setupDispatcher(t, srv)
	addHook(t, svc, srv.URL, TypeGeneric)

	bus := event.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)), 4)
	d.Subscribe(bus)
	bus.Publish(quoteEvent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Run(ctx) // drains the queued event
	d.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bodies) != 1 {
		t.Errorf("deliveries = %d, want 1", len(c.bodies))
	}
}
