package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/groovenomad/internal/event"
)

const webhookColumns = `id, name, url, type, events, enabled, created_at, updated_at`

// Service manages webhook CRUD operations.
type Service struct {
	db *sql.DB
}

// NewService creates a webhook service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create validates and inserts a new webhook.
func (s *Service) Create(ctx context.Context, w *Webhook) error {
	if w.Type == "" {
		w.Type = TypeGeneric
	}
	if w.Events == nil {
		w.Events = []string{}
	}
	if err := w.validate(); err != nil {
		return err
	}

	events, err := encodeEvents(w.Events)
	if err != nil {
		return err
	}
	w.ID = uuid.New().String()
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	stamp := w.CreatedAt.Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO webhooks (`+webhookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.Name, w.URL, w.Type, events, w.Enabled, stamp, stamp)
	if err != nil {
		return fmt.Errorf("inserting webhook: %w", err)
	}
	return nil
}

// GetByID returns a webhook by ID.
func (s *Service) GetByID(ctx context.Context, id string) (*Webhook, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, id)
	return scanOne(row)
}

// GetByNameAndURL returns the webhook with this name and URL.
func (s *Service) GetByNameAndURL(ctx context.Context, name, url string) (*Webhook, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+webhookColumns+` FROM webhooks WHERE name = ? AND url = ? LIMIT 1
	`, name, url)
	return scanOne(row)
}

// List returns all webhooks ordered by name.
func (s *Service) List(ctx context.Context) ([]Webhook, error) {
	return s.query(ctx, `SELECT `+webhookColumns+` FROM webhooks ORDER BY name`)
}

func (s *Service) query(ctx context.Context, q string, args ...any) ([]Webhook, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := []Webhook{}
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// ListByEvent returns the enabled webhooks subscribed to t, ordered by name.
func (s *Service) ListByEvent(ctx context.Context, t event.Type) ([]Webhook, error) {
	return s.query(ctx, `
		SELECT `+webhookColumns+` FROM webhooks
		WHERE enabled = 1 AND EXISTS (SELECT 1 FROM json_each(webhooks.events) WHERE value = ?)
		ORDER BY name
	`, string(t))
}

// Update validates and stores changes to an existing webhook.
func (s *Service) Update(ctx context.Context, w *Webhook) error {
	if w.Events == nil {
		w.Events = []string{}
	}
	if err := w.validate(); err != nil {
		return err
	}
	events, err := encodeEvents(w.Events)
	if err != nil {
		return err
	}
	w.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE webhooks SET name = ?, url = ?, type = ?, events = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`, w.Name, w.URL, w.Type, events, w.Enabled, w.UpdatedAt.Format(time.RFC3339), w.ID)
	if err != nil {
		return fmt.Errorf("updating webhook %s: %w", w.ID, err)
	}
	return requireRow(res)
}

// Delete removes a webhook by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting webhook %s: %w", id, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// encodeEvents stores the subscription list as JSON text.
func encodeEvents(events []string) (string, error) {
	b, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encoding events: %w", err)
	}
	return string(b), nil
}

// EnsureWebhook creates the webhook unless one with the same name and URL
// already exists. Used to seed the quote webhook from the config file.
func (s *Service) EnsureWebhook(ctx context.Context, w *Webhook) (created bool, err error) {
	existing, err := s.GetByNameAndURL(ctx, w.Name, w.URL)
	switch {
	case err == nil:
		*w = *existing
		return false, nil
	case !errors.Is(err, ErrNotFound):
		return false, err
	}
	if err := s.Create(ctx, w); err != nil {
		return false, err
	}
	return true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (*Webhook, error) {
	w, err := scanWebhook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

func scanWebhook(s scanner) (*Webhook, error) {
	var (
		w                Webhook
		events           string
		created, updated string
	)
	if err := s.Scan(&w.ID, &w.Name, &w.URL, &w.Type, &events, &w.Enabled, &created, &updated); err != nil {
		return nil, fmt.Errorf("scanning webhook: %w", err)
	}
	if json.Unmarshal([]byte(events), &w.Events) != nil || w.Events == nil {
		w.Events = []string{}
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, created)
	w.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &w, nil
}
