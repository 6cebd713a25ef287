// Package webhook stores outbound webhook endpoints and delivers events to them.
package webhook

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sydlexius/groovenomad/internal/event"
)

// ErrNotFound is returned when no webhook has the requested id.
var ErrNotFound = errors.New("webhook not found")

// ErrInvalid wraps every validation failure from Create and Update.
var ErrInvalid = errors.New("invalid webhook")

// Webhook is a configured outbound endpoint.
type Webhook struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	Events    []string  `json:"events"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Webhook types. TypeMake posts the event data as-is, for automation
// platforms that map fields themselves.
const (
	TypeGeneric = "generic"
	TypeMake    = "make"
	TypeSlack   = "slack"
	TypeDiscord = "discord"
)

// ValidType reports whether t is a supported webhook type.
func ValidType(t string) bool {
	switch t {
	case TypeGeneric, TypeMake, TypeSlack, TypeDiscord:
		return true
	}
	return false
}

func (w *Webhook) validate() error {
	if w.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if w.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalid)
	}
	u, err := url.Parse(w.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalid)
	}
	if !ValidType(w.Type) {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, w.Type)
	}
	for _, e := range w.Events {
		if !event.Valid(e) {
			return fmt.Errorf("%w: unknown event type %q", ErrInvalid, e)
		}
	}
	return nil
}
