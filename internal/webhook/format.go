package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/sydlexius/groovenomad/internal/event"
)

const displayName = "Groove Nomad"

// formatPayload returns the request body for delivering e to w.
func formatPayload(w *Webhook, e event.Event) ([]byte, error) {
	var payload any
	switch w.Type {
	case TypeMake:
		payload = e.Data
	case TypeDiscord:
		payload = map[string]any{
			"embeds": []map[string]any{{
				"title":       fmt.Sprintf("%s: %s", displayName, e.Type),
				"description": describe(e),
				"color":       15105570, // orange
				"timestamp":   e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			}},
		}
	case TypeSlack:
		payload = map[string]any{
			"text": fmt.Sprintf("*%s: %s*\n%s", displayName, e.Type, describe(e)),
		}
	default:
		payload = map[string]any{
			"id":        e.ID,
			"event":     string(e.Type),
			"timestamp": e.Timestamp,
			"summary":   e.Summary,
			"data":      e.Data,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", w.Type, err)
	}
	return body, nil
}

func describe(e event.Event) string {
	if e.Summary != "" {
		return e.Summary
	}
	if e.Data == nil {
		return string(e.Type)
	}
	b, err := json.Marshal(e.Data)
	if err != nil {
		return string(e.Type)
	}
	return string(b)
}
