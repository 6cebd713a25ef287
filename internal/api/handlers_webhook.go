package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sydlexius/groovenomad/internal/webhook"
)

type webhookBody struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Type    string   `json:"type"`
	Events  []string `json:"events"`
	Enabled *bool    `json:"enabled"`
}

// webhookError maps service errors to a response.
func (r *Router) webhookError(w http.ResponseWriter, req *http.Request, op string, err error) {
	switch {
	case errors.Is(err, webhook.ErrNotFound):
		writeError(w, req, http.StatusNotFound, "webhook not found")
	case errors.Is(err, webhook.ErrInvalid):
		writeError(w, req, http.StatusBadRequest, strings.TrimPrefix(err.Error(), webhook.ErrInvalid.Error()+": "))
	default:
		r.logger.Error(op, "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
	}
}

func (r *Router) handleListWebhooks(w http.ResponseWriter, req *http.Request) {
	webhooks, err := r.webhookService.List(req.Context())
	if err != nil {
		r.webhookError(w, req, "listing webhooks", err)
		return
	}
	writeJSON(w, http.StatusOK, webhooks)
}

func (r *Router) handleGetWebhook(w http.ResponseWriter, req *http.Request) {
	wh, err := r.webhookService.GetByID(req.Context(), req.PathValue("id"))
	if err != nil {
		r.webhookError(w, req, "getting webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

// handleCreateWebhook creates an endpoint. Enabled defaults to true.
func (r *Router) handleCreateWebhook(w http.ResponseWriter, req *http.Request) {
	var body webhookBody
	if !decodeJSON(w, req, &body) {
		return
	}
	wh := &webhook.Webhook{
		Name:    strings.TrimSpace(body.Name),
		URL:     strings.TrimSpace(body.URL),
		Type:    body.Type,
		Events:  body.Events,
		Enabled: boolOr(body.Enabled, true),
	}
	if err := r.webhookService.Create(req.Context(), wh); err != nil {
		r.webhookError(w, req, "creating webhook", err)
		return
	}
	r.logger.Info("webhook created", "id", wh.ID, "name", wh.Name, "type", wh.Type)
	writeJSON(w, http.StatusCreated, wh)
}

// handleUpdateWebhook applies a partial update: empty strings and absent
// fields leave the stored value unchanged.
func (r *Router) handleUpdateWebhook(w http.ResponseWriter, req *http.Request) {
	existing, err := r.webhookService.GetByID(req.Context(), req.PathValue("id"))
	if err != nil {
		r.webhookError(w, req, "getting webhook", err)
		return
	}

	var body webhookBody
	if !decodeJSON(w, req, &body) {
		return
	}
	if v := strings.TrimSpace(body.Name); v != "" {
		existing.Name = v
	}
	if v := strings.TrimSpace(body.URL); v != "" {
		existing.URL = v
	}
	if body.Type != "" {
		existing.Type = body.Type
	}
	if body.Events != nil {
		existing.Events = body.Events
	}
	existing.Enabled = boolOr(body.Enabled, existing.Enabled)

	if err := r.webhookService.Update(req.Context(), existing); err != nil {
		r.webhookError(w, req, "updating webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (r *Router) handleDeleteWebhook(w http.ResponseWriter, req *http.Request) {
	if err := r.webhookService.Delete(req.Context(), req.PathValue("id")); err != nil {
		r.webhookError(w, req, "deleting webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleTestWebhook delivers a test notification synchronously and reports
// the outcome.
func (r *Router) handleTestWebhook(w http.ResponseWriter, req *http.Request) {
	wh, err := r.webhookService.GetByID(req.Context(), req.PathValue("id"))
	if err != nil {
		r.webhookError(w, req, "getting webhook", err)
		return
	}
	if err := r.webhookDispatcher.SendTest(req.Context(), wh); err != nil {
		r.logger.Warn("webhook test failed", "webhook", wh.Name, "error", err)
		writeError(w, req, http.StatusBadGateway, "delivery failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
