package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sydlexius/groovenomad/internal/chat"
	"github.com/sydlexius/groovenomad/internal/event"
	"github.com/sydlexius/groovenomad/internal/inquiry"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
	maxQueryLength    = 2000
)

func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) {
	var body chat.Request
	if !decodeJSON(w, req, &body) {
		return
	}
	body.Query = strings.TrimSpace(body.Query)
	if body.Query == "" {
		writeError(w, req, http.StatusBadRequest, "query is required")
		return
	}
	if len(body.Query) > maxQueryLength {
		writeError(w, req, http.StatusBadRequest, "query is too long")
		return
	}
	writeJSON(w, http.StatusOK, r.templater.Respond(req.Context(), body))
}

func (r *Router) handleSubmitQuote(w http.ResponseWriter, req *http.Request) {
	var body inquiry.QuoteRequest
	if !decodeJSON(w, req, &body) {
		return
	}

	id, err := r.quoteIntake.Submit(req.Context(), &body)
	var verr *inquiry.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "invalid quote request",
			"fields": verr.Fields,
		})
	case err != nil:
		r.logger.Error("submitting quote request", "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func (r *Router) handleListQueries(w http.ResponseWriter, req *http.Request) {
	queries, err := r.queryLog.List(req.Context(), queryLimit(req, defaultQueryLimit, maxQueryLimit))
	if err != nil {
		r.logger.Error("listing queries", "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
		return
	}
	if queries == nil {
		queries = []inquiry.Query{}
	}
	writeJSON(w, http.StatusOK, queries)
}

func (r *Router) handleGetQuery(w http.ResponseWriter, req *http.Request) {
	q, err := r.queryLog.GetByID(req.Context(), req.PathValue("id"))
	switch {
	case errors.Is(err, inquiry.ErrNotFound):
		writeError(w, req, http.StatusNotFound, "query not found")
	case err != nil:
		r.logger.Error("getting query", "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, q)
	}
}

func (r *Router) handleReloadLexicon(w http.ResponseWriter, req *http.Request) {
	if err := r.lexicon.Reload(); err != nil {
		r.logger.Warn("lexicon reload rejected", "path", r.lexicon.Path(), "error", err)
		writeError(w, req, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lx := r.lexicon.Get()
	if r.events != nil {
		r.events.Publish(event.Event{
			Type:    event.LexiconReloaded,
			Summary: "Matching tables reloaded from the admin API",
			Data: map[string]any{
				"source":       "api",
				"associations": len(lx.Associations),
				"genres":       len(lx.Genres),
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "reloaded",
		"associations": len(lx.Associations),
		"genres":       len(lx.Genres),
	})
}
