package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sydlexius/groovenomad/internal/festival"
)

const (
	featuredLimit    = 6
	maxFestivalLimit = 100
)

func (r *Router) handleListFestivals(w http.ResponseWriter, req *http.Request) {
	limit := queryLimit(req, featuredLimit, maxFestivalLimit)
	festivals, err := r.festivalSource.List(req.Context(), limit)
	if err != nil {
		r.logger.Error("listing festivals", "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
		return
	}
	if festivals == nil {
		festivals = []festival.Festival{}
	}
	writeJSON(w, http.StatusOK, festivals)
}

// handleGetFestival also answers for the built-in samples, since the list
// endpoint serves them while the store is empty.
func (r *Router) handleGetFestival(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	f, err := r.festivalService.GetByID(req.Context(), id)
	if err == nil {
		writeJSON(w, http.StatusOK, f)
		return
	}
	if !errors.Is(err, festival.ErrNotFound) {
		r.logger.Error("getting festival", "id", id, "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
		return
	}
	for _, s := range festival.Samples() {
		if s.ID == id {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeError(w, req, http.StatusNotFound, "festival not found")
}

func (r *Router) handleCreateFestival(w http.ResponseWriter, req *http.Request) {
	var f festival.Festival
	if !decodeJSON(w, req, &f) {
		return
	}
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		writeError(w, req, http.StatusBadRequest, "name is required")
		return
	}
	if f.TicketPriceEUR < 0 || f.Capacity < 0 {
		writeError(w, req, http.StatusBadRequest, "ticket_price_eur and capacity must not be negative")
		return
	}
	f.ID = ""
	if err := r.festivalService.Create(req.Context(), &f); err != nil {
		r.logger.Error("creating festival", "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
		return
	}
	r.logger.Info("festival created", "id", f.ID, "name", f.Name)
	writeJSON(w, http.StatusCreated, f)
}

func (r *Router) handleDeleteFestival(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	err := r.festivalService.Delete(req.Context(), id)
	switch {
	case errors.Is(err, festival.ErrNotFound):
		writeError(w, req, http.StatusNotFound, "festival not found")
	case err != nil:
		r.logger.Error("deleting festival", "id", id, "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
