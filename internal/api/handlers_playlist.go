package api

import (
	"context"
	"net/http"

	"github.com/sydlexius/groovenomad/internal/festival"
	"github.com/sydlexius/groovenomad/internal/match"
	"github.com/sydlexius/groovenomad/internal/playlist"
	"github.com/sydlexius/groovenomad/web/components"
)

type matchBody struct {
	Artists        []string `json:"artists"`
	Genres         []string `json:"genres"`
	IncludeArtists *bool    `json:"include_artists"`
	IncludeGenres  *bool    `json:"include_genres"`
}

type playlistBody struct {
	Text           string `json:"text"`
	IncludeArtists *bool  `json:"include_artists"`
	IncludeGenres  *bool  `json:"include_genres"`
}

// matchAll scores every stored festival (or the samples) against in.
func (r *Router) matchAll(ctx context.Context, in match.Input) ([]match.Result, error) {
	festivals, err := r.festivalSource.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	results := match.NewMatcher(r.lexicon.Get().Associations).Match(festivals, in)
	if results == nil {
		results = []match.Result{}
	}
	return results, nil
}

func (r *Router) parse(text string) playlist.Result {
	return playlist.Parse(text, r.lexicon.Get().Genres)
}

func (r *Router) handleParsePlaylist(w http.ResponseWriter, req *http.Request) {
	var body playlistBody
	if !decodeJSON(w, req, &body) {
		return
	}
	writeJSON(w, http.StatusOK, r.parse(body.Text))
}

// handleMatch scores festivals against the given artists and genres. Both
// include flags default to true when omitted.
func (r *Router) handleMatch(w http.ResponseWriter, req *http.Request) {
	var body matchBody
	if !decodeJSON(w, req, &body) {
		return
	}
	results, err := r.matchAll(req.Context(), match.Input{
		Artists:        body.Artists,
		Genres:         body.Genres,
		IncludeArtists: boolOr(body.IncludeArtists, true),
		IncludeGenres:  boolOr(body.IncludeGenres, true),
	})
	if err != nil {
		r.logger.Error("matching festivals", "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": results})
}

func (r *Router) handleMatchPlaylist(w http.ResponseWriter, req *http.Request) {
	var body playlistBody
	if !decodeJSON(w, req, &body) {
		return
	}
	parsed := r.parse(body.Text)
	results, err := r.matchAll(req.Context(), match.Input{
		Artists:        parsed.Artists,
		Genres:         parsed.Genres,
		IncludeArtists: boolOr(body.IncludeArtists, true),
		IncludeGenres:  boolOr(body.IncludeGenres, true),
	})
	if err != nil {
		r.logger.Error("matching playlist", "error", err)
		writeError(w, req, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"artists": parsed.Artists,
		"genres":  parsed.Genres,
		"matches": results,
	})
}

func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	featured, err := r.festivalSource.List(req.Context(), featuredLimit)
	if err != nil {
		r.logger.Error("listing featured festivals", "error", err)
		featured = []festival.Festival{}
	}
	renderTempl(w, req, components.IndexPage(r.basePath, featured))
}

// handlePlaylistPage takes the landing page form and returns the match list
// fragment. Unchecked boxes are absent from the form and count as false.
func (r *Router) handlePlaylistPage(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := req.ParseForm(); err != nil {
		writeError(w, req, http.StatusBadRequest, "invalid form")
		return
	}
	parsed := r.parse(req.PostFormValue("playlist"))
	results, err := r.matchAll(req.Context(), match.Input{
		Artists:        parsed.Artists,
		Genres:         parsed.Genres,
		IncludeArtists: req.PostFormValue("include_artists") == "true",
		IncludeGenres:  req.PostFormValue("include_genres") == "true",
	})
	if err != nil {
		r.logger.Error("matching playlist form", "error", err)
		writeError(w, req, http.StatusInternalServerError, "could not match playlist")
		return
	}
	renderTempl(w, req, components.MatchList(results))
}
