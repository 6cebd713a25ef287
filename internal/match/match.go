// Package match ranks festivals against a listener's artists and genres.
package match

import (
	"slices"
	"strings"
	"sync"

	"github.com/sydlexius/groovenomad/internal/festival"
	"github.com/sydlexius/groovenomad/internal/lexicon"
)

// Score weights and the result cap.
const (
	DirectArtistPoints     = 3
	AssociatedArtistPoints = 2
	GenrePoints            = 2
	AtmospherePoints       = 1
	MaxResults             = 5
)

// Input is one matching request. Artists and Genres are case-insensitive
// sets: blank entries are ignored and the first spelling of a repeated
// entry is the one reported back.
type Input struct {
	Artists        []string `json:"artists"`
	Genres         []string `json:"genres"`
	IncludeArtists bool     `json:"include_artists"`
	IncludeGenres  bool     `json:"include_genres"`
}

// Result pairs a festival with its score. Festival points into the slice
// passed to Match.
type Result struct {
	Festival       *festival.Festival `json:"festival"`
	Score          int                `json:"score"`
	MatchedArtists []string           `json:"matched_artists"`
	MatchedGenres  []string           `json:"matched_genres"`
}

type association struct {
	key    string
	tokens []string
}

// Matcher scores festivals using an artist association table.
type Matcher struct {
	assocs []association
}

// NewMatcher builds a Matcher over assocs, keeping their order.
func NewMatcher(assocs []lexicon.Association) *Matcher {
	m := &Matcher{assocs: make([]association, 0, len(assocs))}
	for _, a := range assocs {
		key := strings.ToLower(a.Artist)
		if strings.TrimSpace(key) == "" {
			continue
		}
		tokens := make([]string, 0, len(a.Tokens))
		for _, t := range a.Tokens {
			if strings.TrimSpace(t) != "" {
				tokens = append(tokens, strings.ToLower(t))
			}
		}
		m.assocs = append(m.assocs, association{key: key, tokens: tokens})
	}
	return m
}

// defaultMatcher is built once from the built-in association table.
var defaultMatcher = sync.OnceValue(func() *Matcher {
	return NewMatcher(lexicon.Default().Associations)
})

// MatchFestivals scores festivals with the built-in association table.
func MatchFestivals(festivals []festival.Festival, artists, genres []string, includeArtists, includeGenres bool) []Result {
	return defaultMatcher().Match(festivals, Input{
		Artists:        artists,
		Genres:         genres,
		IncludeArtists: includeArtists,
		IncludeGenres:  includeGenres,
	})
}

// Match returns at most MaxResults festivals with a positive score, highest
// first. Equal scores keep their input order.
func (m *Matcher) Match(festivals []festival.Festival, in Input) []Result {
	var artists, genres []term
	if in.IncludeArtists {
		artists = uniqueTerms(in.Artists)
	}
	if in.IncludeGenres {
		genres = uniqueTerms(in.Genres)
	}

	results := []Result{}
	if len(artists) == 0 && len(genres) == 0 {
		return results
	}

	for i := range festivals {
		r := m.score(&festivals[i], artists, genres)
		if r.Score > 0 {
			results = append(results, r)
		}
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		return b.Score - a.Score
	})
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results
}

type term struct {
	raw   string
	lower string
}

func uniqueTerms(in []string) []term {
	seen := make(map[string]bool, len(in))
	var out []term
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		lower := strings.ToLower(s)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, term{raw: s, lower: lower})
	}
	return out
}

func (m *Matcher) score(f *festival.Festival, artists, genres []term) Result {
	r := Result{Festival: f, MatchedArtists: []string{}, MatchedGenres: []string{}}

	name := strings.ToLower(f.Name)
	notes := strings.ToLower(f.Notes)
	genreField := strings.ToLower(f.GenreField())
	atmosphere := strings.ToLower(f.Atmosphere)

	for _, a := range artists {
		switch {
		case strings.Contains(notes, a.lower) || strings.Contains(name, a.lower):
			r.Score += DirectArtistPoints
			r.MatchedArtists = append(r.MatchedArtists, a.raw)
		case m.associated(a.lower, genreField, name, notes):
			r.Score += AssociatedArtistPoints
			r.MatchedArtists = append(r.MatchedArtists, a.raw)
		}
	}

	for _, g := range genres {
		if strings.Contains(genreField, g.lower) {
			r.Score += GenrePoints
			r.MatchedGenres = append(r.MatchedGenres, g.raw)
		}
	}
	for _, g := range genres {
		if strings.Contains(atmosphere, g.lower) {
			r.Score += AtmospherePoints
		}
	}
	return r
}

// associated reports whether the first table entry related to artist has a
// token present in any of fields.
func (m *Matcher) associated(artist string, fields ...string) bool {
	for _, a := range m.assocs {
		if !strings.Contains(a.key, artist) && !strings.Contains(artist, a.key) {
			continue
		}
		for _, tok := range a.tokens {
			for _, field := range fields {
				if strings.Contains(field, tok) {
					return true
				}
			}
		}
		return false
	}
	return false
}
