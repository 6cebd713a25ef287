// Package playlist extracts artists and genres from pasted playlist text.
package playlist

import (
	"regexp"
	"strings"
)

// MaxArtists bounds the number of artists returned by Parse.
const MaxArtists = 10

// artistPattern captures the text before the first dash-like separator,
// skipping a leading "N." ordinal. "N)" and other numbering is kept.
var artistPattern = regexp.MustCompile(`(?:\d+\.\s*)?([^-–—]+)[-–—]`)

// Result holds what Parse found.
type Result struct {
	Artists []string `json:"artists"`
	Genres  []string `json:"genres"`
}

// Parse reads one track per line, usually "Artist - Title". Lines without
// a separator contribute their first space-delimited word. Genres are the
// vocabulary terms found anywhere in the text, in vocabulary order.
func Parse(text string, vocabulary []string) Result {
	res := Result{Artists: []string{}, Genres: []string{}}

	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		if len(res.Artists) == MaxArtists {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		artist := ArtistFromLine(line)
		if artist == "" || seen[artist] {
			continue
		}
		seen[artist] = true
		res.Artists = append(res.Artists, artist)
	}

	lower := strings.ToLower(text)
	for _, g := range vocabulary {
		if strings.TrimSpace(g) == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(g)) {
			res.Genres = append(res.Genres, g)
		}
	}
	return res
}

// ArtistFromLine returns the artist candidate for a single trimmed line, or
// "" when the line yields nothing usable.
func ArtistFromLine(line string) string {
	if m := artistPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	first, _, _ := strings.Cut(line, " ")
	return strings.TrimSpace(first)
}
