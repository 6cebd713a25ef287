// Package festival stores festival records and supplies them to the matcher
// and the chat templater.
package festival

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when no festival has the requested id.
var ErrNotFound = errors.New("festival not found")

// Festival is one row of festival metadata. Matching reads it and never
// modifies it.
type Festival struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	City                 string    `json:"city"`
	Country              string    `json:"country"`
	Genres               []string  `json:"genres"`
	Dates                string    `json:"dates"`
	TicketPriceEUR       float64   `json:"ticket_price_eur"`
	Capacity             int       `json:"capacity"`
	Atmosphere           string    `json:"atmosphere"`
	Venue                string    `json:"venue"`
	Notes                string    `json:"notes,omitempty"`
	NearestAirport       string    `json:"nearest_airport,omitempty"`
	AccommodationOptions string    `json:"accommodation_options,omitempty"`
	Website              string    `json:"website,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// GenreField returns the genres as the comma-separated text they are stored as.
func (f *Festival) GenreField() string {
	return strings.Join(f.Genres, ", ")
}

// ParseGenres splits a comma-separated genre field, trimming each entry and
// dropping blanks. Order is preserved.
func ParseGenres(field string) []string {
	var out []string
	for _, g := range strings.Split(field, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
