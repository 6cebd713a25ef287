package festival

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/groovenomad/internal/filesystem"
)

// fileRow is the on-disk shape of a festival in YAML import files. Genres
// stay a single comma-separated string, as in the spreadsheet the catalog
// is maintained in.
type fileRow struct {
	ID                   string  `yaml:"id,omitempty"`
	Name                 string  `yaml:"name"`
	Genre                string  `yaml:"genre"`
	City                 string  `yaml:"city"`
	Country              string  `yaml:"country"`
	Dates                string  `yaml:"dates"`
	TicketPriceEUR       float64 `yaml:"ticket_price_eur"`
	Capacity             int     `yaml:"capacity"`
	Atmosphere           string  `yaml:"atmosphere"`
	Venue                string  `yaml:"venue"`
	Notes                string  `yaml:"notes,omitempty"`
	NearestAirport       string  `yaml:"nearest_airport,omitempty"`
	AccommodationOptions string  `yaml:"accommodation_options,omitempty"`
	Website              string  `yaml:"website,omitempty"`
}

func (r fileRow) festival() Festival {
	return Festival{
		ID:                   r.ID,
		Name:                 r.Name,
		City:                 r.City,
		Country:              r.Country,
		Genres:               ParseGenres(r.Genre),
		Dates:                r.Dates,
		TicketPriceEUR:       r.TicketPriceEUR,
		Capacity:             r.Capacity,
		Atmosphere:           r.Atmosphere,
		Venue:                r.Venue,
		Notes:                r.Notes,
		NearestAirport:       r.NearestAirport,
		AccommodationOptions: r.AccommodationOptions,
		Website:              r.Website,
	}
}

func toFileRow(f Festival) fileRow {
	return fileRow{
		ID:                   f.ID,
		Name:                 f.Name,
		Genre:                f.GenreField(),
		City:                 f.City,
		Country:              f.Country,
		Dates:                f.Dates,
		TicketPriceEUR:       f.TicketPriceEUR,
		Capacity:             f.Capacity,
		Atmosphere:           f.Atmosphere,
		Venue:                f.Venue,
		Notes:                f.Notes,
		NearestAirport:       f.NearestAirport,
		AccommodationOptions: f.AccommodationOptions,
		Website:              f.Website,
	}
}

// WriteFile saves festivals in the import format, replacing path
// atomically. The result can be fed back to LoadFile.
func WriteFile(path string, festivals []Festival) error {
	rows := make([]fileRow, len(festivals))
	for i, f := range festivals {
		rows[i] = toFileRow(f)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding festivals: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding festivals: %w", err)
	}
	return filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// LoadFile reads a YAML list of festivals for import.
func LoadFile(path string) ([]Festival, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading festival file: %w", err)
	}
	out, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return out, nil
}

func decode(data []byte) ([]Festival, error) {
	var rows []fileRow
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}

	out := make([]Festival, 0, len(rows))
	for i, r := range rows {
		if r.Name == "" {
			return nil, fmt.Errorf("entry %d: name is required", i+1)
		}
		out = append(out, r.festival())
	}
	return out, nil
}

//go:embed samples.yaml
var samplesYAML []byte

var samples = sync.OnceValue(func() []Festival {
	out, err := decode(samplesYAML)
	if err != nil {
		panic("festival: embedded samples: " + err.Error())
	}
	return out
})

// Samples returns the built-in catalog served while the store is empty.
// Each call returns a fresh copy.
func Samples() []Festival {
	src := samples()
	out := make([]Festival, len(src))
	for i, f := range src {
		f.Genres = slices.Clone(f.Genres)
		out[i] = f
	}
	return out
}
