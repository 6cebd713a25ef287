package festival

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const festivalColumns = `id, name, city, country, genre, dates, ticket_price_eur, capacity,
	atmosphere, venue, notes, nearest_airport, accommodation_options, website,
	created_at, updated_at`

// Service provides festival data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a festival service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new festival, assigning an id when empty.
func (s *Service) Create(ctx context.Context, f *Festival) error {
	return insert(ctx, s.db, f)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, f *Festival) error {
	if f.Name == "" {
		return fmt.Errorf("creating festival: name is required")
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	// Genres round-trip through one comma-separated column.
	f.Genres = ParseGenres(f.GenreField())
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO festivals (`+festivalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.ID, f.Name, f.City, f.Country, f.GenreField(), f.Dates, f.TicketPriceEUR, f.Capacity,
		f.Atmosphere, f.Venue, nullString(f.Notes), nullString(f.NearestAirport),
		nullString(f.AccommodationOptions), nullString(f.Website),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating festival: %w", err)
	}
	return nil
}

// GetByID retrieves a festival by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*Festival, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+festivalColumns+` FROM festivals WHERE id = ?`, id)
	f, err := scanFestival(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting festival %s: %w", id, err)
	}
	return f, nil
}

// List returns up to limit festivals in insertion order. A limit of zero or
// less returns all of them.
func (s *Service) List(ctx context.Context, limit int) ([]Festival, error) {
	query := `SELECT ` + festivalColumns + ` FROM festivals ORDER BY rowid`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing festivals: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Festival
	for rows.Next() {
		f, err := scanFestival(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning festival: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Count returns the number of stored festivals.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM festivals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting festivals: %w", err)
	}
	return n, nil
}

// Delete removes a festival by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM festivals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting festival: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Import inserts festivals in one transaction. With replace set, existing
// rows are removed first. It returns the number of rows inserted.
func (s *Service) Import(ctx context.Context, festivals []Festival, replace bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM festivals`); err != nil {
			return 0, fmt.Errorf("clearing festivals: %w", err)
		}
	}
	for i := range festivals {
		if err := insert(ctx, tx, &festivals[i]); err != nil {
			return 0, fmt.Errorf("row %d (%s): %w", i+1, festivals[i].Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return len(festivals), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFestival(row scanner) (*Festival, error) {
	var f Festival
	var genre, createdAt, updatedAt string
	var notes, airport, accommodation, website sql.NullString

	err := row.Scan(
		&f.ID, &f.Name, &f.City, &f.Country, &genre, &f.Dates, &f.TicketPriceEUR, &f.Capacity,
		&f.Atmosphere, &f.Venue, &notes, &airport, &accommodation, &website,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Genres = ParseGenres(genre)
	f.Notes = notes.String
	f.NearestAirport = airport.String
	f.AccommodationOptions = accommodation.String
	f.Website = website.String
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
