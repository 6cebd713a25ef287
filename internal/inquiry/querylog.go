// Package inquiry records visitor queries and handles quote requests.
package inquiry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no query has the requested id.
var ErrNotFound = errors.New("query not found")

// TypeDetailedForm marks rows written by quote submissions.
const TypeDetailedForm = "detailed_form"

// Query is one row of the visitor query log. Response stays nil until an
// answer is stored.
type Query struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	QueryType string    `json:"query_type"`
	Response  *string   `json:"response"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QueryLog stores visitor queries in the user_queries table.
type QueryLog struct {
	db *sql.DB
}

// NewQueryLog creates a query log.
func NewQueryLog(db *sql.DB) *QueryLog {
	return &QueryLog{db: db}
}

// Record inserts a query with an optional response and returns its id.
func (l *QueryLog) Record(ctx context.Context, query, queryType string, response *string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	var resp sql.NullString
	if response != nil {
		resp = sql.NullString{String: *response, Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO user_queries (id, query, query_type, response, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, query, queryType, resp, now, now)
	if err != nil {
		return "", fmt.Errorf("recording query: %w", err)
	}
	return id, nil
}

// UpdateResponse stores the answer for a previously recorded query.
func (l *QueryLog) UpdateResponse(ctx context.Context, id, response string) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE user_queries SET response = ?, updated_at = ? WHERE id = ?
	`, response, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating query response: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns one query.
func (l *QueryLog) GetByID(ctx context.Context, id string) (*Query, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, query, query_type, response, created_at, updated_at
		FROM user_queries WHERE id = ?
	`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting query %s: %w", id, err)
	}
	return q, nil
}

// List returns up to limit queries, newest first. A limit of zero or less
// returns all of them.
func (l *QueryLog) List(ctx context.Context, limit int) ([]Query, error) {
	q := `SELECT id, query, query_type, response, created_at, updated_at
		FROM user_queries ORDER BY rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing queries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Query
	for rows.Next() {
		item, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning query: %w", err)
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (*Query, error) {
	var q Query
	var resp sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&q.ID, &q.Query, &q.QueryType, &resp, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if resp.Valid {
		q.Response = &resp.String
	}
	q.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	q.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &q, nil
}
