// Package maintenance keeps the SQLite store compact: it prunes old visitor
// questions and runs the optimizer on a schedule.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sydlexius/groovenomad/internal/inquiry"
)

// Status describes the database file and the last maintenance run.
type Status struct {
	DBFileSize    int64  `json:"db_file_size"`
	WALFileSize   int64  `json:"wal_file_size"`
	PageCount     int64  `json:"page_count"`
	PageSize      int64  `json:"page_size"`
	Queries       int64  `json:"queries"`
	RetentionDays int    `json:"query_retention_days"`
	LastRunAt     string `json:"last_run_at,omitempty"`
}

// Result reports what one run did.
type Result struct {
	PrunedQueries int64     `json:"pruned_queries"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Service runs database maintenance.
type Service struct {
	db            *sql.DB
	dbPath        string
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

// NewService creates a maintenance service. Questions older than
// retentionDays are deleted on each run; zero keeps them forever. Quote
// requests are never pruned.
func NewService(db *sql.DB, dbPath string, retentionDays int, logger *slog.Logger) *Service {
	return &Service{
		db:            db,
		dbPath:        dbPath,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "maintenance")),
		now:           time.Now,
	}
}

// Status returns current database size figures.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{RetentionDays: s.retentionDays}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		return nil, fmt.Errorf("reading page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		return nil, fmt.Errorf("reading page_size: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_queries").Scan(&st.Queries); err != nil {
		return nil, fmt.Errorf("counting queries: %w", err)
	}

	s.mu.Lock()
	if !s.lastRun.IsZero() {
		st.LastRunAt = s.lastRun.Format(time.RFC3339)
	}
	s.mu.Unlock()
	return st, nil
}

// Run prunes expired questions, then runs PRAGMA optimize and truncates
// the WAL.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	if s.retentionDays > 0 {
		cutoff := s.now().UTC().AddDate(0, 0, -s.retentionDays).Format(time.RFC3339)
		out, err := s.db.ExecContext(ctx,
			`DELETE FROM user_queries WHERE query_type <> ? AND created_at < ?`, inquiry.TypeDetailedForm, cutoff)
		if err != nil {
			return nil, fmt.Errorf("pruning queries: %w", err)
		}
		res.PrunedQueries, _ = out.RowsAffected()
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return nil, fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("WAL checkpoint: %w", err)
	}

	res.FinishedAt = s.now().UTC()
	s.mu.Lock()
	s.lastRun = res.FinishedAt
	s.mu.Unlock()

	s.logger.Info("maintenance complete", slog.Int64("pruned_queries", res.PrunedQueries))
	return res, nil
}

// StartScheduler runs maintenance on a fixed interval until ctx is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("maintenance scheduler started", slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.logger.Error("scheduled maintenance failed", slog.Any("error", err))
			}
		}
	}
}
