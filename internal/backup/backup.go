// Package backup takes consistent snapshots of the festival database and
// keeps the newest few.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

const (
	filePrefix  = "groovenomad-"
	stampLayout = "20060102-150405"
	fileSuffix  = ".db"
)

var filenamePattern = regexp.MustCompile(`^groovenomad-\d{8}-\d{6}\.db$`)

// Info describes a backup file on disk.
type Info struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Service writes snapshots into dir and keeps at most retention of them.
type Service struct {
	db        *sql.DB
	dir       string
	retention int
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a backup service. A retention below 1 keeps one file.
func NewService(db *sql.DB, dir string, retention int, logger *slog.Logger) *Service {
	if retention < 1 {
		retention = 1
	}
	return &Service{
		db:        db,
		dir:       dir,
		retention: retention,
		logger:    logger.With(slog.String("component", "backup")),
		now:       time.Now,
	}
}

// Backup writes a snapshot with VACUUM INTO and returns its details.
func (s *Service) Backup(ctx context.Context) (*Info, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	created := s.now().UTC().Truncate(time.Second)
	name := filePrefix + created.Format(stampLayout) + fileSuffix
	dest := filepath.Join(s.dir, name)
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("backup %s already exists", name)
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}
	fi, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	s.logger.Info("backup written", slog.String("filename", name), slog.Int64("size", fi.Size()))
	return &Info{Filename: name, Size: fi.Size(), CreatedAt: created}, nil
}

// List returns backups newest first. A missing directory yields none.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	out := []Info{}
	for _, e := range entries {
		if e.IsDir() || !ValidFilename(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		stamp := e.Name()[len(filePrefix) : len(e.Name())-len(fileSuffix)]
		ts, err := time.Parse(stampLayout, stamp)
		if err != nil {
			ts = fi.ModTime().UTC()
		}
		out = append(out, Info{Filename: e.Name(), Size: fi.Size(), CreatedAt: ts})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Prune removes all but the newest retention backups and reports how many
// were deleted.
func (s *Service) Prune() (int, error) {
	backups, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(backups) <= s.retention {
		return 0, nil
	}

	removed := 0
	for _, b := range backups[s.retention:] {
		if err := os.Remove(filepath.Join(s.dir, b.Filename)); err != nil {
			s.logger.Warn("removing old backup", slog.String("filename", b.Filename), slog.Any("error", err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("pruned backups", slog.Int("removed", removed), slog.Int("retention", s.retention))
	}
	return removed, nil
}

// StartScheduler backs up and prunes on a fixed interval until ctx is
// canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("backup scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("retention", s.retention))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Backup(ctx); err != nil {
				s.logger.Error("scheduled backup failed", slog.Any("error", err))
				continue
			}
			if _, err := s.Prune(); err != nil {
				s.logger.Error("pruning backups", slog.Any("error", err))
			}
		}
	}
}

// ValidFilename reports whether name is a plain backup filename.
func ValidFilename(name string) bool {
	return filenamePattern.MatchString(name)
}
