package festival

import (
	"context"
	"log/slog"
)

// Source supplies festival records to the matcher and the templater.
type Source interface {
	List(ctx context.Context, limit int) ([]Festival, error)
}

// FallbackSource serves the built-in samples whenever the wrapped source
// fails or has no rows.
type FallbackSource struct {
	src    Source
	logger *slog.Logger
}

// NewFallbackSource wraps src.
func NewFallbackSource(src Source, logger *slog.Logger) *FallbackSource {
	return &FallbackSource{src: src, logger: logger.With("component", "festival-source")}
}

// List never returns an error.
func (s *FallbackSource) List(ctx context.Context, limit int) ([]Festival, error) {
	out, err := s.src.List(ctx, limit)
	if err != nil {
		s.logger.Warn("listing festivals failed, using samples", "error", err)
		out = nil
	}
	if len(out) == 0 {
		out = Samples()
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
	}
	return out, nil
}
