package spaceeye

import (
	"context"
	"fmt"
	"log/slog"
)

// DisplayService is the platform side of display handling: enumerating
// physical displays and setting a desktop image on one of them.
type DisplayService interface {
	EnumerateDisplays(ctx context.Context) ([]Display, error)
	SetDesktopImage(ctx context.Context, handle DisplayHandle, imageURL string, opts DesktopImageOptions) error
}

// DisplayRegistry resolves external display ids against the current
// enumeration. Handles are never cached across calls.
type DisplayRegistry struct {
	svc    DisplayService
	logger *slog.Logger
}

func NewDisplayRegistry(svc DisplayService, logger *slog.Logger) *DisplayRegistry {
	if logger == nil {
		logger = discardLogger()
	}
	return &DisplayRegistry{svc: svc, logger: logger}
}

func (r *DisplayRegistry) Enumerate(ctx context.Context) ([]Display, error) {
	displays, err := r.svc.EnumerateDisplays(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate displays: %w", err)
	}
	return displays, nil
}

// Resolve returns the display whose ExternalID equals id. If the platform
// reports the same id twice the first one in enumeration order wins.
func (r *DisplayRegistry) Resolve(ctx context.Context, id uint64) (Display, error) {
	displays, err := r.Enumerate(ctx)
	if err != nil {
		return Display{}, &DisplayError{ID: id, Err: err}
	}

	var (
		found   Display
		matches int
	)
	for _, d := range displays {
		if d.ExternalID != id {
			continue
		}
		if matches == 0 {
			found = d
		}
		matches++
	}
	switch {
	case matches == 0:
		return Display{}, &DisplayError{ID: id, Err: ErrDisplayNotFound}
	case matches > 1:
		r.logger.Warn("duplicate display id, using first", "display_id", id, "matches", matches)
	}
	return found, nil
}
