package spaceeye

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// rateLimitedLogger drops warnings logged less than interval after the
// previous one, so a dead network does not flood the log in watch mode.
type rateLimitedLogger struct {
	logger   *slog.Logger
	clock    clockwork.Clock
	interval time.Duration

	mu      sync.Mutex
	lastAt  time.Time
	dropped int
}

func newRateLimitedLogger(logger *slog.Logger, clock clockwork.Clock, interval time.Duration) *rateLimitedLogger {
	return &rateLimitedLogger{logger: logger, clock: clock, interval: interval}
}

func (l *rateLimitedLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if !l.lastAt.IsZero() && now.Sub(l.lastAt) < l.interval {
		l.dropped++
		return
	}
	if l.dropped > 0 {
		args = append(args, "suppressed", l.dropped)
	}
	l.lastAt = now
	l.dropped = 0
	l.logger.Warn(msg, args...)
}
