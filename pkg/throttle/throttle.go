// Package throttle paces calls to rate-limited remote services.
package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between two remote calls.
const DefaultInterval = time.Second

// Pacer blocks until the next call to endpoint may be issued. Done marks the end of
// that call; the next Wait is measured from it.
type Pacer interface {
	Wait(ctx context.Context, endpoint string) error
	Done(endpoint string)
}

// Throttler keeps at least interval between the end of one call and the start of the
// next, across all endpoints. Without Done it falls back to spacing call starts.
// It is meant for a single sequential caller sharing one global rate budget.
type Throttler struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Throttler. A non-positive interval falls back to DefaultInterval.
func New(interval time.Duration, logger *slog.Logger) *Throttler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Throttler{
		limiter:  newLimiter(interval),
		interval: interval,
		logger:   logger,
	}
}

// Interval returns the configured spacing.
func (t *Throttler) Interval() time.Duration {
	return t.interval
}

func newLimiter(interval time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (t *Throttler) Wait(ctx context.Context, endpoint string) error {
	t.mu.Lock()
	limiter := t.limiter
	t.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait for %s: %w", endpoint, err)
	}
	t.logger.Debug("Throttle released", "endpoint", endpoint, "waited_ms", time.Since(start).Milliseconds())
	return nil
}

// Done restarts the interval at the current time: a fresh limiter has its single
// token taken now, so the next Wait returns no earlier than now+interval.
func (t *Throttler) Done(endpoint string) {
	now := time.Now()
	limiter := newLimiter(t.interval)
	limiter.ReserveN(now, 1)

	t.mu.Lock()
	t.limiter = limiter
	t.mu.Unlock()
	t.logger.Debug("Throttle restarted", "endpoint", endpoint)
}

// Nop never delays. It only reports context cancellation.
type Nop struct{}

func (Nop) Wait(ctx context.Context, _ string) error {
	return ctx.Err()
}

func (Nop) Done(string) {}
