package business

import (
	"context"
	"sync"
	"time"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/utils"
)

// WindowLimiter admits at most limit calls per window. The window opens on the
// first call after the previous one expired; once full, callers sleep until it
// expires and a fresh window opens.
type WindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	start  time.Time
	count  int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWindowLimiter creates a limiter for limit calls per window
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &WindowLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  utils.Sleep,
	}
}

// Wait blocks until the caller may proceed and returns how long it slept
func (l *WindowLimiter) Wait(ctx context.Context) (time.Duration, error) {
	var waited time.Duration

	for {
		l.mu.Lock()
		now := l.now()
		if l.start.IsZero() || now.Sub(l.start) >= l.window {
			l.start = now
			l.count = 0
		}
		if l.count < l.limit {
			l.count++
			l.mu.Unlock()
			return waited, nil
		}
		wait := l.window - now.Sub(l.start)
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// Used returns the number of calls admitted in the current window
func (l *WindowLimiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.start.IsZero() || l.now().Sub(l.start) >= l.window {
		return 0
	}
	return l.count
}
