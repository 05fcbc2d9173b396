package gateway

import (
	"context"
	"sync"
	"time"
)

// Limiter is a mutex-guarded token bucket shared by every concurrent
// extraction request. The upstream quota is global to the process, so the
// limiter is the single synchronized point all calls pass through.
type Limiter struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	rate   float64 // tokens per second
	last   time.Time
}

// NewLimiter creates a Limiter allowing perMinute sustained calls with the
// given burst. A perMinute of <= 0 disables limiting.
func NewLimiter(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		tokens: float64(burst),
		burst:  float64(burst),
		rate:   float64(perMinute) / 60.0,
		last:   time.Now(),
	}
}

// reserve takes one token, returning how long the caller must wait before
// proceeding. Tokens may go negative; the debt is the wait time.
func (l *Limiter) reserve(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := now.Sub(l.last).Seconds()
	l.last = now
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

// Wait blocks until a token is available or ctx is done. A nil Limiter
// never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	delay := l.reserve(time.Now())
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
