package avatax

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RequestLimiter bounds in-flight AvaTax calls and their rate.
type RequestLimiter struct {
	slots   chan struct{}
	rate    *rate.Limiter
	mu      sync.Mutex
	active  int
	waiting int
	granted int64
}

// NewRequestLimiter allows maxConcurrent simultaneous calls and rps calls per
// second. rps <= 0 disables rate limiting.
func NewRequestLimiter(maxConcurrent, rps int) *RequestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 50
	}
	l := &RequestLimiter{slots: make(chan struct{}, maxConcurrent)}
	if rps > 0 {
		l.rate = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return l
}

// Acquire blocks until a slot is free and the rate allows another call.
// Every successful Acquire must be paired with Release.
func (l *RequestLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	l.waiting++
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
	}()

	if l.rate != nil {
		if err := l.rate.Wait(ctx); err != nil {
			return err
		}
	}

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.granted++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *RequestLimiter) Release() {
	<-l.slots
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
}

// LimiterStats is a snapshot of limiter usage.
type LimiterStats struct {
	MaxConcurrent int
	Active        int
	Waiting       int
	Granted       int64
}

func (l *RequestLimiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LimiterStats{
		MaxConcurrent: cap(l.slots),
		Active:        l.active,
		Waiting:       l.waiting,
		Granted:       l.granted,
	}
}
