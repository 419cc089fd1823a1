package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Limiter enforces a minimum interval between requests made by one loader.
// Each loader owns exactly one Limiter; state is never shared across loader
// instances.
//
// Both wait variants compute the same deficit and both record the current
// time after waiting, even when no rate is configured, so the recorded
// timestamps stay monotonically non-decreasing over the loader's lifetime.
// A loader must use one variant consistently within a single Load invocation.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration // 0 disables rate limiting
	last     time.Time
	log      *logrus.Entry
}

// NewLimiter creates a Limiter targeting requestsPerSecond. A zero or
// negative rate disables the delay entirely (the limiter still records
// request times).
func NewLimiter(requestsPerSecond float64, log *logrus.Entry) *Limiter {
	var interval time.Duration
	if requestsPerSecond > 0 {
		interval = time.Duration(float64(time.Second) / requestsPerSecond)
	}
	return &Limiter{
		interval: interval,
		log:      log,
	}
}

// Wait suspends until the minimum interval since the last recorded request
// has elapsed, honoring ctx cancellation. On cancellation the request time is
// not recorded, since no fetch follows.
func (l *Limiter) Wait(ctx context.Context) error {
	if d := l.deficit(); d > 0 {
		l.log.WithField("sleep", d).Debug("Rate limit wait")
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	l.stamp()
	return nil
}

// WaitBlocking is the blocking variant of Wait, with identical timing
// semantics and no suspend point.
func (l *Limiter) WaitBlocking() {
	if d := l.deficit(); d > 0 {
		l.log.WithField("sleep", d).Debug("Rate limit wait")
		time.Sleep(d)
	}
	l.stamp()
}

// LastRequestAt returns the last recorded request time (zero before the
// first wait).
func (l *Limiter) LastRequestAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func (l *Limiter) deficit() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.interval <= 0 || l.last.IsZero() {
		return 0
	}
	if elapsed := time.Since(l.last); elapsed < l.interval {
		return l.interval - elapsed
	}
	return 0
}

func (l *Limiter) stamp() {
	l.mu.Lock()
	l.last = time.Now()
	l.mu.Unlock()
}
