package store

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles store calls below the CMS global rate limit. A token
// bucket paces requests proactively; Retry-After responses push the next
// permissible request time back reactively. Permits are acquired before
// the request is recorded against the window (acquire-then-record), so a
// burst of concurrent callers cannot overshoot the limit.
type Limiter struct {
	bucket *rate.Limiter

	mu      sync.Mutex
	holdOff time.Time // no requests before this instant
}

// NewLimiter creates a limiter allowing perSec requests per second with
// the given burst.
func NewLimiter(perSec float64, burst int) *Limiter {
	if perSec <= 0 {
		perSec = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSec), burst)}
}

// Wait blocks until a request may be sent, or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	holdOff := l.holdOff
	l.mu.Unlock()

	if wait := time.Until(holdOff); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// UpdateFromResponse records server-side throttling hints. A Retry-After
// header (seconds) defers the next request.
func (l *Limiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs <= 0 {
		return
	}
	until := time.Now().Add(time.Duration(secs) * time.Second)

	l.mu.Lock()
	if until.After(l.holdOff) {
		l.holdOff = until
	}
	l.mu.Unlock()
}
