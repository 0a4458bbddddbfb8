// Package ratelimit provides token-bucket bandwidth limiting for transfer
// streams. A single Limiter may be shared across the readers of one
// deployment so the cap applies to the aggregate.
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// Limiter is a token bucket sized at one second of traffic (64KB minimum)
type Limiter struct {
	bytesPerSecond int64
	bucketSize     int64

	mu         sync.Mutex
	tokens     int64
	lastRefill time.Time
}

// NewLimiter creates a limiter for the given rate. A non-positive rate
// returns nil, which every consumer treats as "unlimited".
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	bucketSize := bytesPerSecond
	if bucketSize < 64*1024 {
		bucketSize = 64 * 1024
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		bucketSize:     bucketSize,
		tokens:         bucketSize,
		lastRefill:     time.Now(),
	}
}

// take blocks until n tokens are available, then consumes them
func (l *Limiter) take(n int64) {
	if n > l.bucketSize {
		n = l.bucketSize
	}

	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= n {
			l.tokens -= n
			l.mu.Unlock()
			return
		}
		deficit := n - l.tokens
		l.mu.Unlock()

		wait := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		time.Sleep(wait)
	}
}

// refill credits tokens for elapsed time; caller holds the lock
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)
	credit := int64(float64(elapsed) / float64(time.Second) * float64(l.bytesPerSecond))
	if credit > 0 {
		l.tokens += credit
		if l.tokens > l.bucketSize {
			l.tokens = l.bucketSize
		}
		l.lastRefill = now
	}
}

// reader wraps an io.Reader with a shared limiter
type reader struct {
	inner   io.Reader
	limiter *Limiter
	ctx     context.Context
}

// NewReader wraps r with rate limiting. A nil limiter returns r unchanged.
func NewReader(ctx context.Context, r io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &reader{inner: r, limiter: limiter, ctx: ctx}
}

func (r *reader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}

	want := int64(len(p))
	if want > r.limiter.bucketSize {
		want = r.limiter.bucketSize
	}
	r.limiter.take(want)

	return r.inner.Read(p[:want])
}
