package ratelimit

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

// TestNewLimiter tests the Limiter constructor
func TestNewLimiter(t *testing.T) {
	t.Run("ValidRate", func(t *testing.T) {
		limiter := NewLimiter(1024 * 1024)
		if limiter == nil {
			t.Fatal("NewLimiter() returned nil for valid input")
		}
		if limiter.bytesPerSecond != 1024*1024 {
			t.Errorf("bytesPerSecond = %d, want %d", limiter.bytesPerSecond, 1024*1024)
		}
		if limiter.tokens != limiter.bucketSize {
			t.Errorf("bucket should start full: tokens = %d, size = %d", limiter.tokens, limiter.bucketSize)
		}
	})

	t.Run("ZeroMeansUnlimited", func(t *testing.T) {
		if NewLimiter(0) != nil {
			t.Error("NewLimiter(0) should return nil")
		}
		if NewLimiter(-100) != nil {
			t.Error("NewLimiter(-100) should return nil")
		}
	})

	t.Run("MinimumBucket", func(t *testing.T) {
		limiter := NewLimiter(1000)
		if limiter.bucketSize < 64*1024 {
			t.Errorf("bucketSize = %d, want at least %d", limiter.bucketSize, 64*1024)
		}
	})
}

// TestNewReader tests reader wrapping
func TestNewReader(t *testing.T) {
	t.Run("NilLimiterPassthrough", func(t *testing.T) {
		base := strings.NewReader("content")
		r := NewReader(context.Background(), base, nil)
		if r != io.Reader(base) {
			t.Error("NewReader() with nil limiter should return the original reader")
		}
	})

	t.Run("ReadsAllContent", func(t *testing.T) {
		content := []byte("0123456789abcdef")
		r := NewReader(context.Background(), bytes.NewReader(content), NewLimiter(1024*1024))

		var result []byte
		buf := make([]byte, 4)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				result = append(result, buf[:n]...)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
		}
		if !bytes.Equal(result, content) {
			t.Errorf("accumulated = %q, want %q", result, content)
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := NewReader(ctx, bytes.NewReader(make([]byte, 1024)), NewLimiter(1024*1024))
		if _, err := r.Read(make([]byte, 100)); err == nil {
			t.Error("Read() should fail on a cancelled context")
		}
	})
}

// TestRefill tests token crediting over time
func TestRefill(t *testing.T) {
	t.Run("CreditsElapsedTime", func(t *testing.T) {
		limiter := NewLimiter(1000)
		limiter.tokens = 0
		limiter.lastRefill = time.Now().Add(-100 * time.Millisecond)

		limiter.mu.Lock()
		limiter.refill()
		limiter.mu.Unlock()

		if limiter.tokens < 50 || limiter.tokens > 150 {
			t.Errorf("tokens = %d, expected ~100", limiter.tokens)
		}
	})

	t.Run("CappedAtBucketSize", func(t *testing.T) {
		limiter := NewLimiter(1000)
		limiter.tokens = limiter.bucketSize - 10
		limiter.lastRefill = time.Now().Add(-time.Second)

		limiter.mu.Lock()
		limiter.refill()
		limiter.mu.Unlock()

		if limiter.tokens != limiter.bucketSize {
			t.Errorf("tokens = %d, want %d", limiter.tokens, limiter.bucketSize)
		}
	})
}

// TestTake tests token consumption
func TestTake(t *testing.T) {
	limiter := NewLimiter(1024 * 1024)
	before := limiter.tokens
	limiter.take(1000)
	if limiter.tokens != before-1000 {
		t.Errorf("tokens = %d, want %d", limiter.tokens, before-1000)
	}
}
