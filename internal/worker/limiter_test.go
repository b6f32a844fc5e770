package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowsWithinBurst(t *testing.T) {
	l := NewLimiter(100, 5)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx, "https://api.example.com/messages"); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}
}

func TestLimiter_PacesBeyondBurst(t *testing.T) {
	l := NewLimiter(50, 1)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx, "https://api.example.com/messages"); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	// 50 rps with burst 1 means two 20ms waits after the first token.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected pacing beyond the burst, elapsed %v", elapsed)
	}
}

func TestLimiter_HostsAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// One token per host: both succeed immediately only if the buckets are
	// separate.
	if err := l.Wait(ctx, "https://one.example.com/a"); err != nil {
		t.Fatalf("first host wait failed: %v", err)
	}
	if err := l.Wait(ctx, "https://two.example.com/b"); err != nil {
		t.Fatalf("second host wait failed: %v", err)
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	l := NewLimiter(1, 1)
	l.SetHostRate("slow.example.com", 1000, 100)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 10; i++ {
		if err := l.Wait(ctx, "https://slow.example.com/x"); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}
}

func TestLimiter_BadURL(t *testing.T) {
	l := NewLimiter(1, 1)
	if err := l.Wait(context.Background(), "://not a url"); err == nil {
		t.Error("expected error for unparsable url")
	}
}
