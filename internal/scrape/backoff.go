package scrape

import (
	"context"
	"time"
)

// sleepFunc is the sleep used between retries (injectable for tests).
var sleepFunc = sleepCtx

// backoffDelay returns the wait before retrying attempt k (0-indexed):
// base doubled per attempt. Rate-limit waits do not go through here; they
// use the server-advertised delay and never consume an attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	return base << uint(attempt)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
