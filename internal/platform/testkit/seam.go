package testkit

import (
	"context"
	"sync"
	"testing"
	"time"
)

var seamMu sync.Mutex

// Swap swaps a package-level function variable for the duration of the test and restores it after
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Serial makes the entire test run under a global lock, preventing interference
// when tests mutate package-level seams
func Serial(t *testing.T) {
	t.Helper()
	seamMu.Lock()
	t.Cleanup(func() { seamMu.Unlock() })
}

// Sleeper records requested sleeps instead of blocking
// It matches the func(ctx, d) error shape used by retrying clients
type Sleeper struct {
	mu    sync.Mutex
	Calls []time.Duration
}

// Sleep records d and returns ctx.Err() so cancellation still propagates
func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.Calls = append(s.Calls, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Count returns the number of recorded sleeps
func (s *Sleeper) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
