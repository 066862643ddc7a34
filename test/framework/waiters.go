package framework

import (
	"context"
	"fmt"
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/client"
)

// Waiter polls conditions with a timeout. End-to-end tests observe the
// pool only through the API, so state changes made by the background
// loop show up after a short delay.
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter creates a waiter with the given timeout and polling interval.
func NewWaiter(timeout, interval time.Duration) *Waiter {
	return &Waiter{timeout: timeout, interval: interval}
}

// DefaultWaiter returns a waiter tuned to the harness's default cycle
// interval: 5s timeout, 20ms polls.
func DefaultWaiter() *Waiter {
	return NewWaiter(5*time.Second, 20*time.Millisecond)
}

// WaitFor waits for a condition to become true.
func (w *Waiter) WaitFor(ctx context.Context, condition func() bool, description string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if condition() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for: %s (timeout: %v)", description, w.timeout)
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// WaitForLeases waits for a worker's poll to return exactly n leases.
func (w *Waiter) WaitForLeases(ctx context.Context, worker *client.Client, n int) error {
	return w.WaitFor(ctx, func() bool {
		work, err := worker.PullWork()
		return err == nil && len(work.Leases) == n
	}, fmt.Sprintf("worker to hold %d leases", n))
}

// WaitForState waits for the admin summary to satisfy check.
func (w *Waiter) WaitForState(ctx context.Context, admin *client.Client, description string, check func(*client.State) bool) error {
	return w.WaitFor(ctx, func() bool {
		state, err := admin.State()
		return err == nil && check(state)
	}, description)
}

// WaitForWorkersOnline waits for the admin summary to report n online
// workers.
func (w *Waiter) WaitForWorkersOnline(ctx context.Context, admin *client.Client, n int) error {
	return w.WaitForState(ctx, admin, fmt.Sprintf("%d workers online", n), func(s *client.State) bool {
		return s.WorkersOnline == n
	})
}
