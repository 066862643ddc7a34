package scheduler

import (
	"context"
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/log"
)

// Runner is the cycle entry point the driver ticks. The pool service
// implements it with its own locking around the matcher.
type Runner interface {
	RunCycle(ctx context.Context) (Stats, error)
}

// Driver runs scheduling cycles on a fixed interval until stopped. A
// failed cycle is logged and the loop keeps going.
type Driver struct {
	runner   Runner
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewDriver creates a driver ticking at the given interval.
func NewDriver(runner Runner, interval time.Duration) *Driver {
	return &Driver{
		runner:   runner,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the cycle loop.
func (d *Driver) Start() {
	go d.run()
}

// Stop stops the loop and waits for the in-flight cycle to finish.
func (d *Driver) Stop() {
	close(d.stopCh)
	<-d.doneCh
}

func (d *Driver) run() {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	logger := log.WithComponent("driver")
	for {
		select {
		case <-ticker.C:
			stats, err := d.runner.RunCycle(context.Background())
			if err != nil {
				logger.Error().Err(err).Msg("Scheduling cycle failed")
				continue
			}
			if stats.Assigned > 0 || stats.Requeued > 0 {
				logger.Debug().
					Int("assigned", stats.Assigned).
					Int("requeued", stats.Requeued).
					Msg("Cycle completed")
			}
		case <-d.stopCh:
			return
		}
	}
}
