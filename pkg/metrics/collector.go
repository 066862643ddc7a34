package metrics

import (
	"context"
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/storage"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// Collector periodically samples pool state from the store into gauges.
type Collector struct {
	store        storage.Store
	heartbeatTTL time.Duration
	stopCh       chan struct{}
}

// NewCollector creates a collector. heartbeatTTL decides which workers
// count as online, matching the scheduler's view.
func NewCollector(store storage.Store, heartbeatTTL time.Duration) *Collector {
	return &Collector{
		store:        store,
		heartbeatTTL: heartbeatTTL,
		stopCh:       make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectTaskMetrics()
	c.collectWorkerMetrics()
	c.collectRepoMetrics()
}

func (c *Collector) collectTaskMetrics() {
	counts, err := c.store.CountsByStatus()
	if err != nil {
		return
	}
	for status, count := range counts {
		TasksTotal.WithLabelValues(string(status)).Set(float64(count))
	}
}

func (c *Collector) collectWorkerMetrics() {
	workers, err := c.store.ListWorkers()
	if err != nil {
		return
	}

	statusCounts := map[types.WorkerStatus]int{
		types.WorkerIdle:    0,
		types.WorkerWorking: 0,
		types.WorkerPaused:  0,
	}
	online := 0
	now := clock.Now(context.Background())
	for _, w := range workers {
		statusCounts[w.Status]++
		if w.Online(now, c.heartbeatTTL) {
			online++
		}
	}

	for status, count := range statusCounts {
		WorkersTotal.WithLabelValues(string(status)).Set(float64(count))
	}
	WorkersOnline.Set(float64(online))
}

func (c *Collector) collectRepoMetrics() {
	repos, err := c.store.ListRepos()
	if err != nil {
		return
	}
	ReposTotal.Set(float64(len(repos)))
}
