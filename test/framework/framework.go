// Package framework runs a fully wired pool inside the test process:
// the SQLite store, scheduler driver, event broker, health checker and
// HTTP API assembled the same way the server command assembles them,
// fronted by an ephemeral listener and driven through the public
// client. End-to-end tests in test/e2e build on it.
package framework

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/api"
	"github.com/cbruyndoncx/open-work-protocol/pkg/client"
	"github.com/cbruyndoncx/open-work-protocol/pkg/events"
	"github.com/cbruyndoncx/open-work-protocol/pkg/metrics"
	"github.com/cbruyndoncx/open-work-protocol/pkg/pool"
	"github.com/cbruyndoncx/open-work-protocol/pkg/scheduler"
	"github.com/cbruyndoncx/open-work-protocol/pkg/storage"
)

// Config tunes the pool under test. Zero values take the defaults
// below; tests that exercise lease expiry or the background loop shrink
// the intervals so wall-clock waits stay short.
type Config struct {
	LeaseTTL      time.Duration
	HeartbeatTTL  time.Duration
	CycleInterval time.Duration
	AdminToken    string
}

func (c *Config) applyDefaults() {
	if c.LeaseTTL == 0 {
		c.LeaseTTL = 30 * time.Minute
	}
	if c.HeartbeatTTL == 0 {
		c.HeartbeatTTL = 90 * time.Second
	}
	if c.CycleInterval == 0 {
		c.CycleInterval = 25 * time.Millisecond
	}
	if c.AdminToken == "" {
		c.AdminToken = "e2e-admin"
	}
}

// Pool is a running pool under test.
type Pool struct {
	// URL is the base address of the HTTP API.
	URL string

	// Admin is a client authenticated with the pool's admin token.
	Admin *client.Client

	srv    *httptest.Server
	driver *scheduler.Driver
	broker *events.Broker
	store  *storage.SQLiteStore
}

// Start brings up a pool on an ephemeral port. Shutdown is registered
// with the test's cleanup, mirroring the server command's stop order.
func Start(t *testing.T, cfg Config) *Pool {
	t.Helper()
	cfg.applyDefaults()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "pool.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	broker := events.NewBroker()
	broker.Start()

	svc := pool.NewService(store, broker, pool.Config{
		LeaseTTL:      cfg.LeaseTTL,
		HeartbeatTTL:  cfg.HeartbeatTTL,
		CycleInterval: cfg.CycleInterval,
	})

	driver := scheduler.NewDriver(svc, cfg.CycleInterval)
	driver.Start()

	checker := metrics.NewChecker("test", "store", "scheduler")
	checker.SetComponent("store", true, "sqlite open")
	checker.SetComponent("scheduler", true, "driver running")

	srv := httptest.NewServer(api.NewServer(svc, checker, api.Config{AdminToken: cfg.AdminToken}).Handler())

	p := &Pool{
		URL:    srv.URL,
		Admin:  client.NewAdminClient(srv.URL, cfg.AdminToken),
		srv:    srv,
		driver: driver,
		broker: broker,
		store:  store,
	}
	t.Cleanup(p.stop)
	return p
}

func (p *Pool) stop() {
	p.srv.Close()
	p.driver.Stop()
	p.broker.Stop()
	_ = p.store.Close()
}

// Worker is a registered worker plus its authenticated client.
type Worker struct {
	ID     string
	Name   string
	Client *client.Client
}

// NewWorker registers a worker with the given registration request and
// sends an initial idle heartbeat so the matcher sees it online.
func (p *Pool) NewWorker(t *testing.T, req client.RegisterRequest) *Worker {
	t.Helper()

	creds, err := client.NewClient(p.URL).Register(req)
	if err != nil {
		t.Fatalf("register worker %s: %v", req.Name, err)
	}
	wc := client.NewWorkerClient(p.URL, creds.Token)
	if _, err := wc.Heartbeat("idle", ""); err != nil {
		t.Fatalf("heartbeat worker %s: %v", req.Name, err)
	}
	return &Worker{ID: creds.WorkerID, Name: req.Name, Client: wc}
}
