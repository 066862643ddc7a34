package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbruyndoncx/open-work-protocol/pkg/api"
	"github.com/cbruyndoncx/open-work-protocol/pkg/events"
	"github.com/cbruyndoncx/open-work-protocol/pkg/metrics"
	"github.com/cbruyndoncx/open-work-protocol/pkg/pool"
	"github.com/cbruyndoncx/open-work-protocol/pkg/scheduler"
	"github.com/cbruyndoncx/open-work-protocol/pkg/storage"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the pool service",
	Long: `Run the pool service: SQLite-backed state, the HTTP API and the
background scheduling loop in one process.

The HTML dashboard is served at / and Prometheus metrics at /metrics.
Admin endpoints compare X-Admin-Token against OWP_ADMIN_TOKEN.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().String("db", "", "SQLite DB path (required)")
	serverCmd.Flags().String("host", "127.0.0.1", "Bind address")
	serverCmd.Flags().Int("port", 8787, "Bind port")
	serverCmd.Flags().Int("lease-ttl", 1800, "Lease TTL in seconds")
	serverCmd.Flags().Int("heartbeat-ttl", 90, "Worker online TTL in seconds")
	serverCmd.Flags().Int("cycle", 5, "Scheduling cycle interval in seconds")
	_ = serverCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	leaseTTL, _ := cmd.Flags().GetInt("lease-ttl")
	heartbeatTTL, _ := cmd.Flags().GetInt("heartbeat-ttl")
	cycle, _ := cmd.Flags().GetInt("cycle")

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	fmt.Println("Starting OWP pool...")
	fmt.Printf("  DB: %s\n", dbPath)
	fmt.Printf("  API: http://%s\n", addr)
	fmt.Printf("  Lease TTL: %ds  Heartbeat TTL: %ds  Cycle: %ds\n", leaseTTL, heartbeatTTL, cycle)
	fmt.Println()

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %v", err)
	}
	defer store.Close()

	cfg := pool.Config{
		LeaseTTL:      time.Duration(leaseTTL) * time.Second,
		HeartbeatTTL:  time.Duration(heartbeatTTL) * time.Second,
		CycleInterval: time.Duration(cycle) * time.Second,
	}

	broker := events.NewBroker()
	broker.Start()

	svc := pool.NewService(store, broker, cfg)

	driver := scheduler.NewDriver(svc, cfg.CycleInterval)
	driver.Start()
	fmt.Println("✓ Scheduler started")

	collector := metrics.NewCollector(store, cfg.HeartbeatTTL)
	collector.Start()
	fmt.Println("✓ Metrics collector started")

	checker := metrics.NewChecker(Version, "store", "scheduler")
	checker.SetComponent("store", true, "sqlite open")
	checker.SetComponent("scheduler", true, "driver running")

	apiServer := api.NewServer(svc, checker, api.Config{Addr: addr})
	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil {
			errCh <- fmt.Errorf("API server error: %v", err)
		}
	}()
	fmt.Printf("✓ API listening on http://%s\n", addr)

	fmt.Println()
	fmt.Println("Pool is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "API shutdown: %v\n", err)
	}
	driver.Stop()
	collector.Stop()
	broker.Stop()

	fmt.Println("✓ Shutdown complete")
	return nil
}
