package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbruyndoncx/open-work-protocol/pkg/client"
	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Register and drive workers",
}

var workerRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new worker and save its credentials",
	RunE:  runWorkerRegister,
}

var workerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the worker loop: heartbeat and poll for leases",
	RunE:  runWorkerRun,
}

var workerSimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Demo worker that auto-reports progress on its leases",
	Long: `Simulates a worker by walking every lease through in_progress,
pr_opened and optionally merged, without doing any real work. Useful
for demos and for exercising repo throttles end to end.`,
	RunE: runWorkerSimulate,
}

var workerStatusCmd = &cobra.Command{
	Use:   "status TASK_ID",
	Short: "Report progress on a held task",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkerStatus,
}

func init() {
	workerRegisterCmd.Flags().String("name", "", "Worker name (required)")
	workerRegisterCmd.Flags().String("skills", "", "Comma-separated skill tags")
	workerRegisterCmd.Flags().Int("capacity", 5, "Capacity points")
	workerRegisterCmd.Flags().Int("max-concurrent", 2, "Max concurrent tasks")
	workerRegisterCmd.Flags().String("github-handle", "", "GitHub handle")
	workerRegisterCmd.Flags().String("server", "", "Pool server URL")
	workerRegisterCmd.Flags().Bool("save", true, "Save credentials to local config")
	_ = workerRegisterCmd.MarkFlagRequired("name")

	workerRunCmd.Flags().String("server", "", "Pool server URL (optional if saved)")
	workerRunCmd.Flags().String("token", "", "Bearer token (optional if saved)")
	workerRunCmd.Flags().Int("heartbeat-every", 10, "Heartbeat interval in seconds")
	workerRunCmd.Flags().Int("poll-every", 10, "Work poll interval in seconds")

	workerSimulateCmd.Flags().String("server", "", "Pool server URL (optional if saved)")
	workerSimulateCmd.Flags().String("token", "", "Bearer token (optional if saved)")
	workerSimulateCmd.Flags().Bool("register", false, "Register a new worker first")
	workerSimulateCmd.Flags().String("name", "SimWorker", "Worker name when registering")
	workerSimulateCmd.Flags().String("skills", "", "Comma-separated skill tags when registering")
	workerSimulateCmd.Flags().Int("capacity", 5, "Capacity points when registering")
	workerSimulateCmd.Flags().Int("max-concurrent", 2, "Max concurrent tasks when registering")
	workerSimulateCmd.Flags().Int("heartbeat-every", 5, "Heartbeat interval in seconds")
	workerSimulateCmd.Flags().Int("poll-every", 3, "Work poll interval in seconds")
	workerSimulateCmd.Flags().Int("open-delay", 2, "Seconds before marking pr_opened")
	workerSimulateCmd.Flags().Bool("merge", false, "Also mark tasks merged")
	workerSimulateCmd.Flags().Int("merge-delay", 2, "Seconds before marking merged")
	workerSimulateCmd.Flags().String("pr-base-url", "https://example.com/pr", "Base URL for simulated PR links")
	workerSimulateCmd.Flags().Bool("once", false, "Process current leases once, then exit")

	workerStatusCmd.Flags().String("status", "", "New status: in_progress|blocked|pr_opened|merged (required)")
	workerStatusCmd.Flags().String("message", "", "Progress note")
	workerStatusCmd.Flags().String("pr", "", "Pull request URL artifact")
	workerStatusCmd.Flags().String("server", "", "Pool server URL (optional if saved)")
	workerStatusCmd.Flags().String("token", "", "Bearer token (optional if saved)")
	_ = workerStatusCmd.MarkFlagRequired("status")

	workerCmd.AddCommand(workerRegisterCmd)
	workerCmd.AddCommand(workerRunCmd)
	workerCmd.AddCommand(workerSimulateCmd)
	workerCmd.AddCommand(workerStatusCmd)
	rootCmd.AddCommand(workerCmd)
}

func runWorkerRegister(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	skills, _ := cmd.Flags().GetString("skills")
	capacity, _ := cmd.Flags().GetInt("capacity")
	maxConcurrent, _ := cmd.Flags().GetInt("max-concurrent")
	githubHandle, _ := cmd.Flags().GetString("github-handle")
	save, _ := cmd.Flags().GetBool("save")

	server, err := resolveServer(cmd)
	if err != nil {
		return err
	}

	creds, err := client.NewClient(server).Register(client.RegisterRequest{
		Name:               name,
		GithubHandle:       githubHandle,
		Skills:             splitCSV(skills),
		CapacityPoints:     capacity,
		MaxConcurrentTasks: maxConcurrent,
	})
	if err != nil {
		return fmt.Errorf("failed to register: %v", err)
	}

	fmt.Printf("✓ Registered worker %s\n", creds.WorkerID)
	fmt.Printf("  Token: %s\n", creds.Token)
	if save {
		path, err := client.SaveCredentials(creds)
		if err != nil {
			return fmt.Errorf("failed to save credentials: %v", err)
		}
		fmt.Printf("  Credentials saved to %s\n", path)
	}
	return nil
}

func runWorkerRun(cmd *cobra.Command, args []string) error {
	heartbeatEvery, _ := cmd.Flags().GetInt("heartbeat-every")
	pollEvery, _ := cmd.Flags().GetInt("poll-every")

	server, err := resolveServer(cmd)
	if err != nil {
		return err
	}
	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}
	c := client.NewWorkerClient(server, token)

	fmt.Printf("Worker loop started. Server=%s\n", server)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var lastBeat, lastPoll time.Time
	tick := func(now time.Time) error {
		if now.Sub(lastBeat) >= time.Duration(heartbeatEvery)*time.Second {
			if _, err := c.Heartbeat("working", ""); err != nil {
				return fmt.Errorf("heartbeat failed: %v", err)
			}
			lastBeat = now
		}
		if now.Sub(lastPoll) >= time.Duration(pollEvery)*time.Second {
			work, err := c.PullWork()
			if err != nil {
				return fmt.Errorf("work poll failed: %v", err)
			}
			printLeases(work.Leases)
			lastPoll = now
		}
		return nil
	}

	if err := tick(time.Now()); err != nil {
		return err
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			fmt.Println("\nWorker loop stopped.")
			return nil
		case <-ticker.C:
			if err := tick(time.Now()); err != nil {
				return err
			}
		}
	}
}

func printLeases(leases []client.Lease) {
	if len(leases) == 0 {
		fmt.Println("No leases held.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tREPO\tPOINTS\tPRIORITY\tAREA\tSKILLS\tEXPIRES\tTITLE")
	for _, l := range leases {
		title := l.Title
		if len(title) > 60 {
			title = title[:60]
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			l.TaskID, l.Repo, l.EstimatePoints, l.Priority, l.Area,
			strings.Join(l.RequiredSkills, ","), clock.FormatISO(l.LeaseExpiresAt), title)
	}
	_ = w.Flush()
}

func runWorkerSimulate(cmd *cobra.Command, args []string) error {
	register, _ := cmd.Flags().GetBool("register")
	name, _ := cmd.Flags().GetString("name")
	skills, _ := cmd.Flags().GetString("skills")
	capacity, _ := cmd.Flags().GetInt("capacity")
	maxConcurrent, _ := cmd.Flags().GetInt("max-concurrent")
	heartbeatEvery, _ := cmd.Flags().GetInt("heartbeat-every")
	pollEvery, _ := cmd.Flags().GetInt("poll-every")
	openDelay, _ := cmd.Flags().GetInt("open-delay")
	merge, _ := cmd.Flags().GetBool("merge")
	mergeDelay, _ := cmd.Flags().GetInt("merge-delay")
	prBaseURL, _ := cmd.Flags().GetString("pr-base-url")
	once, _ := cmd.Flags().GetBool("once")

	server, err := resolveServer(cmd)
	if err != nil {
		return err
	}

	if register {
		creds, err := client.NewClient(server).Register(client.RegisterRequest{
			Name:               name,
			Skills:             splitCSV(skills),
			CapacityPoints:     capacity,
			MaxConcurrentTasks: maxConcurrent,
		})
		if err != nil {
			return fmt.Errorf("failed to register: %v", err)
		}
		path, err := client.SaveCredentials(creds)
		if err != nil {
			return fmt.Errorf("failed to save credentials: %v", err)
		}
		fmt.Printf("✓ Registered worker %s (credentials saved to %s)\n", creds.WorkerID, path)
	}

	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}
	c := client.NewWorkerClient(server, token)

	fmt.Printf("Sim worker loop started. Server=%s once=%v\n", server, once)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	processed := make(map[string]bool)
	var lastBeat, lastPoll time.Time
	for {
		select {
		case <-sigCh:
			fmt.Println("\nSim worker stopped.")
			return nil
		case <-ticker.C:
		}

		now := time.Now()
		if now.Sub(lastBeat) >= time.Duration(heartbeatEvery)*time.Second {
			if _, err := c.Heartbeat("working", ""); err != nil {
				return fmt.Errorf("heartbeat failed: %v", err)
			}
			lastBeat = now
		}
		if now.Sub(lastPoll) < time.Duration(pollEvery)*time.Second {
			continue
		}

		work, err := c.PullWork()
		if err != nil {
			return fmt.Errorf("work poll failed: %v", err)
		}
		for _, lease := range work.Leases {
			if processed[lease.TaskID] {
				continue
			}
			if err := simulateLease(c, lease, openDelay, merge, mergeDelay, prBaseURL); err != nil {
				return err
			}
			processed[lease.TaskID] = true
		}
		lastPoll = now

		if once {
			done := true
			for _, lease := range work.Leases {
				if !processed[lease.TaskID] {
					done = false
					break
				}
			}
			if len(work.Leases) == 0 || done {
				break
			}
		}
	}

	fmt.Println("✓ Sim worker done")
	return nil
}

// simulateLease walks one lease through the normal reporting sequence,
// pausing between steps the way a real worker would.
func simulateLease(c *client.Client, lease client.Lease, openDelay int, merge bool, mergeDelay int, prBaseURL string) error {
	fmt.Printf("Processing %s: %s\n", lease.TaskID, lease.Title)
	if err := c.UpdateTaskStatus(lease.TaskID, "in_progress", "simulated work started", nil); err != nil {
		return fmt.Errorf("failed to mark in_progress: %v", err)
	}

	if openDelay > 0 {
		time.Sleep(time.Duration(openDelay) * time.Second)
	}
	artifact := &types.TaskArtifact{PRURL: strings.TrimRight(prBaseURL, "/") + "/" + lease.TaskID}
	if err := c.UpdateTaskStatus(lease.TaskID, "pr_opened", "simulated PR opened", artifact); err != nil {
		return fmt.Errorf("failed to mark pr_opened: %v", err)
	}

	if merge {
		if mergeDelay > 0 {
			time.Sleep(time.Duration(mergeDelay) * time.Second)
		}
		if err := c.UpdateTaskStatus(lease.TaskID, "merged", "simulated merge", artifact); err != nil {
			return fmt.Errorf("failed to mark merged: %v", err)
		}
	}
	return nil
}

func runWorkerStatus(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	message, _ := cmd.Flags().GetString("message")
	prURL, _ := cmd.Flags().GetString("pr")

	server, err := resolveServer(cmd)
	if err != nil {
		return err
	}
	token, err := resolveToken(cmd)
	if err != nil {
		return err
	}

	var artifact *types.TaskArtifact
	if prURL != "" {
		artifact = &types.TaskArtifact{PRURL: prURL}
	}
	if err := client.NewWorkerClient(server, token).UpdateTaskStatus(args[0], status, message, artifact); err != nil {
		return fmt.Errorf("failed to update status: %v", err)
	}
	fmt.Println("✓ Updated")
	return nil
}
