package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cbruyndoncx/open-work-protocol/pkg/api"
	"github.com/cbruyndoncx/open-work-protocol/pkg/client"
	"github.com/cbruyndoncx/open-work-protocol/pkg/importer"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Seed repos and tasks, inspect pool state",
	Long: `Admin commands authenticate with the shared admin token taken from
OWP_ADMIN_TOKEN (default "dev-admin", for development only).`,
}

var adminInitRepoCmd = &cobra.Command{
	Use:   "init-repo REPO",
	Short: "Register a repo or reconfigure its throttle",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminInitRepo,
}

var adminAddTaskCmd = &cobra.Command{
	Use:   "add-task",
	Short: "Enqueue a single task",
	RunE:  runAdminAddTask,
}

var adminImportTasksCmd = &cobra.Command{
	Use:   "import-tasks FILE",
	Short: "Import a YAML task bundle into a repo",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminImportTasks,
}

var adminImportGithubCmd = &cobra.Command{
	Use:   "import-github-issues REPO",
	Short: "Import labeled GitHub issues as tasks",
	Long: `Imports open GitHub issues into the pool as tasks. Only issues
carrying the marker label are imported; the remaining labels may carry
sizing hints:

  estimate:3 or size:3
  priority:critical|high|medium|low or priority:80
  skills:go (may repeat)
  area:auth`,
	Args: cobra.ExactArgs(1),
	RunE: runAdminImportGithub,
}

var adminStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the pool's counts summary",
	RunE:  runAdminState,
}

func init() {
	adminInitRepoCmd.Flags().Int("max-open-prs", 2, "Open PR budget, 0 freezes assignment")
	adminInitRepoCmd.Flags().Bool("area-locks", true, "Serialize work per area")
	adminInitRepoCmd.Flags().String("server", "", "Pool server URL (optional if saved)")

	adminAddTaskCmd.Flags().String("repo", "", "Repo key (required)")
	adminAddTaskCmd.Flags().String("title", "", "Task title (required)")
	adminAddTaskCmd.Flags().Int("estimate", 1, "Estimate points")
	adminAddTaskCmd.Flags().Int("priority", 10, "Priority, higher runs first")
	adminAddTaskCmd.Flags().String("required-skills", "", "Comma-separated skill tags")
	adminAddTaskCmd.Flags().String("area", "", "Area tag for lock scoping")
	adminAddTaskCmd.Flags().Int("tier", 0, "Trust tier")
	adminAddTaskCmd.Flags().String("description", "", "Task description")
	adminAddTaskCmd.Flags().String("server", "", "Pool server URL (optional if saved)")
	_ = adminAddTaskCmd.MarkFlagRequired("repo")
	_ = adminAddTaskCmd.MarkFlagRequired("title")

	adminImportTasksCmd.Flags().String("repo", "", "Repo key to import into (required)")
	adminImportTasksCmd.Flags().String("server", "", "Pool server URL (optional if saved)")
	_ = adminImportTasksCmd.MarkFlagRequired("repo")

	adminImportGithubCmd.Flags().String("label", importer.DefaultIssueLabel, "Only import issues with this label")
	adminImportGithubCmd.Flags().String("github-token", "", "GitHub API token (defaults to $GITHUB_TOKEN)")
	adminImportGithubCmd.Flags().Int("limit", 50, "Maximum issues to import (1-200)")
	adminImportGithubCmd.Flags().String("server", "", "Pool server URL (optional if saved)")

	adminStateCmd.Flags().String("server", "", "Pool server URL (optional if saved)")

	adminCmd.AddCommand(adminInitRepoCmd)
	adminCmd.AddCommand(adminAddTaskCmd)
	adminCmd.AddCommand(adminImportTasksCmd)
	adminCmd.AddCommand(adminImportGithubCmd)
	adminCmd.AddCommand(adminStateCmd)
	rootCmd.AddCommand(adminCmd)
}

func adminClient(cmd *cobra.Command) (*client.Client, error) {
	server, err := resolveServer(cmd)
	if err != nil {
		return nil, err
	}
	return client.NewAdminClient(server, api.AdminTokenFromEnv()), nil
}

func runAdminInitRepo(cmd *cobra.Command, args []string) error {
	maxOpenPRs, _ := cmd.Flags().GetInt("max-open-prs")
	areaLocks, _ := cmd.Flags().GetBool("area-locks")

	c, err := adminClient(cmd)
	if err != nil {
		return err
	}
	if err := c.UpsertRepo(args[0], maxOpenPRs, areaLocks); err != nil {
		return fmt.Errorf("failed to upsert repo: %v", err)
	}
	fmt.Printf("✓ Repo upserted: %s\n", args[0])
	return nil
}

func runAdminAddTask(cmd *cobra.Command, args []string) error {
	repo, _ := cmd.Flags().GetString("repo")
	title, _ := cmd.Flags().GetString("title")
	estimate, _ := cmd.Flags().GetInt("estimate")
	priority, _ := cmd.Flags().GetInt("priority")
	requiredSkills, _ := cmd.Flags().GetString("required-skills")
	area, _ := cmd.Flags().GetString("area")
	tier, _ := cmd.Flags().GetInt("tier")
	description, _ := cmd.Flags().GetString("description")

	c, err := adminClient(cmd)
	if err != nil {
		return err
	}
	taskID, err := c.CreateTask(client.TaskSpec{
		Repo:           repo,
		Title:          title,
		Description:    description,
		EstimatePoints: estimate,
		Priority:       priority,
		RequiredSkills: splitCSV(requiredSkills),
		Area:           area,
		Tier:           tier,
	})
	if err != nil {
		return fmt.Errorf("failed to create task: %v", err)
	}
	fmt.Printf("✓ Task created: %s\n", taskID)
	return nil
}

func runAdminImportTasks(cmd *cobra.Command, args []string) error {
	repo, _ := cmd.Flags().GetString("repo")

	c, err := adminClient(cmd)
	if err != nil {
		return err
	}
	specs, err := importer.LoadTaskFile(args[0], repo)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if _, err := c.CreateTask(spec); err != nil {
			return fmt.Errorf("failed to create task %q: %v", spec.Title, err)
		}
	}
	fmt.Printf("✓ Imported %d tasks into repo %s\n", len(specs), repo)
	return nil
}

func runAdminImportGithub(cmd *cobra.Command, args []string) error {
	label, _ := cmd.Flags().GetString("label")
	ghToken, _ := cmd.Flags().GetString("github-token")
	limit, _ := cmd.Flags().GetInt("limit")

	if ghToken == "" {
		ghToken = os.Getenv("GITHUB_TOKEN")
	}
	if ghToken == "" {
		return fmt.Errorf("missing --github-token (or set GITHUB_TOKEN)")
	}

	c, err := adminClient(cmd)
	if err != nil {
		return err
	}
	specs, err := importer.NewIssueImporter(ghToken).Fetch(cmd.Context(), importer.IssueQuery{
		Repo:  args[0],
		Label: label,
		Limit: limit,
	})
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if _, err := c.CreateTask(spec); err != nil {
			return fmt.Errorf("failed to create task %q: %v", spec.Title, err)
		}
	}
	fmt.Printf("✓ Imported %d GitHub issues into repo %s\n", len(specs), args[0])
	return nil
}

func runAdminState(cmd *cobra.Command, args []string) error {
	c, err := adminClient(cmd)
	if err != nil {
		return err
	}
	state, err := c.State()
	if err != nil {
		return fmt.Errorf("failed to fetch state: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "workers_online\t%d\n", state.WorkersOnline)
	fmt.Fprintf(w, "tasks_ready\t%d\n", state.TasksReady)
	fmt.Fprintf(w, "tasks_leased\t%d\n", state.TasksLeased)
	fmt.Fprintf(w, "tasks_in_progress\t%d\n", state.TasksInProgress)
	fmt.Fprintf(w, "tasks_pr_opened\t%d\n", state.TasksPROpened)
	fmt.Fprintf(w, "tasks_blocked\t%d\n", state.TasksBlocked)
	fmt.Fprintf(w, "tasks_merged\t%d\n", state.TasksMerged)
	return w.Flush()
}
