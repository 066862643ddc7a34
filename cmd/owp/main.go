package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbruyndoncx/open-work-protocol/pkg/client"
	"github.com/cbruyndoncx/open-work-protocol/pkg/envfile"
	"github.com/cbruyndoncx/open-work-protocol/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "owp",
	Short: "OWP pool - centralized work dispatch for repo fleets",
	Long: `owp drives an Open Work Protocol pool: a small service that hands
out leased tasks to registered workers under per-repo throttles and
area locks.

One binary covers all three roles: "owp server" runs the pool,
"owp worker" registers and drives workers, and "owp admin" seeds
repos and tasks.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})

		if path := envfile.Load(""); path != "" {
			log.WithComponent("cli").Debug().Str("path", path).Msg("Loaded environment file")
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"owp version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON instead of console text")
}

// resolveServer picks the pool server URL: the --server flag when
// given, otherwise the one saved at registration.
func resolveServer(cmd *cobra.Command) (string, error) {
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		return strings.TrimRight(server, "/"), nil
	}
	creds, err := client.LoadCredentials()
	if err != nil {
		return "", err
	}
	if creds.Server != "" {
		return strings.TrimRight(creds.Server, "/"), nil
	}
	return "", fmt.Errorf("missing --server and no saved credentials found")
}

// resolveToken picks the worker token: the --token flag when given,
// otherwise the one saved at registration.
func resolveToken(cmd *cobra.Command) (string, error) {
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		return token, nil
	}
	creds, err := client.LoadCredentials()
	if err != nil {
		return "", err
	}
	if creds.Token != "" {
		return creds.Token, nil
	}
	return "", fmt.Errorf("missing --token and no saved worker token found; run `owp worker register` first")
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
