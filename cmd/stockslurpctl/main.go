package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	apiURL        string
	apiToken      string
	keyFile       string
	etcdEndpoints []string
	outputJSON    bool
	timeout       time.Duration
)

const noAPICreds = "no-api-creds"

func main() {
	root := &cobra.Command{
		Use:   "stockslurpctl",
		Short: "stockslurp control/admin CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[noAPICreds] == "1" {
				return nil
			}
			if apiURL == "" || apiToken == "" {
				return fmt.Errorf("--api-url and --api-token are required")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&apiURL, "api-url", os.Getenv("STOCKSLURP_API_URL"), "API URL (or $STOCKSLURP_API_URL)")
	root.PersistentFlags().StringVar(&apiToken, "api-token", os.Getenv("STOCKSLURP_API_TOKEN"), "API token (or $STOCKSLURP_API_TOKEN)")
	root.PersistentFlags().StringVar(&keyFile, "cluster-key-file", os.Getenv("STOCKSLURP_CLUSTER_KEY_FILE"), "Cluster key file path (or $STOCKSLURP_CLUSTER_KEY_FILE)")
	root.PersistentFlags().StringSliceVar(&etcdEndpoints, "etcd-endpoints", nil, "etcd endpoints for direct admin commands")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "API request timeout")
	root.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	// Jobs
	jobs := &cobra.Command{Use: "job", Short: "Manage jobs"}
	jobs.AddCommand(
		jobSubmitCmd(),
		jobTemplateCmd(),
		jobListCmd(),
		jobStatusCmd(),
		jobCancelCmd(),
		jobTickersCmd(),
	)
	root.AddCommand(jobs)

	// Cluster status
	root.AddCommand(clusterStatusCmd())

	// Workers
	workers := &cobra.Command{Use: "worker", Short: "Worker nodes"}
	workers.AddCommand(
		workerListCmd(),
		workerMetricsCmd(),
	)
	root.AddCommand(workers)

	// Secrets administration talks to etcd directly rather than the API.
	secretsCmd := &cobra.Command{Use: "secrets", Short: "Secret store"}
	for _, c := range []*cobra.Command{
		secretsGenClusterKeyCmd(),
		secretsPendingCmd(),
		secretsApprovalCmd(),
		secretsListCmd(),
		secretsAddCmd(),
		secretsRemoveCmd(),
		secretsGetCmd(),
	} {
		if c.Annotations == nil {
			c.Annotations = map[string]string{}
		}
		c.Annotations[noAPICreds] = "1"
		secretsCmd.AddCommand(c)
	}
	root.AddCommand(secretsCmd)

	// Completion
	completion := &cobra.Command{
		Use:   "completion",
		Short: "Generate shell completion scripts",
		Run: func(cmd *cobra.Command, args []string) {
			root.GenBashCompletion(os.Stdout)
		},
	}
	completion.Annotations = map[string]string{noAPICreds: "1"}
	root.AddCommand(completion)

	_ = root.Execute()
}
