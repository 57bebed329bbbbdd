// Command valtron is a demo harness for the task engine. It submits a
// small set of representative workloads, prints what became of them and
// wires journals, Prometheus metrics and periodic cron entries from a
// YAML config the same way a library consumer would.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Overridden at build time via -ldflags "-X main.version=...".
var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "valtron",
	Short: "Cooperative task engine demo harness",
	Long: `valtron runs demo workloads against the task engine: a staged pipeline
built on a state machine, a parent task that spawns and joins children,
and a flaky task wrapped in retries with backoff. The outcome of each is
printed as a colored summary table.

A YAML config selects the engine shape, a journal backend, a Prometheus
endpoint and periodic cron entries; running the binary against a config
smoke-tests all of it end to end.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("valtron %s (commit %s, built %s)\n", version, gitCommit, buildTime)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
