package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "healthmon",
	Short: "Subsystem health monitoring and recovery engine",
	Long: `healthmon monitors a set of registered subsystems, scores their health on
every tick, raises deduplicated alerts on sustained failures, and drives
bounded automatic recovery.

Targets are described in a YAML manifest (HTTP and TCP probe targets are
built in); library consumers register arbitrary handles with custom probes
and recovery actions through the monitor package.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the healthmon version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("healthmon %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().String("config", "", "Path to healthmon config YAML (defaults apply if missing)")
	rootCmd.PersistentFlags().String("targets", "healthmon.targets.yaml", "Path to probe target manifest")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
