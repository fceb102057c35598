package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthmon/healthmon/internal/monitor"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one evaluation pass and print the report",
	Long: `Run a single manual health check over all manifest targets and print the
resulting report.

Exit codes:
  0 - overall status healthy or warning
  1 - overall status degraded or failing
  2 - overall status critical or error`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := setupMonitor(cmd)
		if err != nil {
			return err
		}
		defer m.StopMonitoring()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		report, err := m.CheckHealth(ctx)
		if err != nil {
			return err
		}
		renderReport(report)

		switch report.OverallStatus {
		case monitor.StatusHealthy, monitor.StatusWarning:
			return nil
		case monitor.StatusDegraded, monitor.StatusFailing:
			os.Exit(1)
		default:
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
