package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthmon/healthmon/internal/logging"
	"github.com/healthmon/healthmon/internal/monitor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor the manifest targets until interrupted",
	Long: `Register every target from the manifest and run the periodic scheduler,
printing a health report after each reporting interval and alerts as they
are raised. Stops on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reportEvery, _ := cmd.Flags().GetDuration("report-every")

		m, manifest, err := setupMonitor(cmd)
		if err != nil {
			return err
		}
		defer m.StopMonitoring()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Monitoring %d target(s), check interval %v (Ctrl-C to stop)\n\n",
			len(manifest.Systems), m.Config().CheckInterval)

		seenAlerts := make(map[string]bool)
		ticker := time.NewTicker(reportEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nStopping...")
				return nil
			case <-ticker.C:
				renderAlerts(m.Alerts(), seenAlerts)
				if report := m.Report(); report != nil {
					renderReport(report)
					fmt.Println()
				}
			}
		}
	},
}

// setupMonitor builds a monitor from the --config and --targets flags and
// registers every manifest target, which starts the scheduler.
func setupMonitor(cmd *cobra.Command) (*monitor.Monitor, *targetManifest, error) {
	configPath, _ := cmd.Flags().GetString("config")
	targetsPath, _ := cmd.Flags().GetString("targets")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg := monitor.LoadConfigFromEnv()
	if configPath != "" {
		loaded, err := monitor.LoadConfigFile(configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	manifest, err := loadManifest(targetsPath)
	if err != nil {
		return nil, nil, err
	}

	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}

	m, err := monitor.New(cfg, logging.NewLogrusSink(os.Stderr, level))
	if err != nil {
		return nil, nil, err
	}

	if err := registerTargets(m, manifest); err != nil {
		m.StopMonitoring()
		return nil, nil, err
	}
	return m, manifest, nil
}

func init() {
	runCmd.Flags().Duration("report-every", 30*time.Second, "How often to print a health report")
	rootCmd.AddCommand(runCmd)
}
