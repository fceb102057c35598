package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/healthmon/healthmon/internal/monitor"
)

// renderReport prints a report in the style of `vc doctor`: one line per
// system with a colored status glyph, followed by recommendations.
func renderReport(report *monitor.Report) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Printf("%s Health report (%s)\n", cyan("→"), report.Timestamp.Format("15:04:05"))
	fmt.Printf("  Overall: %s  (%d/%d healthy, %d issue(s))\n\n",
		colorStatus(report.OverallStatus), report.HealthySystems, report.SystemCount, report.TotalIssues)

	for _, sys := range report.Systems {
		glyph := green("✓")
		switch sys.Status {
		case monitor.StatusWarning, monitor.StatusDegraded, monitor.StatusUnknown:
			glyph = yellow("!")
		case monitor.StatusFailing, monitor.StatusCritical, monitor.StatusError:
			glyph = red("✗")
		}
		fmt.Printf("  %s %-20s %-10s score=%-3d fails=%d", glyph, sys.Name, sys.Status, sys.Score, sys.ConsecutiveFailures)
		if sys.RecoveryAttempts > 0 {
			fmt.Printf(" recovery-attempts=%d", sys.RecoveryAttempts)
		}
		fmt.Println()
		for _, issue := range sys.Issues {
			fmt.Printf("      %s %s\n", red("-"), issue)
		}
	}

	if len(report.Recommendations) > 0 {
		fmt.Printf("\n  Recommendations:\n")
		for _, rec := range report.Recommendations {
			fmt.Printf("    %s %s\n", yellow("•"), rec)
		}
	}
}

// renderAlerts prints alerts not yet seen, newest last.
func renderAlerts(alerts []monitor.Alert, seen map[string]bool) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	for _, alert := range alerts {
		if seen[alert.ID] {
			continue
		}
		seen[alert.ID] = true
		fmt.Printf("%s [%s] %s: %s\n", red("ALERT"), strings.ToUpper(string(alert.Severity)), alert.Type, alert.Message)
	}
}

func colorStatus(status monitor.Status) string {
	switch status {
	case monitor.StatusHealthy:
		return color.GreenString(string(status))
	case monitor.StatusWarning, monitor.StatusUnknown:
		return color.YellowString(string(status))
	default:
		return color.RedString(string(status))
	}
}
