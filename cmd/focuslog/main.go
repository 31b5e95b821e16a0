package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "focuslog"

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Foreground window time tracker with break reminders",
	Long: `focuslog samples the focused window once per poll interval, records how
long each program stays in front, groups programs into categories and
reminds you to take breaks. Completed months are archived with a per-category
summary report.

Environment Variables:
  FOCUSLOG_CONFIG            Config file path
  FOCUSLOG_DB_PATH           Database file path
  FOCUSLOG_POLL_INTERVAL     Poll interval (e.g. 1s)
  FOCUSLOG_BREAK_INTERVAL    Break interval in seconds
  FOCUSLOG_INTERACTIVE       Ask for the category of new programs (true/false)
  FOCUSLOG_PID_FILE          PID file path
  FOCUSLOG_WEB_PORT          Web API port`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
