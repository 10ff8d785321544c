package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "caresync-consultations",
	Short: "Video consultation service: lifecycle, presence, signaling relay",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute runs the root command and returns the error for main to report.
func Execute() error {
	return rootCmd.Execute()
}
