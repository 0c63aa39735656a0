package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// filled during build by ldflags
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gesture-gate %s\n", Version)
		fmt.Printf("commit: %s\n", CommitSHA)
		fmt.Printf("built:  %s\n", BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
