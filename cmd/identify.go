package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mkolarik/gesture-gate/internal/authapi"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify the person at the camera (1:N)",
	Long: `Identify the person at the camera against all enrolled users.
No user id is needed; the backend searches the whole gallery.`,
	Args: cobra.NoArgs,
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
	addSessionFlags(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	return runSession(cmd, authapi.ModeIdentify, "")
}
