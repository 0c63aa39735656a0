package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mkolarik/gesture-gate/internal/authapi"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [user-id]",
	Short: "Enroll a new user",
	Long: `Enroll a user by capturing reference gestures from the camera.
The captured samples become the biometric template the backend uses for
later verification and identification.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	addSessionFlags(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	return runSession(cmd, authapi.ModeEnroll, args[0])
}
