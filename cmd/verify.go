package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mkolarik/gesture-gate/internal/authapi"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [user-id]",
	Short: "Verify a user's identity (1:1)",
	Long: `Verify that the person at the camera is the given enrolled user.
The backend issues a gesture sequence; perform it in front of the camera
to complete the check.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addSessionFlags(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	return runSession(cmd, authapi.ModeVerify, args[0])
}
