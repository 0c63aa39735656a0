package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	devicePath string
	captureDir string
)

var rootCmd = &cobra.Command{
	Use:   "gesture-gate",
	Short: "A CLI client for gesture-based biometric authentication",
	Long: `Gesture Gate is a CLI client that enrolls, verifies (1:1) or
identifies (1:N) a person through a sequence of hand gestures captured
from a local webcam and relayed to a remote recognition backend.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Recognition backend URL (overrides GESTURE_GATE_URL)")
	rootCmd.PersistentFlags().StringVar(&devicePath, "device", "", "Camera device path (overrides CAMERA_DEVICE)")
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture", "", "Directory to save API responses for testing")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
