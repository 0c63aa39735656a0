package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkolarik/gesture-gate/internal/simulator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted backend simulator",
	Long: `Run a local HTTP server that implements the recognition backend
API with scripted, deterministic behavior. Useful for trying out the
client without a camera pipeline or a real backend:

  gesture-gate simulate --decision lock --lockout 120 &
  gesture-gate verify alice --server http://localhost:8900`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Int("port", 8900, "Port to listen on")
	simulateCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	simulateCmd.Flags().String("decision", "accept", "Terminal outcome for every session: accept, reject, lock")
	simulateCmd.Flags().Float64("confidence", 0.93, "Reported fused score for decided sessions")
	simulateCmd.Flags().Int("frames-per-gesture", 3, "Frames before each gesture registers")
	simulateCmd.Flags().Int("time-limit", 45, "Session time limit in seconds")
	simulateCmd.Flags().Int("lockout", 300, "Lockout duration in seconds when decision is lock")
	simulateCmd.Flags().StringSlice("sequence", nil, "Gesture sequence to demand (default Open_Palm,Victory,Thumb_Up)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	decision := mustGetString(cmd, "decision")

	switch simulator.Decision(decision) {
	case simulator.DecideAccept, simulator.DecideReject, simulator.DecideLock:
	default:
		return fmt.Errorf("unknown decision: %s (supported: accept, reject, lock)", decision)
	}

	sim := simulator.New(simulator.Script{
		RequiredSequence: mustGetStringSlice(cmd, "sequence"),
		FramesPerGesture: mustGetInt(cmd, "frames-per-gesture"),
		Decision:         simulator.Decision(decision),
		Confidence:       mustGetFloat64(cmd, "confidence"),
		LockoutDuration:  time.Duration(mustGetInt(cmd, "lockout")) * time.Second,
		TimeLimit:        time.Duration(mustGetInt(cmd, "time-limit")) * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	fmt.Printf("Starting backend simulator on http://%s:%d (decision: %s)\n", host, port, decision)
	fmt.Println("Press Ctrl+C to stop")

	if err := sim.Serve(ctx, host, port); err != nil {
		return fmt.Errorf("starting simulator: %w", err)
	}
	return nil
}
