package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mkolarik/gesture-gate/internal/authapi"
	"github.com/mkolarik/gesture-gate/internal/camera"
	"github.com/mkolarik/gesture-gate/internal/capture"
	"github.com/mkolarik/gesture-gate/internal/config"
	"github.com/mkolarik/gesture-gate/internal/frame"
	"github.com/mkolarik/gesture-gate/internal/session"
)

// addSessionFlags registers the flags shared by verify, identify and enroll.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("security", "", "Security level for the session: low, medium, high (defaults to GESTURE_GATE_SECURITY_LEVEL)")
}

// runSession drives one full capture session: acquire the camera, start a
// backend session, run the capture loop until it terminates, and render
// the outcome. Shared by the verify, identify and enroll commands.
func runSession(cmd *cobra.Command, mode authapi.Mode, userID string) error {
	cfg := config.Load()

	server := serverURL
	if server == "" {
		server = cfg.Gateway.URL
	}
	device := devicePath
	if device == "" {
		device = cfg.Camera.Device
	}
	security := mustGetString(cmd, "security")
	if security == "" {
		security = cfg.Gateway.SecurityLevel
	}

	client, err := authapi.NewWithCapture(server, captureDir)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	fmt.Printf("Opening camera %s...\n", device)
	stream, err := camera.Acquire(ctx, camera.Options{
		Device: device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
	})
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}

	start, err := client.Start(ctx, mode, userID, security)
	if err != nil {
		stream.Release()
		return fmt.Errorf("failed to start session: %w", err)
	}

	fmt.Printf("Session %s started (%s, security: %s)\n", start.SessionID, mode, security)
	if len(start.RequiredSequence) > 0 {
		printSequence(cfg, start.RequiredSequence)
	}
	fmt.Println()

	sampler := frame.NewSampler(cfg.Capture.FrameMaxSize, cfg.Capture.JPEGQuality)
	bar := newGestureBar(len(start.RequiredSequence))

	controller := session.NewController()
	terminal := make(chan capture.Outcome, 1)

	err = controller.Begin(func() (func(), error) {
		loop, err := capture.Start(ctx, capture.Config{
			SessionID:            start.SessionID,
			Client:               client,
			Frames:               capture.FrameSourceFunc(func() *frame.Frame { return sampler.Sample(stream) }),
			Release:              stream.Release,
			TickInterval:         cfg.Capture.TickInterval,
			ThrottleWindow:       cfg.Capture.ThrottleWindow,
			MaxConsecutiveErrors: cfg.Capture.MaxErrors,
			OnProgress: func(p capture.Progress) {
				controller.HandleProgress(p)
				renderProgress(bar, cfg, p)
			},
			OnTerminal: func(o capture.Outcome) {
				controller.HandleTerminal(o)
				terminal <- o
			},
		})
		if err != nil {
			return nil, err
		}
		return loop.Stop, nil
	})
	if err != nil {
		stream.Release()
		return fmt.Errorf("failed to start capture: %w", err)
	}

	outcome := <-terminal
	_ = bar.Finish()
	fmt.Println()

	return renderOutcome(ctx, cfg, controller, outcome)
}

func printSequence(cfg *config.Config, sequence []string) {
	fmt.Println("Perform these gestures in order:")
	for i, id := range sequence {
		line := fmt.Sprintf("  %d. %s", i+1, cfg.Gestures.Label(id))
		if hint := cfg.Gestures.Hint(id); hint != "" {
			line += " - " + hint
		}
		fmt.Println(line)
	}
}

func newGestureBar(total int) *progressbar.ProgressBar {
	if total <= 0 {
		// The server reveals the sequence with the first frame response.
		total = 1
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Waiting for camera"),
		progressbar.OptionShowCount(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func renderProgress(bar *progressbar.ProgressBar, cfg *config.Config, p capture.Progress) {
	if n := len(p.RequiredSequence); n > 0 && int64(n) != bar.GetMax64() {
		bar.ChangeMax(n)
	}
	_ = bar.Set(len(p.CapturedSequence))

	switch {
	case p.SequenceComplete:
		bar.Describe("Sequence complete, verifying")
	case len(p.CapturedSequence) < len(p.RequiredSequence):
		next := p.RequiredSequence[len(p.CapturedSequence)]
		bar.Describe("Show: " + cfg.Gestures.Label(next))
	case p.Message != "":
		bar.Describe(p.Message)
	}
}

func renderOutcome(ctx context.Context, cfg *config.Config, ctrl *session.Controller, o capture.Outcome) error {
	switch o.Kind {
	case capture.OutcomeAuthenticated:
		fmt.Println("Access granted")
		if o.Result != nil {
			if o.Result.MatchedUserID != "" {
				fmt.Printf("  user:       %s\n", o.Result.MatchedUserID)
			}
			fmt.Printf("  confidence: %.1f%%\n", o.Result.Confidence*100)
			if o.Result.Duration > 0 {
				fmt.Printf("  duration:   %.1fs\n", o.Result.Duration)
			}
		}
		return nil

	case capture.OutcomeRejected:
		fmt.Println("Access denied")
		if o.Result != nil && o.Result.Confidence > 0 {
			fmt.Printf("  confidence: %.1f%%\n", o.Result.Confidence*100)
		}
		return nil

	case capture.OutcomeLocked:
		fmt.Println("Account locked: too many failed attempts")
		if o.Result != nil && o.Result.LockoutInfo != nil && o.Result.LockoutInfo.MaxAttempts > 0 {
			fmt.Printf("  attempts allowed: %d\n", o.Result.LockoutInfo.MaxAttempts)
		}
		renderCountdown(ctx, ctrl.Countdown())
		return nil

	case capture.OutcomeTimeout:
		fmt.Println("Session timed out")
		if o.Timeout != nil {
			renderTimeout(*o.Timeout)
		}
		return nil

	case capture.OutcomeSessionClosed:
		// The server already discarded the session; nothing to show.
		fmt.Println("Session ended. Please try again.")
		return nil

	case capture.OutcomeCanceled:
		fmt.Println("Session canceled")
		return nil

	default:
		return fmt.Errorf("session failed: %w", o.Err)
	}
}

func renderTimeout(info authapi.TimeoutInfo) {
	switch info.Kind {
	case authapi.TimeoutInactivity:
		fmt.Printf("  no valid gesture for %.0fs\n", info.InactivityLimitSeconds)
	case authapi.TimeoutIncorrectGesture:
		fmt.Printf("  wrong gesture held for %.0fs\n", info.IncorrectGestureLimitSeconds)
	default:
		if info.TimeLimitSeconds > 0 {
			fmt.Printf("  time limit: %.0fs\n", info.TimeLimitSeconds)
		}
	}
	if info.GesturesRequired > 0 {
		fmt.Printf("  captured %d of %d gestures\n", info.GesturesCaptured, info.GesturesRequired)
	}
}

// renderCountdown prints the lockout countdown in place until it expires
// or the user interrupts.
func renderCountdown(ctx context.Context, cd *session.Countdown) {
	if cd == nil {
		return
	}
	for r := range cd.Watch(ctx) {
		if r.Expired {
			fmt.Printf("\r%-40s\n", "Lockout expired, you may try again.")
			return
		}
		fmt.Printf("\rTry again in %d:%02d%s", r.Minutes, r.Seconds, strings.Repeat(" ", 10))
	}
	fmt.Println()
}
