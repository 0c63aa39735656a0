package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Gateway.URL != "http://localhost:8900" {
		t.Errorf("expected default gateway URL, got %q", cfg.Gateway.URL)
	}
	if cfg.Camera.Device != "/dev/video0" {
		t.Errorf("expected default camera device, got %q", cfg.Camera.Device)
	}
	if cfg.Capture.TickInterval != 200*time.Millisecond {
		t.Errorf("expected 200ms tick interval, got %v", cfg.Capture.TickInterval)
	}
	if cfg.Capture.ThrottleWindow != 250*time.Millisecond {
		t.Errorf("expected 250ms throttle window, got %v", cfg.Capture.ThrottleWindow)
	}
	if cfg.Capture.MaxErrors != 10 {
		t.Errorf("expected 10 max errors, got %d", cfg.Capture.MaxErrors)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GESTURE_GATE_URL", "http://gate.example.com")
	t.Setenv("CAPTURE_TICK_MS", "150")
	t.Setenv("CAMERA_WIDTH", "1280")

	cfg := Load()

	if cfg.Gateway.URL != "http://gate.example.com" {
		t.Errorf("expected overridden gateway URL, got %q", cfg.Gateway.URL)
	}
	if cfg.Capture.TickInterval != 150*time.Millisecond {
		t.Errorf("expected 150ms tick interval, got %v", cfg.Capture.TickInterval)
	}
	if cfg.Camera.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Camera.Width)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("CAPTURE_MAX_ERRORS", "not-a-number")

	cfg := Load()

	if cfg.Capture.MaxErrors != 10 {
		t.Errorf("invalid env value should fall back to default, got %d", cfg.Capture.MaxErrors)
	}
}

func TestGestureCatalog(t *testing.T) {
	cfg := Load()

	if got := cfg.Gestures.Label("Open_Palm"); got != "Open palm" {
		t.Errorf("expected label 'Open palm', got %q", got)
	}
	if got := cfg.Gestures.Label("Secret_Handshake"); got != "Secret_Handshake" {
		t.Errorf("unknown gesture should fall back to id, got %q", got)
	}
	if cfg.Gestures.Hint("Victory") == "" {
		t.Error("expected a hint for Victory")
	}
}
