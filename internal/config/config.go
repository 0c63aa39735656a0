package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed gestures.yaml
var gesturesYAML []byte

type Config struct {
	Gateway  GatewayConfig
	Camera   CameraConfig
	Capture  CaptureConfig
	Gestures GestureCatalog
}

type GatewayConfig struct {
	URL           string // base URL of the recognition backend (e.g., http://localhost:8900)
	SecurityLevel string // default security level for new sessions
}

type CameraConfig struct {
	Device string // V4L2 device path (default /dev/video0)
	Width  int    // requested capture width (default 640)
	Height int    // requested capture height (default 480)
}

type CaptureConfig struct {
	TickInterval   time.Duration // submission timer period
	ThrottleWindow time.Duration // minimum spacing between frame submissions
	MaxErrors      int           // consecutive transient errors before giving up
	FrameMaxSize   int           // longest edge of submitted frames in pixels
	JPEGQuality    int           // encoder quality for submitted frames
}

// GestureCatalog maps server gesture identifiers to display information.
type GestureCatalog struct {
	Gestures map[string]GestureInfo `yaml:"gestures"`
}

type GestureInfo struct {
	Label string `yaml:"label"`
	Hint  string `yaml:"hint"`
}

// Label returns the human readable name for a gesture id, falling back
// to the raw id for gestures the catalog does not know about.
func (c *GestureCatalog) Label(id string) string {
	if info, ok := c.Gestures[id]; ok && info.Label != "" {
		return info.Label
	}
	return id
}

// Hint returns the how-to hint for a gesture id, or empty string.
func (c *GestureCatalog) Hint(id string) string {
	return c.Gestures[id].Hint
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var catalog GestureCatalog
	if err := yaml.Unmarshal(gesturesYAML, &catalog); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded gestures.yaml: " + err.Error())
	}

	return &Config{
		Gateway: GatewayConfig{
			URL:           envString("GESTURE_GATE_URL", "http://localhost:8900"),
			SecurityLevel: envString("GESTURE_GATE_SECURITY_LEVEL", "medium"),
		},
		Camera: CameraConfig{
			Device: envString("CAMERA_DEVICE", "/dev/video0"),
			Width:  envInt("CAMERA_WIDTH", 640),
			Height: envInt("CAMERA_HEIGHT", 480),
		},
		Capture: CaptureConfig{
			TickInterval:   time.Duration(envInt("CAPTURE_TICK_MS", 200)) * time.Millisecond,
			ThrottleWindow: time.Duration(envInt("CAPTURE_THROTTLE_MS", 250)) * time.Millisecond,
			MaxErrors:      envInt("CAPTURE_MAX_ERRORS", 10),
			FrameMaxSize:   envInt("CAPTURE_FRAME_MAX_SIZE", 640),
			JPEGQuality:    envInt("CAPTURE_JPEG_QUALITY", 92),
		},
		Gestures: catalog,
	}
}
