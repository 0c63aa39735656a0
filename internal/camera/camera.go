package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// PixelFormat is a V4L2 fourcc pixel format code.
type PixelFormat uint32

const (
	FormatMJPEG PixelFormat = 0x47504a4d // 'MJPG'
	FormatYUYV  PixelFormat = 0x56595559 // 'YUYV'
)

func (f PixelFormat) String() string {
	switch f {
	case FormatMJPEG:
		return "MJPG"
	case FormatYUYV:
		return "YUYV"
	default:
		return fmt.Sprintf("PixelFormat(0x%08x)", uint32(f))
	}
}

// ErrNotReady is returned by ReadFrame while the device has not yet
// produced a frame. Callers treat it as "no frame this tick", not a failure.
var ErrNotReady = errors.New("camera: no frame available yet")

// Error is returned when acquisition fails after all retry attempts.
type Error struct {
	Device string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("camera %s: %s: %v", e.Device, e.Reason, e.Err)
	}
	return fmt.Sprintf("camera %s: %s", e.Device, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// RawFrame is a single frame as delivered by the device, before encoding.
type RawFrame struct {
	Data   []byte
	Format PixelFormat
	Width  int
	Height int
}

// Device abstracts a streaming video device so tests can substitute a fake.
// The production implementation wraps a V4L2 webcam.
type Device interface {
	// Negotiate picks a pixel format and resolution close to the request
	// and returns what the device actually agreed to.
	Negotiate(width, height int) (PixelFormat, int, int, error)
	StartStreaming() error
	// ReadFrame returns the next frame, or ErrNotReady if none arrived
	// within the timeout.
	ReadFrame(timeout time.Duration) ([]byte, error)
	Close() error
}

// Options controls acquisition. Zero values fall back to sane defaults.
type Options struct {
	Device     string        // device path, default /dev/video0
	Width      int           // requested width, default 640
	Height     int           // requested height, default 480
	Attempts   int           // open attempts, default 3
	RetryDelay time.Duration // delay between attempts, default 500ms
	WarmUp     time.Duration // settle delay before the first attempt, default 0

	// Open opens the underlying device. Defaults to the V4L2
	// implementation; tests inject fakes here.
	Open func(path string) (Device, error)
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Device == "" {
		out.Device = "/dev/video0"
	}
	if out.Width <= 0 {
		out.Width = 640
	}
	if out.Height <= 0 {
		out.Height = 480
	}
	if out.Attempts <= 0 {
		out.Attempts = 3
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 500 * time.Millisecond
	}
	if out.Open == nil {
		out.Open = openV4L2
	}
	return out
}

// Stream is an exclusively owned live video stream. It must be released
// exactly once per successful Acquire; Release is idempotent so every
// termination path can call it safely.
type Stream struct {
	dev         Device
	format      PixelFormat
	width       int
	height      int
	readTimeout time.Duration
	releaseOnce sync.Once
}

// Acquire opens the device and starts streaming, retrying transient open
// failures up to Options.Attempts with a fixed delay between attempts.
func Acquire(ctx context.Context, opts Options) (*Stream, error) {
	o := opts.withDefaults()

	if o.WarmUp > 0 {
		// Let device resources settle after a previous release.
		if err := sleepCtx(ctx, o.WarmUp); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= o.Attempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, o.RetryDelay); err != nil {
				return nil, err
			}
		}

		stream, err := tryAcquire(o)
		if err == nil {
			return stream, nil
		}
		lastErr = err
	}

	return nil, &Error{
		Device: o.Device,
		Reason: fmt.Sprintf("acquisition failed after %d attempts", o.Attempts),
		Err:    lastErr,
	}
}

func tryAcquire(o Options) (*Stream, error) {
	dev, err := o.Open(o.Device)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	format, width, height, err := dev.Negotiate(o.Width, o.Height)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("negotiate format: %w", err)
	}

	if err := dev.StartStreaming(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("start streaming: %w", err)
	}

	return &Stream{
		dev:         dev,
		format:      format,
		width:       width,
		height:      height,
		readTimeout: time.Second,
	}, nil
}

// ReadFrame returns the most recent frame from the device, or ErrNotReady
// if the device has not produced one yet.
func (s *Stream) ReadFrame() (*RawFrame, error) {
	data, err := s.dev.ReadFrame(s.readTimeout)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotReady
	}
	return &RawFrame{
		Data:   data,
		Format: s.format,
		Width:  s.width,
		Height: s.height,
	}, nil
}

// Format reports the negotiated pixel format.
func (s *Stream) Format() PixelFormat { return s.format }

// Size reports the negotiated frame dimensions.
func (s *Stream) Size() (width, height int) { return s.width, s.height }

// Release stops streaming and closes the device. Safe to call multiple
// times and on a nil stream; only the first call has any effect.
func (s *Stream) Release() {
	if s == nil {
		return
	}
	s.releaseOnce.Do(func() {
		s.dev.Close()
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
