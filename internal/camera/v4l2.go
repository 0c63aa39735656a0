package camera

import (
	"fmt"
	"time"

	"github.com/blackjack/webcam"
)

// v4l2Device adapts the blackjack/webcam V4L2 bindings to the Device
// interface. Preferred formats: MJPEG (frames are already JPEG), then YUYV.
type v4l2Device struct {
	cam *webcam.Webcam
}

func openV4L2(path string) (Device, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, err
	}
	// Not all cameras support this; failure is harmless.
	_ = cam.SetAutoWhiteBalance(true)
	return &v4l2Device{cam: cam}, nil
}

func (d *v4l2Device) Negotiate(width, height int) (PixelFormat, int, int, error) {
	supported := d.cam.GetSupportedFormats()

	for _, want := range []PixelFormat{FormatMJPEG, FormatYUYV} {
		if _, ok := supported[webcam.PixelFormat(want)]; !ok {
			continue
		}
		f, w, h, err := d.cam.SetImageFormat(webcam.PixelFormat(want), uint32(width), uint32(height))
		if err != nil {
			continue
		}
		return PixelFormat(f), int(w), int(h), nil
	}

	return 0, 0, 0, fmt.Errorf("device supports neither MJPG nor YUYV (formats: %v)", supported)
}

func (d *v4l2Device) StartStreaming() error {
	return d.cam.StartStreaming()
}

func (d *v4l2Device) ReadFrame(timeout time.Duration) ([]byte, error) {
	secs := uint32(timeout / time.Second)
	if secs == 0 {
		secs = 1
	}

	err := d.cam.WaitForFrame(secs)
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return nil, ErrNotReady
	default:
		return nil, err
	}

	frame, err := d.cam.ReadFrame()
	if err != nil {
		return nil, err
	}
	if len(frame) == 0 {
		return nil, ErrNotReady
	}
	return frame, nil
}

func (d *v4l2Device) Close() error {
	// StopStreaming error is irrelevant once we are closing the handle.
	_ = d.cam.StopStreaming()
	return d.cam.Close()
}
