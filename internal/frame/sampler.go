package frame

import (
	"bytes"
	"image"
	"image/jpeg"
	"time"

	"golang.org/x/image/draw"

	"github.com/mkolarik/gesture-gate/internal/camera"
)

// Frame is one encoded still image, created per tick and consumed by
// exactly one submission.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
}

// FrameReader is the part of camera.Stream the sampler needs.
type FrameReader interface {
	ReadFrame() (*camera.RawFrame, error)
}

// Sampler captures the current video frame and encodes it as a JPEG of
// bounded size. Any problem producing a valid frame yields nil ("no frame
// this tick"), never an error: the capture loop simply tries again.
type Sampler struct {
	MaxSize int // longest edge in pixels, default 640
	Quality int // JPEG quality, default 92
}

func NewSampler(maxSize, quality int) *Sampler {
	if maxSize <= 0 {
		maxSize = 640
	}
	if quality <= 0 {
		quality = 92
	}
	return &Sampler{MaxSize: maxSize, Quality: quality}
}

// Sample reads the current frame from the stream and returns it encoded,
// or nil if the stream is not ready or the frame cannot be encoded.
func (s *Sampler) Sample(src FrameReader) *Frame {
	raw, err := src.ReadFrame()
	if err != nil {
		return nil
	}

	img := decodeRaw(raw)
	if img == nil {
		return nil
	}

	data, err := encodeJPEG(img, s.MaxSize, s.Quality)
	if err != nil {
		return nil
	}
	if !validJPEG(data) {
		return nil
	}

	return &Frame{Data: data, CapturedAt: time.Now()}
}

func decodeRaw(raw *camera.RawFrame) image.Image {
	switch raw.Format {
	case camera.FormatMJPEG:
		img, err := jpeg.Decode(bytes.NewReader(raw.Data))
		if err != nil {
			return nil
		}
		return img
	case camera.FormatYUYV:
		return yuyvToRGBA(raw.Data, raw.Width, raw.Height)
	default:
		return nil
	}
}

// encodeJPEG downscales the image to fit within maxSize while keeping
// aspect ratio and encodes it as JPEG.
func encodeJPEG(img image.Image, maxSize, quality int) ([]byte, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxSize || height > maxSize {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = int(float64(height) * float64(maxSize) / float64(width))
		} else {
			newHeight = maxSize
			newWidth = int(float64(width) * float64(maxSize) / float64(height))
		}

		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// validJPEG checks for the JPEG SOI and EOI markers. Malformed encoder
// output must never reach the network layer.
func validJPEG(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	if data[0] != 0xff || data[1] != 0xd8 {
		return false
	}
	return data[len(data)-2] == 0xff && data[len(data)-1] == 0xd9
}
