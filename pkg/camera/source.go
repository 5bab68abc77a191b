package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/teslashibe/go-palette/pkg/frame"
)

// ErrCaptureUnavailable is wrapped by every failed capture.
var ErrCaptureUnavailable = errors.New("camera: capture unavailable")

// Outcome is the result of one capture: a frame or an error, never both.
type Outcome struct {
	// Frame is the captured still as a data URL.
	Frame string

	// Err explains why no frame was produced.
	Err error
}

// OK reports whether a frame was produced.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Frame != ""
}

// Captured returns a successful outcome.
func Captured(dataURL string) Outcome {
	return Outcome{Frame: dataURL}
}

// Unavailable returns a failed outcome wrapping ErrCaptureUnavailable.
func Unavailable(reason string, err error) Outcome {
	if err != nil {
		return Outcome{Err: fmt.Errorf("%w: %s: %v", ErrCaptureUnavailable, reason, err)}
	}
	return Outcome{Err: fmt.Errorf("%w: %s", ErrCaptureUnavailable, reason)}
}

// Source produces one still frame per call.
type Source interface {
	Capture(ctx context.Context) Outcome
}

// Upload is a frame captured by the browser and posted to the server.
type Upload string

// Capture returns the uploaded frame.
func (u Upload) Capture(ctx context.Context) Outcome {
	if err := ctx.Err(); err != nil {
		return Unavailable("capture cancelled", err)
	}
	if u == "" {
		return Unavailable("browser sent no frame", nil)
	}
	return Captured(string(u))
}

// Still serves a fixed image as the camera feed, e.g. for demos without a
// device attached.
type Still struct {
	img     image.Image
	manager *Manager
}

// NewStill creates a still source from an image.
func NewStill(img image.Image, manager *Manager) *Still {
	return &Still{img: img, manager: manager}
}

// OpenStill loads the image at path.
func OpenStill(path string, manager *Manager) (*Still, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open still image: %w", err)
	}
	return NewStill(img, manager), nil
}

// Capture encodes the image with the current config.
func (s *Still) Capture(ctx context.Context) Outcome {
	if err := ctx.Err(); err != nil {
		return Unavailable("capture cancelled", err)
	}
	if s.img == nil {
		return Unavailable("no still image loaded", nil)
	}
	data, err := EncodeJPEG(s.img, s.manager.GetConfig())
	if err != nil {
		return Unavailable("encode frame", err)
	}
	return Captured(frame.Encode(frame.DefaultMIMEType, data))
}

// EncodeJPEG fits img inside the configured size and encodes it as JPEG.
func EncodeJPEG(img image.Image, cfg Config) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("empty image")
	}
	if cfg.Width > 0 && cfg.Height > 0 && (b.Dx() > cfg.Width || b.Dy() > cfg.Height) {
		img = imaging.Fit(img, cfg.Width, cfg.Height, imaging.Lanczos)
	}

	quality := cfg.Quality
	if quality <= 0 {
		quality = DefaultConfig().Quality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
