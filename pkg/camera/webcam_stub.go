//go:build !gocv

package camera

import (
	"context"
	"log/slog"
)

// Webcam is unavailable without the gocv build tag.
type Webcam struct{}

// OpenWebcam returns ErrCaptureUnavailable when built without OpenCV.
func OpenWebcam(manager *Manager, logger *slog.Logger) (*Webcam, error) {
	return nil, Unavailable("built without gocv (use -tags gocv)", nil).Err
}

// Capture always fails.
func (w *Webcam) Capture(ctx context.Context) Outcome {
	return Unavailable("built without gocv", nil)
}

// Close is a no-op.
func (w *Webcam) Close() error {
	return nil
}
