//go:build gocv

package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-palette/pkg/frame"
)

// Webcam captures stills from a local video device through OpenCV.
type Webcam struct {
	manager *Manager
	logger  *slog.Logger

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	device int
}

// OpenWebcam opens the device named by the manager's config.
func OpenWebcam(manager *Manager, logger *slog.Logger) (*Webcam, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Webcam{
		manager: manager,
		logger:  logger.With("component", "camera.webcam"),
	}
	if err := w.open(manager.GetConfig()); err != nil {
		return nil, err
	}
	manager.OnConfigChange = w.apply
	return w, nil
}

func (w *Webcam) open(cfg Config) error {
	vc, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: open device %d: %v", ErrCaptureUnavailable, cfg.DeviceID, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	w.mu.Lock()
	old := w.vc
	w.vc = vc
	w.device = cfg.DeviceID
	w.mu.Unlock()

	if old != nil {
		old.Close()
	}
	w.logger.Info("webcam opened", "device", cfg.DeviceID, "width", cfg.Width, "height", cfg.Height)
	return nil
}

// apply reopens the device when the device index changes.
func (w *Webcam) apply(cfg Config) error {
	w.mu.Lock()
	same := w.vc != nil && w.device == cfg.DeviceID
	if same {
		w.vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		w.vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	w.mu.Unlock()

	if same {
		return nil
	}
	return w.open(cfg)
}

// Capture reads the current frame from the device.
func (w *Webcam) Capture(ctx context.Context) Outcome {
	if err := ctx.Err(); err != nil {
		return Unavailable("capture cancelled", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.vc == nil || !w.vc.IsOpened() {
		return Unavailable("webcam not open", nil)
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := w.vc.Read(&mat); !ok || mat.Empty() {
		return Unavailable("feed not ready", nil)
	}

	img, err := mat.ToImage()
	if err != nil {
		return Unavailable("convert frame", err)
	}

	data, err := EncodeJPEG(img, w.manager.GetConfig())
	if err != nil {
		return Unavailable("encode frame", err)
	}

	w.logger.Debug("frame captured", "bytes", len(data))
	return Captured(frame.Encode(frame.DefaultMIMEType, data))
}

// Close releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.vc == nil {
		return nil
	}
	err := w.vc.Close()
	w.vc = nil
	return err
}
