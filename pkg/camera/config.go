// Package camera produces single still frames for analysis.
//
// A Source returns an Outcome: either a data URL frame or an error wrapping
// ErrCaptureUnavailable. Capture failures are always reported to the caller.
package camera

// Config holds the still-capture parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// DeviceID is the video device index for the server-side webcam.
	DeviceID int `json:"device_id" yaml:"device_id"`

	// Frames are fitted inside Width x Height, keeping the aspect ratio.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	// Quality is the JPEG quality, 1-100.
	Quality int `json:"quality" yaml:"quality"`
}

// Size limits for a single still.
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 1920
	MaxHeight = 1080
)

// DefaultConfig returns the 320x240 user-facing capture setup.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    320,
		Height:   240,
		Quality:  85,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.DeviceID < 0 {
		errors = append(errors, "device_id must be 0 or greater")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 1920")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 1080")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}
