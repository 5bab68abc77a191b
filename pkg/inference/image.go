package inference

import (
	"encoding/base64"
	"fmt"
)

// InlineImage is image data sent inline with a request.
type InlineImage struct {
	// MIMEType of the image, e.g. "image/jpeg".
	MIMEType string

	// Data is the base64-encoded image.
	Data string
}

// NewInlineImage encodes raw image bytes.
func NewInlineImage(mimeType string, data []byte) InlineImage {
	return InlineImage{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}
}

// Validate checks that the image carries a MIME type and data.
func (img InlineImage) Validate() error {
	if img.MIMEType == "" {
		return fmt.Errorf("%w: missing MIME type", ErrInvalidImage)
	}
	if img.Data == "" {
		return fmt.Errorf("%w: missing data", ErrInvalidImage)
	}
	return nil
}
