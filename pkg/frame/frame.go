// Package frame handles captured still frames in their data URL form.
//
// A captured frame travels between the browser, the camera package and the
// analysis client as a single self-describing string:
//
//	data:image/jpeg;base64,/9j/4AAQSkZJRg...
//
// Parse splits that string into its MIME type and base64 payload. Encode
// builds it from raw image bytes.
package frame

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultMIMEType is the MIME type used for frames captured from a camera.
const DefaultMIMEType = "image/jpeg"

const (
	payloadDelimiter = ","
	mimeMarker       = ":"
	mimeSeparator    = ";"
)

// Frame is a decomposed captured frame.
type Frame struct {
	// MIMEType is the declared image type, e.g. "image/jpeg".
	MIMEType string

	// Payload is the base64-encoded image data, exactly as received.
	Payload string
}

// FormatError reports a frame string that does not have the
// "<descriptor>,<payload>" structure.
type FormatError struct {
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return "frame: " + e.Reason
}

// Parse decomposes a data URL style frame string.
//
// The string is split at the first comma. The descriptor before it must carry
// a MIME type between ':' and ';' (the ';' part is optional). Both the MIME
// type and the payload must be non-empty.
func Parse(s string) (*Frame, error) {
	descriptor, payload, ok := strings.Cut(s, payloadDelimiter)
	if !ok {
		return nil, &FormatError{Reason: "expected a data URL with a comma-separated payload"}
	}

	_, mime, ok := strings.Cut(descriptor, mimeMarker)
	if !ok {
		return nil, &FormatError{Reason: fmt.Sprintf("missing %q before MIME type", mimeMarker)}
	}
	mime, _, _ = strings.Cut(mime, mimeSeparator)
	mime = strings.TrimSpace(mime)

	if mime == "" {
		return nil, &FormatError{Reason: "empty MIME type"}
	}
	if payload == "" {
		return nil, &FormatError{Reason: "empty payload"}
	}

	return &Frame{MIMEType: mime, Payload: payload}, nil
}

// Encode builds a base64 data URL from raw image bytes.
func Encode(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
