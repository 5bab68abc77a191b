// Package analysis turns one captured frame into one seasonal color report.
//
// Client.Analyze never returns an error value: every failure is classified
// and rendered into a human-readable message on the Result, so callers can
// display it as-is.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-palette/pkg/frame"
	"github.com/teslashibe/go-palette/pkg/inference"
)

// ErrNoProvider is returned by NewClient when no provider is given.
var ErrNoProvider = errors.New("analysis: provider required")

// Kind classifies a failed analysis.
type Kind string

const (
	// KindFormat means the frame was malformed; no call was made.
	KindFormat Kind = "format"

	// KindService means the model API answered with an error.
	KindService Kind = "service"

	// KindUnknown covers every other failure.
	KindUnknown Kind = "unknown"
)

// Failure describes why an analysis did not produce a report.
type Failure struct {
	Kind    Kind
	Message string
	Err     error

	// Retryable is set for service failures that may succeed on a later
	// capture, such as rate limits.
	Retryable bool
}

// Result holds exactly one of Report or Failure.
type Result struct {
	// Report is the model's text, unmodified.
	Report string

	// Failure is set when no report was produced.
	Failure *Failure

	// Model that produced the report, if any.
	Model string

	// LatencyMs of the model call, zero when no call was made.
	LatencyMs int64
}

// OK reports whether the result carries a report.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Text returns the report, or the failure message.
func (r Result) Text() string {
	if r.Failure != nil {
		return r.Failure.Message
	}
	return r.Report
}

// Client issues one vision request per analysis.
type Client struct {
	provider  inference.Provider
	model     string
	maxTokens int
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens limits the report length.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates an analysis client backed by provider.
func NewClient(provider inference.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	c := &Client{
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "analysis")
	return c, nil
}

// Analyze parses the frame and, if it is well formed, sends it with the
// fixed Instruction in a single provider call.
func (c *Client) Analyze(ctx context.Context, frameData string) (res Result) {
	logger := c.logger
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			res = Result{Failure: unknownFailure(err)}
			logger.Error("analysis panicked", "error", err)
		}
	}()

	f, err := frame.Parse(frameData)
	if err != nil {
		failure := formatFailure(err)
		logger.Warn("rejected malformed frame", "kind", failure.Kind, "error", err, "frame_len", len(frameData))
		return Result{Failure: failure}
	}

	logger.Info("sending frame for analysis",
		"mime_type", f.MIMEType,
		"payload_len", len(f.Payload),
	)

	start := time.Now()
	resp, err := c.provider.Vision(ctx, &inference.VisionRequest{
		Image:     inference.InlineImage{MIMEType: f.MIMEType, Data: f.Payload},
		Prompt:    Instruction,
		Model:     c.model,
		MaxTokens: c.maxTokens,
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		failure := classify(err)
		logger.Error("analysis failed",
			"kind", failure.Kind,
			"retryable", failure.Retryable,
			"error", err,
			"latency_ms", latency,
		)
		return Result{Failure: failure, LatencyMs: latency}
	}

	logger.Info("analysis complete",
		"model", resp.Model,
		"text_len", len(resp.Content),
		"latency_ms", latency,
	)
	return Result{Report: resp.Content, Model: resp.Model, LatencyMs: latency}
}

// classify maps a provider error to a Failure.
func classify(err error) *Failure {
	var apiErr *inference.APIError
	if errors.As(err, &apiErr) {
		return &Failure{
			Kind:      KindService,
			Message:   fmt.Sprintf("Error from Gemini API: %s.", apiErr.Detail()),
			Err:       err,
			Retryable: apiErr.Retryable(),
		}
	}
	return unknownFailure(err)
}

func formatFailure(err error) *Failure {
	reason := err.Error()
	var fe *frame.FormatError
	if errors.As(err, &fe) {
		reason = fe.Reason
	}
	return &Failure{
		Kind:    KindFormat,
		Message: fmt.Sprintf("Invalid captured frame: %s.", reason),
		Err:     err,
	}
}

func unknownFailure(err error) *Failure {
	msg := err.Error()
	var perr *inference.ProviderError
	if errors.As(err, &perr) && perr.Err != nil {
		msg = perr.Err.Error()
	}
	return &Failure{
		Kind:    KindUnknown,
		Message: fmt.Sprintf("An unexpected error occurred during analysis: %s.", msg),
		Err:     err,
	}
}
