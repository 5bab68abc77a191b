// Package shell owns the UI state for one capture-then-analyze cycle.
//
// State moves Idle -> Capturing -> Completed. Each new capture gets a fresh
// generation number and cancels the request before it; a result is only
// applied while its generation is still current, so stale reports never
// overwrite newer state.
package shell

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-palette/pkg/analysis"
	"github.com/teslashibe/go-palette/pkg/camera"
)

// Phase of the capture cycle.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCapturing Phase = "capturing"
	PhaseCompleted Phase = "completed"
)

// State is the snapshot rendered by the UI.
type State struct {
	Phase      Phase     `json:"phase"`
	Frame      string    `json:"frame,omitempty"`
	Loading    bool      `json:"loading"`
	Result     string    `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
	Retryable  bool      `json:"retryable,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Analyzer turns a frame into a result. *analysis.Client implements it.
type Analyzer interface {
	Analyze(ctx context.Context, frame string) analysis.Result
}

// Shell sequences captures and analyses and publishes state changes.
type Shell struct {
	analyzer Analyzer
	timeout  time.Duration
	logger   *slog.Logger

	root     context.Context
	stopRoot context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	listeners []func(State)
}

// Option configures a Shell.
type Option func(*Shell)

// WithTimeout bounds each analysis. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Shell) { s.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) { s.logger = l }
}

// New creates an idle shell.
func New(analyzer Analyzer, opts ...Option) *Shell {
	root, stop := context.WithCancel(context.Background())
	s := &Shell{
		analyzer: analyzer,
		logger:   slog.Default(),
		root:     root,
		stopRoot: stop,
		state:    State{Phase: PhaseIdle, UpdatedAt: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "shell")
	return s
}

// State returns a copy of the current state.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnChange registers fn to receive every new state, in order.
// fn runs with the shell locked: it must not block or call back into the Shell.
func (s *Shell) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Capture asks src for one frame and analyzes it synchronously. When the
// source produces no frame the state is left untouched and the capture
// error is returned.
func (s *Shell) Capture(ctx context.Context, src camera.Source) (State, error) {
	out := src.Capture(ctx)
	if !out.OK() {
		s.logger.Warn("capture unavailable", "error", out.Err)
		return s.State(), out.Err
	}
	return s.Submit(ctx, out.Frame), nil
}

// CaptureAsync asks src for one frame and starts its analysis in the
// background. It returns the request ID of the started analysis.
func (s *Shell) CaptureAsync(ctx context.Context, src camera.Source) (string, error) {
	out := src.Capture(ctx)
	if !out.OK() {
		s.logger.Warn("capture unavailable", "error", out.Err)
		return "", out.Err
	}
	return s.Start(out.Frame), nil
}

// Submit records frame, supersedes any in-flight analysis and runs a new
// one. It returns the state after this request completes, or the current
// state if a newer capture superseded it.
func (s *Shell) Submit(ctx context.Context, frame string) State {
	reqCtx, gen, id := s.begin(ctx, frame)
	s.run(reqCtx, gen, id, frame)
	return s.State()
}

// Start is Submit in the background. Close waits for started analyses.
func (s *Shell) Start(frame string) string {
	reqCtx, gen, id := s.begin(s.root, frame)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(reqCtx, gen, id, frame)
	}()
	return id
}

// Cancel aborts the in-flight analysis, if any. Its result is discarded.
func (s *Shell) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.state.Generation++
	s.state.Loading = false
	s.state.Phase = PhaseCompleted
	s.state.Error = "Analysis cancelled."
	s.state.Retryable = false
	s.state.UpdatedAt = time.Now()
	s.publishLocked()
}

// Close cancels in-flight work and waits for background analyses to end.
func (s *Shell) Close() {
	s.stopRoot()
	s.wg.Wait()
}

// begin moves to Capturing: new generation, new request ID, previous result
// and error cleared, previous request cancelled.
func (s *Shell) begin(parent context.Context, frame string) (context.Context, uint64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.logger.Info("superseding in-flight analysis", "request_id", s.state.RequestID)
	}

	id := uuid.NewString()
	ctx := analysis.ContextWithRequestID(parent, id)
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	s.cancel = cancel

	s.state = State{
		Phase:      PhaseCapturing,
		Frame:      frame,
		Loading:    true,
		RequestID:  id,
		Generation: s.state.Generation + 1,
		UpdatedAt:  time.Now(),
	}
	s.publishLocked()

	s.logger.Info("capture received", "request_id", id, "generation", s.state.Generation, "frame_len", len(frame))
	return ctx, s.state.Generation, id
}

func (s *Shell) run(ctx context.Context, gen uint64, id, frame string) {
	res := s.analyzer.Analyze(ctx, frame)
	s.finish(gen, id, res)
}

// finish moves to Completed if gen is still current.
func (s *Shell) finish(gen uint64, id string, res analysis.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.state.Generation {
		s.logger.Info("discarding stale result", "request_id", id, "generation", gen, "current", s.state.Generation)
		return false
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.state.Loading = false
	s.state.Phase = PhaseCompleted
	s.state.UpdatedAt = time.Now()
	if res.OK() {
		s.state.Result = res.Report
		s.state.Error = ""
		s.state.Retryable = false
		s.logger.Info("analysis applied", "request_id", id, "latency_ms", res.LatencyMs)
	} else {
		s.state.Result = ""
		s.state.Error = res.Text()
		s.state.Retryable = res.Failure.Retryable
		s.logger.Warn("analysis failed", "request_id", id, "kind", res.Failure.Kind, "retryable", res.Failure.Retryable)
	}
	s.publishLocked()
	return true
}

func (s *Shell) publishLocked() {
	snap := s.state
	for _, fn := range s.listeners {
		fn(snap)
	}
}
