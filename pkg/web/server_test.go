package web

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-palette/pkg/analysis"
	"github.com/teslashibe/go-palette/pkg/camera"
	"github.com/teslashibe/go-palette/pkg/shell"
)

type analyzerFunc func(ctx context.Context, frame string) analysis.Result

func (f analyzerFunc) Analyze(ctx context.Context, frame string) analysis.Result {
	return f(ctx, frame)
}

func echoAnalyzer() analyzerFunc {
	return func(_ context.Context, frame string) analysis.Result {
		if !strings.HasPrefix(frame, "data:") {
			return analysis.Result{Failure: &analysis.Failure{
				Kind:    analysis.KindFormat,
				Message: "Invalid captured frame: missing data URL delimiter.",
			}}
		}
		return analysis.Result{Report: "Season: True Autumn"}
	}
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *shell.Shell) {
	t.Helper()
	sh := shell.New(echoAnalyzer())
	t.Cleanup(sh.Close)
	return NewServer("0", sh, opts...), sh
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)

	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp, out
}

func waitCompleted(t *testing.T, sh *shell.Shell) shell.State {
	t.Helper()
	var st shell.State
	require.Eventually(t, func() bool {
		st = sh.State()
		return st.Phase == shell.PhaseCompleted
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t)
	resp, err := s.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "getUserMedia")
	assert.Contains(t, string(body), "Analyzing...")
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	resp, body := doJSON(t, s, "GET", "/health", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestInitialState(t *testing.T) {
	s, _ := newTestServer(t)
	resp, body := doJSON(t, s, "GET", "/api/state", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "idle", body["phase"])
	assert.Equal(t, false, body["loading"])
}

func TestCaptureUpload(t *testing.T) {
	s, sh := newTestServer(t)

	resp, body := doJSON(t, s, "POST", "/api/capture", `{"image":"data:image/jpeg;base64,AAAA"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id, _ := body["request_id"].(string)
	require.NotEmpty(t, id)

	st := waitCompleted(t, sh)
	assert.Equal(t, id, st.RequestID)
	assert.Equal(t, "Season: True Autumn", st.Result)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", st.Frame)
}

func TestCaptureMalformedFrameSurfacesError(t *testing.T) {
	s, sh := newTestServer(t)

	resp, _ := doJSON(t, s, "POST", "/api/capture", `{"image":"not-a-data-url"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	st := waitCompleted(t, sh)
	assert.Empty(t, st.Result)
	assert.Equal(t, "Invalid captured frame: missing data URL delimiter.", st.Error)
}

func TestCaptureWithoutFrame(t *testing.T) {
	s, sh := newTestServer(t)

	resp, body := doJSON(t, s, "POST", "/api/capture", `{"image":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	resp, _ = doJSON(t, s, "POST", "/api/capture", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	st := sh.State()
	assert.Equal(t, shell.PhaseIdle, st.Phase)
	assert.False(t, st.Loading)
}

func TestCaptureDeviceUnavailable(t *testing.T) {
	s, _ := newTestServer(t)
	resp, body := doJSON(t, s, "POST", "/api/capture/device", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body["error"], "capture unavailable")
}

func TestCaptureDevice(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.Black)
	mgr := camera.NewManager(camera.DefaultConfig())

	s, sh := newTestServer(t, WithDevice(camera.NewStill(img, mgr)), WithCameraManager(mgr))

	resp, _ := doJSON(t, s, "POST", "/api/capture/device", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	st := waitCompleted(t, sh)
	assert.True(t, strings.HasPrefix(st.Frame, "data:image/jpeg;base64,"))
	assert.Equal(t, "Season: True Autumn", st.Result)
}

func TestCameraConfig(t *testing.T) {
	mgr := camera.NewManager(camera.DefaultConfig())
	s, _ := newTestServer(t, WithCameraManager(mgr))

	resp, body := doJSON(t, s, "GET", "/api/camera", "")
	require.Equal(t, 200, resp.StatusCode)
	cfg := body["config"].(map[string]any)
	assert.Equal(t, float64(320), cfg["width"])

	resp, _ = doJSON(t, s, "PUT", "/api/camera", `{"preset":"vga"}`)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 640, mgr.GetConfig().Width)

	resp, _ = doJSON(t, s, "PUT", "/api/camera", `{"width":5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 640, mgr.GetConfig().Width)
}

func TestCameraConfigWithoutManager(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := doJSON(t, s, "GET", "/api/camera", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWSRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := doJSON(t, s, "GET", "/ws/state", "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestStateStream(t *testing.T) {
	s, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})

	addr := ln.Addr().String()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/state", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first shell.State
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, shell.PhaseIdle, first.Phase)

	resp, err := http.Post("http://"+addr+"/api/capture", "application/json",
		strings.NewReader(`{"image":"data:image/jpeg;base64,AAAA"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var phases []shell.Phase
	for {
		var st shell.State
		require.NoError(t, conn.ReadJSON(&st))
		if st.Phase == shell.PhaseIdle {
			// seed snapshot may be replayed and queued
			continue
		}
		phases = append(phases, st.Phase)
		if st.Phase == shell.PhaseCompleted {
			assert.Equal(t, "Season: True Autumn", st.Result)
			assert.False(t, st.Loading)
			break
		}
	}
	assert.Equal(t, []shell.Phase{shell.PhaseCapturing, shell.PhaseCompleted}, phases)
}
