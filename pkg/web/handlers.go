package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-palette/pkg/camera"
	"github.com/teslashibe/go-palette/pkg/hub"
)

// CaptureRequest is the body of POST /api/capture.
type CaptureRequest struct {
	// Image is the frame as a data URL, e.g. from canvas.toDataURL.
	Image string `json:"image"`
}

// CaptureResponse is returned when an analysis has started.
type CaptureResponse struct {
	RequestID string `json:"request_id"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"clients": s.stateHub.ClientCount(),
	})
}

// handleState returns the current shell state
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.shell.State())
}

// handleCapture starts an analysis of a browser-captured frame
func (s *Server) handleCapture(c *fiber.Ctx) error {
	var req CaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id, err := s.shell.CaptureAsync(c.UserContext(), camera.Upload(req.Image))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(CaptureResponse{RequestID: id})
}

// handleCaptureDevice starts an analysis of a frame from the server camera
func (s *Server) handleCaptureDevice(c *fiber.Ctx) error {
	if s.device == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, camera.ErrCaptureUnavailable.Error())
	}

	id, err := s.shell.CaptureAsync(c.UserContext(), s.device)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(CaptureResponse{RequestID: id})
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	s.shell.Cancel()
	return c.JSON(s.shell.State())
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera config not available")
	}
	return c.JSON(fiber.Map{
		"config":  s.cameras.ConfigMap(),
		"presets": camera.PresetNames(),
	})
}

func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera config not available")
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.cameras.UpdateConfig(params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"config": s.cameras.ConfigMap()})
}

// handleStateWS streams state snapshots until the client disconnects
func (s *Server) handleStateWS(c *websocket.Conn) {
	client := hub.NewClient(s.stateHub, c)
	if client == nil {
		return
	}
	client.Run()
}
