package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/telemetry"
)

// configView is the GET /api/config response body.
type configView struct {
	Camera       *protocol.CameraConfig `json:"camera,omitempty"`
	Capabilities map[string]interface{} `json:"capabilities,omitempty"`
	Follow       protocol.FollowConfig  `json:"follow"`
}

// runDetail is the GET /api/runs/:id response body.
type runDetail struct {
	Run         *telemetry.Run `json:"run"`
	Ticks       int            `json:"ticks"`
	StateCounts map[string]int `json:"state_counts"`
	CauseCounts map[string]int `json:"cause_counts"`
}

// handleStatus returns the current navigation status snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.controller.Status())
}

// handleStop latches the machine into its stopped state. Only a reset
// releases it.
func (s *Server) handleStop(c *fiber.Ctx) error {
	log.Info("manual stop requested via dashboard")
	s.controller.Stop()
	s.AddEvent("control", "manual stop")
	return c.JSON(s.controller.Status())
}

// handleReset returns the machine to searching.
func (s *Server) handleReset(c *fiber.Ctx) error {
	log.Info("reset requested via dashboard")
	s.controller.Reset()
	s.AddEvent("control", "reset to search")
	return c.JSON(s.controller.Status())
}

// handleGetConfig returns the live camera and follow configuration.
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.configSnapshot())
}

// handleSetConfig applies a partial configuration update.
func (s *Server) handleSetConfig(c *fiber.Ctx) error {
	var update protocol.ConfigUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid config payload",
		})
	}

	if err := s.ApplyConfig(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(s.configSnapshot())
}

// handleListRuns returns recorded runs, newest first.
func (s *Server) handleListRuns(c *fiber.Ctx) error {
	if s.Store == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "run history is not available",
		})
	}

	runs, err := s.Store.Runs().List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(runs)
}

// handleGetRun returns one run with its tick and transition summaries.
func (s *Server) handleGetRun(c *fiber.Ctx) error {
	if s.Store == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "run history is not available",
		})
	}

	id := c.Params("id")
	run, err := s.Store.Runs().GetByID(id)
	if err == telemetry.ErrNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "run not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ticks, err := s.Store.Ticks().CountByRun(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	states, err := s.Store.Ticks().StateCounts(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	causes, err := s.Store.Transitions().CountByCause(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(runDetail{
		Run:         run,
		Ticks:       ticks,
		StateCounts: states,
		CauseCounts: causes,
	})
}

// handleTelemetryWS serves the live telemetry feed. The new client gets
// an immediate status snapshot so the dashboard renders before the next
// tick arrives.
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	client := hub.NewClient(s.telemetryHub, c)

	if msg, err := protocol.NewMessage(protocol.TypeTelemetry, s.controller.Status()); err == nil {
		if data, err := msg.Bytes(); err == nil {
			client.Send(hub.NewJSONMessage(data))
		}
	}

	client.Run()
}

// handleCameraWS serves the JPEG preview frame feed.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.frameHub, c)
	client.Run()
}

// handleEvents returns the buffered event feed. New entries stream over
// /ws/events; this route backfills history for a fresh dashboard.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	return c.JSON(s.Events())
}

// handleEventsWS streams new event entries as they are added.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.eventHub, c)
	client.Run()
}

func (s *Server) configSnapshot() configView {
	view := configView{}

	if s.Cameras != nil {
		cfg := s.Cameras.GetConfig()
		view.Camera = &protocol.CameraConfig{
			Width:     cfg.Width,
			Height:    cfg.Height,
			Framerate: cfg.Framerate,
			Quality:   cfg.Quality,
		}
		view.Capabilities = camera.Capabilities()
	}

	fcfg := s.FollowConfig()
	view.Follow = protocol.FollowConfig{
		TargetDistanceM: fcfg.TargetDistanceM,
		MaxLinearSpeed:  fcfg.MaxLinearSpeed,
		MaxAngularSpeed: fcfg.MaxAngularSpeed,
	}

	return view
}
