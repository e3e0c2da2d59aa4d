// Package web serves the rover's onboard dashboard: a small REST API
// for control and tuning, plus websocket feeds for live telemetry and
// camera frames.
package web

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/follow"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/nav"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/telemetry"
)

// maxEvents bounds the dashboard event buffer.
const maxEvents = 500

// EventEntry is one line in the dashboard event feed: transitions,
// manual commands, sensor dropouts.
type EventEntry struct {
	Time    string `json:"time"`
	Kind    string `json:"kind"` // transition, control, sensor
	Message string `json:"message"`
}

// Controller is the slice of the navigation machine the dashboard
// needs: a status snapshot plus the two manual commands.
type Controller interface {
	Status() nav.Status
	Stop()
	Reset()
}

var _ Controller = (*nav.Machine)(nil)

// Server is the rover's onboard dashboard server.
type Server struct {
	app  *fiber.App
	port string

	controller Controller

	// Cameras, when set, backs the camera section of the config API.
	// Set before Start.
	Cameras *camera.Manager

	// Store, when set, backs the run history API. Set before Start.
	Store *telemetry.Store

	// OnFollowConfig is called with the updated tuning after a config
	// request changes it. The control loop swaps its follower in
	// response. Set before Start.
	OnFollowConfig func(follow.Config) error

	followMu  sync.RWMutex
	followCfg follow.Config

	// Event buffer (last maxEvents entries)
	events   []EventEntry
	eventsMu sync.RWMutex

	// Hubs for websocket broadcast, one per feed
	telemetryHub *hub.Hub
	frameHub     *hub.Hub
	eventHub     *hub.Hub
}

// NewServer creates a dashboard server. followCfg seeds the tuning
// reported and edited through the config API; pass the same config the
// control loop starts with.
func NewServer(port string, controller Controller, followCfg follow.Config) *Server {
	s := &Server{
		port:         port,
		controller:   controller,
		followCfg:    followCfg,
		events:       make([]EventEntry, 0, maxEvents),
		telemetryHub: hub.New("telemetry"),
		frameHub:     hub.New("camera"),
		eventHub:     hub.New("events"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Rover Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static dashboard assets
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/stop", s.handleStop)
	api.Post("/reset", s.handleReset)
	api.Get("/config", s.handleGetConfig)
	api.Post("/config", s.handleSetConfig)
	api.Get("/runs", s.handleListRuns)
	api.Get("/runs/:id", s.handleGetRun)
	api.Get("/events", s.handleEvents)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket feeds
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Start starts the dashboard server and blocks until it shuts down.
func (s *Server) Start() error {
	log.Info("dashboard listening", "url", "http://localhost:"+s.port)

	go s.telemetryHub.Run()
	go s.frameHub.Run()
	go s.eventHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the dashboard server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server stopped", "error", err)
		}
	}()
}

// PublishStatus broadcasts a telemetry snapshot to dashboard clients.
// The control loop calls this every tick; slow viewers miss frames
// rather than backing up the loop.
func (s *Server) PublishStatus(st nav.Status) {
	msg, err := protocol.NewMessage(protocol.TypeTelemetry, st)
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	s.telemetryHub.Broadcast(hub.NewJSONMessage(data))
}

// PublishTransition broadcasts a state machine transition event.
func (s *Server) PublishTransition(tr nav.Transition) {
	msg, err := protocol.NewTransitionMessage("", tr.From.String(), tr.To.String(), tr.Cause)
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	s.telemetryHub.Broadcast(hub.NewJSONMessage(data))
}

// PublishFrame broadcasts a JPEG preview frame to camera feed clients.
func (s *Server) PublishFrame(jpeg []byte) {
	s.frameHub.BroadcastBinary(jpeg)
}

// AddEvent appends an entry to the dashboard event feed and broadcasts
// it to event clients. The buffer keeps the last maxEvents entries.
func (s *Server) AddEvent(kind, message string) {
	entry := EventEntry{
		Time:    time.Now().Format("15:04:05"),
		Kind:    kind,
		Message: message,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, entry)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	s.eventHub.BroadcastJSON(entry)
}

// Events returns a copy of the buffered event feed, oldest first.
func (s *Server) Events() []EventEntry {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	out := make([]EventEntry, len(s.events))
	copy(out, s.events)
	return out
}

// ApplyConfig applies a configuration update from the dashboard or the
// fleet station. Camera changes go through the camera manager; follow
// changes are validated, stored, and handed to OnFollowConfig.
func (s *Server) ApplyConfig(update *protocol.ConfigUpdate) error {
	if update == nil {
		return nil
	}

	if update.Camera != nil {
		if s.Cameras == nil {
			return fmt.Errorf("camera configuration is not available")
		}
		if err := s.Cameras.UpdateConfig(cameraUpdateMap(update.Camera)); err != nil {
			return fmt.Errorf("camera config: %w", err)
		}
	}

	if update.Follow != nil {
		cfg, err := s.mergeFollow(update.Follow)
		if err != nil {
			return fmt.Errorf("follow config: %w", err)
		}
		if s.OnFollowConfig != nil {
			if err := s.OnFollowConfig(cfg); err != nil {
				return fmt.Errorf("follow config: %w", err)
			}
		}
		s.followMu.Lock()
		s.followCfg = cfg
		s.followMu.Unlock()
		log.Info("follow tuning updated",
			"target_m", cfg.TargetDistanceM,
			"max_linear", cfg.MaxLinearSpeed,
			"max_angular", cfg.MaxAngularSpeed)
	}

	return nil
}

// FollowConfig returns the tuning currently reported by the config API.
func (s *Server) FollowConfig() follow.Config {
	s.followMu.RLock()
	defer s.followMu.RUnlock()
	return s.followCfg
}

// ClientCount returns the number of connected telemetry viewers.
func (s *Server) ClientCount() int {
	return s.telemetryHub.ClientCount()
}

// Shutdown gracefully stops the dashboard server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// mergeFollow resolves a follow config request against the current
// tuning: an optional preset first, then individual field overrides.
func (s *Server) mergeFollow(f *protocol.FollowConfig) (follow.Config, error) {
	s.followMu.RLock()
	cfg := s.followCfg
	s.followMu.RUnlock()

	if f.Preset != "" {
		switch f.Preset {
		case "default":
			cfg = follow.DefaultConfig()
		case "slow":
			cfg = follow.SlowConfig()
		case "aggressive":
			cfg = follow.AggressiveConfig()
		default:
			return cfg, fmt.Errorf("unknown preset %q", f.Preset)
		}
	}

	if f.TargetDistanceM > 0 {
		cfg.TargetDistanceM = f.TargetDistanceM
	}
	if f.MaxLinearSpeed > 0 {
		cfg.MaxLinearSpeed = f.MaxLinearSpeed
	}
	if f.MaxAngularSpeed > 0 {
		cfg.MaxAngularSpeed = f.MaxAngularSpeed
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// cameraUpdateMap translates the typed wire format into the partial
// update map the camera manager consumes. Zero values mean "unchanged".
func cameraUpdateMap(c *protocol.CameraConfig) map[string]interface{} {
	m := make(map[string]interface{})
	if c.Preset != "" {
		m["preset"] = c.Preset
	}
	if c.Width > 0 {
		m["width"] = c.Width
	}
	if c.Height > 0 {
		m["height"] = c.Height
	}
	if c.Framerate > 0 {
		m["framerate"] = c.Framerate
	}
	if c.Quality > 0 {
		m["quality"] = c.Quality
	}
	return m
}
