// Package station implements the fleet station side of the rover link:
// a websocket hub that rovers connect to, and the uplink client a rover
// runs to reach it. The station watches telemetry from every connected
// rover and can stop, reset, or reconfigure any of them.
package station

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/nav"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

// RoverConnection represents one connected rover.
type RoverConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	// Latest telemetry snapshot, nil until the first report arrives
	Telemetry *protocol.TelemetryData

	mu sync.Mutex
}

// Send sends a message to the rover. The connection mutex serializes
// writers; fiber's websocket connections are not safe for concurrent
// writes.
func (r *RoverConnection) Send(msg *protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return r.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages websocket connections from rovers.
type Hub struct {
	mu     sync.RWMutex
	rovers map[string]*RoverConnection

	// Callbacks
	onTelemetry  func(roverID string, t *protocol.TelemetryData)
	onTransition func(roverID string, tr *protocol.TransitionData)
	onFrame      func(roverID string, f *protocol.FrameData)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
}

// NewHub creates a new rover hub.
func NewHub() *Hub {
	return &Hub{
		rovers: make(map[string]*RoverConnection),
	}
}

// OnTelemetry sets the callback for incoming telemetry snapshots.
func (h *Hub) OnTelemetry(callback func(roverID string, t *protocol.TelemetryData)) {
	h.mu.Lock()
	h.onTelemetry = callback
	h.mu.Unlock()
}

// OnTransition sets the callback for incoming state transitions.
func (h *Hub) OnTransition(callback func(roverID string, tr *protocol.TransitionData)) {
	h.mu.Lock()
	h.onTransition = callback
	h.mu.Unlock()
}

// OnFrame sets the callback for incoming preview frames.
func (h *Hub) OnFrame(callback func(roverID string, f *protocol.FrameData)) {
	h.mu.Lock()
	h.onFrame = callback
	h.mu.Unlock()
}

// RegisterRoutes registers the rover websocket endpoint on a Fiber app.
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/rover", websocket.New(h.handleRover))
	app.Get("/ws/rover/:id", websocket.New(h.handleRover))
}

// handleRover owns one rover connection for its lifetime.
func (h *Hub) handleRover(c *websocket.Conn) {
	roverID := c.Params("id")
	if roverID == "" {
		roverID = generateRoverID()
	}

	rover := &RoverConnection{
		ID:        roverID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	h.mu.Lock()
	h.rovers[roverID] = rover
	count := len(h.rovers)
	h.mu.Unlock()

	log.Info("rover connected", "rover", roverID, "total", count)

	defer func() {
		h.mu.Lock()
		delete(h.rovers, roverID)
		count := len(h.rovers)
		h.mu.Unlock()

		log.Info("rover disconnected", "rover", roverID, "total", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("rover read error", "rover", roverID, "error", err)
			return
		}

		rover.mu.Lock()
		rover.LastSeen = time.Now()
		rover.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(rover, data)
	}
}

// handleMessage processes one incoming message from a rover.
func (h *Hub) handleMessage(rover *RoverConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Warn("unparseable message from rover", "rover", rover.ID, "error", err)
		return
	}

	h.mu.RLock()
	telemetryCb := h.onTelemetry
	transitionCb := h.onTransition
	frameCb := h.onFrame
	h.mu.RUnlock()

	switch msg.Type {
	case protocol.TypeTelemetry:
		t, err := msg.GetTelemetryData()
		if err != nil {
			return
		}
		rover.mu.Lock()
		rover.Telemetry = t
		rover.mu.Unlock()
		if telemetryCb != nil {
			telemetryCb(rover.ID, t)
		}

	case protocol.TypeTransition:
		tr, err := msg.GetTransitionData()
		if err != nil {
			return
		}
		// A newer rover build can report states this station predates.
		if _, err := nav.ParseState(tr.To); err != nil {
			log.Warn("rover reports an unknown state", "rover", rover.ID, "state", tr.To)
		}
		log.Info("rover state change",
			"rover", rover.ID, "from", tr.From, "to", tr.To, "cause", tr.Cause)
		if transitionCb != nil {
			transitionCb(rover.ID, tr)
		}

	case protocol.TypeFrame:
		h.framesReceived.Add(1)
		if frameCb != nil {
			f, err := msg.GetFrameData()
			if err == nil {
				frameCb(rover.ID, f)
			}
		}

	case protocol.TypePing:
		h.sendPong(rover.ID, msg)
	}
}

// SendStop sends an emergency stop command to a rover.
func (h *Hub) SendStop(roverID, reason string) error {
	msg, err := protocol.NewStopMessage(reason)
	if err != nil {
		return err
	}
	return h.sendToRover(roverID, msg)
}

// SendReset sends a reset command, returning the rover to searching.
func (h *Hub) SendReset(roverID, reason string) error {
	msg, err := protocol.NewResetMessage(reason)
	if err != nil {
		return err
	}
	return h.sendToRover(roverID, msg)
}

// SendConfig sends a configuration update to a rover.
func (h *Hub) SendConfig(roverID string, camera *protocol.CameraConfig, follow *protocol.FollowConfig) error {
	msg, err := protocol.NewConfigMessage(camera, follow)
	if err != nil {
		return err
	}
	return h.sendToRover(roverID, msg)
}

// StopAll sends an emergency stop to every connected rover.
func (h *Hub) StopAll(reason string) {
	msg, err := protocol.NewStopMessage(reason)
	if err != nil {
		return
	}
	h.Broadcast(msg)
}

func (h *Hub) sendPong(roverID string, ping *protocol.Message) {
	var id string
	if data, err := ping.GetPingData(); err == nil && data != nil {
		id = data.ID
	}
	msg, err := protocol.NewPongMessage(id, ping.Timestamp, time.Now().UnixMilli())
	if err != nil {
		return
	}
	h.sendToRover(roverID, msg)
}

// sendToRover sends a message to a specific rover.
func (h *Hub) sendToRover(roverID string, msg *protocol.Message) error {
	h.mu.RLock()
	rover, ok := h.rovers[roverID]
	h.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "rover not connected")
	}

	h.messagesSent.Add(1)
	return rover.Send(msg)
}

// Broadcast sends a message to all connected rovers.
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mu.RLock()
	rovers := make([]*RoverConnection, 0, len(h.rovers))
	for _, r := range h.rovers {
		rovers = append(rovers, r)
	}
	h.mu.RUnlock()

	for _, rover := range rovers {
		h.messagesSent.Add(1)
		if err := rover.Send(msg); err != nil {
			log.Warn("broadcast failed", "rover", rover.ID, "error", err)
		}
	}
}

// GetRover returns a rover connection by ID, nil when not connected.
func (h *Hub) GetRover(roverID string) *RoverConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rovers[roverID]
}

// RoverCount returns the number of connected rovers.
func (h *Hub) RoverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rovers)
}

// Stats contains hub statistics.
type Stats struct {
	RoverCount       int    `json:"rover_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() Stats {
	return Stats{
		RoverCount:       h.RoverCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		FramesReceived:   h.framesReceived.Load(),
	}
}

// RoverInfo describes a connected rover for the fleet API.
type RoverInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	State     string    `json:"state,omitempty"`
}

// GetRoverInfos returns info about all connected rovers.
func (h *Hub) GetRoverInfos() []RoverInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]RoverInfo, 0, len(h.rovers))
	for _, r := range h.rovers {
		r.mu.Lock()
		info := RoverInfo{
			ID:        r.ID,
			Connected: r.Connected,
			LastSeen:  r.LastSeen,
		}
		if r.Telemetry != nil {
			info.State = r.Telemetry.State
		}
		r.mu.Unlock()
		infos = append(infos, info)
	}
	return infos
}

// RegisterAPIRoutes registers the fleet management API.
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	rovers := api.Group("/rovers")

	// List connected rovers
	rovers.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"rovers": h.GetRoverInfos(),
			"count":  h.RoverCount(),
		})
	})

	// Hub stats
	rovers.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	// Fleet-wide emergency stop. Registered before the :id routes so
	// "stop" is never taken as a rover ID.
	rovers.Post("/stop", func(c *fiber.Ctx) error {
		h.StopAll("fleet stop")
		return c.JSON(fiber.Map{"status": "sent", "rovers": h.RoverCount()})
	})

	// Latest telemetry for one rover
	rovers.Get("/:id", func(c *fiber.Ctx) error {
		rover := h.GetRover(c.Params("id"))
		if rover == nil {
			return c.Status(404).JSON(fiber.Map{"error": "rover not connected"})
		}
		rover.mu.Lock()
		defer rover.mu.Unlock()
		return c.JSON(fiber.Map{
			"id":        rover.ID,
			"connected": rover.Connected,
			"last_seen": rover.LastSeen,
			"telemetry": rover.Telemetry,
		})
	})

	// Emergency stop one rover
	rovers.Post("/:id/stop", func(c *fiber.Ctx) error {
		if err := h.SendStop(c.Params("id"), "operator stop"); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "sent"})
	})

	// Reset one rover back to searching
	rovers.Post("/:id/reset", func(c *fiber.Ctx) error {
		if err := h.SendReset(c.Params("id"), "operator reset"); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "sent"})
	})

	// Push a configuration update to one rover
	rovers.Post("/:id/config", func(c *fiber.Ctx) error {
		var update protocol.ConfigUpdate
		if err := c.BodyParser(&update); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		if err := h.SendConfig(c.Params("id"), update.Camera, update.Follow); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "sent"})
	})
}

// generateRoverID coins an ID for rovers that connect anonymously.
func generateRoverID() string {
	return "rover-" + time.Now().Format("20060102150405")
}
