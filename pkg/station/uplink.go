package station

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/nav"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

const (
	uplinkReconnectBase = 1 * time.Second
	uplinkReconnectMax  = 30 * time.Second
	uplinkPingPeriod    = 15 * time.Second
)

// Controller is the slice of the navigation machine the uplink drives
// when the station sends a command.
type Controller interface {
	Stop()
	Reset()
}

var _ Controller = (*nav.Machine)(nil)

// Uplink is the rover-side client of the station link. It dials out,
// streams telemetry up, and executes stop, reset, and config commands
// coming back down. Connection loss is survivable: the rover keeps
// driving on its own and the uplink reconnects with backoff.
type Uplink struct {
	url     string
	roverID string

	controller Controller

	// OnConfig is called when the station pushes a configuration
	// update. Set before Connect.
	OnConfig func(*protocol.ConfigUpdate) error

	conn         *websocket.Conn
	connMu       sync.Mutex
	connected    bool
	reconnecting bool

	ctx     context.Context
	cancel  context.CancelFunc
	closeCh chan struct{}
}

// NewUplink creates an uplink to the station at the given ws:// URL.
func NewUplink(url, roverID string, controller Controller) (*Uplink, error) {
	if url == "" {
		return nil, fmt.Errorf("station url is empty")
	}
	if roverID == "" {
		return nil, fmt.Errorf("rover id is empty")
	}
	if controller == nil {
		return nil, fmt.Errorf("controller is nil")
	}

	return &Uplink{
		url:        url,
		roverID:    roverID,
		controller: controller,
		closeCh:    make(chan struct{}),
	}, nil
}

// Connect establishes the connection and starts the read and ping
// loops. The rover ID is appended to the URL path so the station knows
// who dialed in.
func (u *Uplink) Connect(ctx context.Context) error {
	u.ctx, u.cancel = context.WithCancel(ctx)

	if err := u.dial(); err != nil {
		return err
	}

	go u.readLoop()
	go u.pingLoop()
	return nil
}

func (u *Uplink) dial() error {
	u.connMu.Lock()
	defer u.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(u.ctx, u.url+"/"+u.roverID, nil)
	if err != nil {
		return fmt.Errorf("station dial failed: %w", err)
	}

	u.conn = conn
	u.connected = true

	log.Info("station uplink connected", "url", u.url, "rover", u.roverID)
	return nil
}

// SendStatus streams a telemetry snapshot to the station. Send errors
// are swallowed; the read loop notices broken connections and triggers
// the reconnect.
func (u *Uplink) SendStatus(st nav.Status) {
	msg, err := protocol.NewTelemetryMessage(telemetryFromStatus(u.roverID, st))
	if err != nil {
		return
	}
	u.send(msg)
}

// SendTransition reports a state machine transition to the station.
func (u *Uplink) SendTransition(tr nav.Transition) {
	msg, err := protocol.NewTransitionMessage(u.roverID, tr.From.String(), tr.To.String(), tr.Cause)
	if err != nil {
		return
	}
	u.send(msg)
}

// SendFrame forwards a JPEG preview frame to the station.
func (u *Uplink) SendFrame(width, height int, jpeg []byte, frameID uint64) {
	msg, err := protocol.NewFrameMessage(width, height, jpeg, frameID)
	if err != nil {
		return
	}
	u.send(msg)
}

// readLoop consumes station commands until the uplink closes.
func (u *Uplink) readLoop() {
	for {
		select {
		case <-u.ctx.Done():
			return
		case <-u.closeCh:
			return
		default:
		}

		u.connMu.Lock()
		conn := u.conn
		u.connMu.Unlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("station uplink read error", "error", err)
			}
			u.handleDisconnect()
			continue
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("station uplink bad message", "error", err)
			continue
		}

		u.handleMessage(msg)
	}
}

func (u *Uplink) handleMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeStop:
		cmd, _ := msg.GetCommandData()
		reason := ""
		if cmd != nil {
			reason = cmd.Reason
		}
		log.Warn("station commanded stop", "reason", reason)
		u.controller.Stop()

	case protocol.TypeReset:
		log.Info("station commanded reset")
		u.controller.Reset()

	case protocol.TypeConfig:
		if u.OnConfig == nil {
			return
		}
		update, err := msg.GetConfigUpdate()
		if err != nil {
			log.Warn("station sent bad config", "error", err)
			return
		}
		if err := u.OnConfig(update); err != nil {
			log.Warn("station config rejected", "error", err)
		}

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return
		}
		u.send(pong)
	}
}

// pingLoop keeps the station's last-seen clock fresh between telemetry
// sends.
func (u *Uplink) pingLoop() {
	ticker := time.NewTicker(uplinkPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-u.ctx.Done():
			return
		case <-u.closeCh:
			return
		case <-ticker.C:
			if msg, err := protocol.NewPingMessage(uuid.New().String()); err == nil {
				u.send(msg)
			}
		}
	}
}

func (u *Uplink) send(msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		return
	}

	u.connMu.Lock()
	defer u.connMu.Unlock()
	if u.conn == nil {
		return
	}
	u.conn.WriteMessage(websocket.TextMessage, data)
}

func (u *Uplink) handleDisconnect() {
	u.connMu.Lock()
	if u.conn != nil {
		u.conn.Close()
		u.conn = nil
	}
	u.connected = false
	wasReconnecting := u.reconnecting
	u.reconnecting = true
	u.connMu.Unlock()

	if !wasReconnecting {
		go u.reconnectLoop()
	}
}

// reconnectLoop attempts to reconnect with exponential backoff.
func (u *Uplink) reconnectLoop() {
	delay := uplinkReconnectBase

	for {
		select {
		case <-u.ctx.Done():
			return
		case <-u.closeCh:
			return
		default:
		}

		log.Info("station uplink reconnecting", "delay", delay)
		time.Sleep(delay)

		if err := u.dial(); err != nil {
			log.Error("station uplink reconnect failed", "error", err)
			delay *= 2
			if delay > uplinkReconnectMax {
				delay = uplinkReconnectMax
			}
			continue
		}

		u.connMu.Lock()
		u.reconnecting = false
		u.connMu.Unlock()
		return
	}
}

// IsConnected returns true if the uplink is connected.
func (u *Uplink) IsConnected() bool {
	u.connMu.Lock()
	defer u.connMu.Unlock()
	return u.connected
}

// Close terminates the uplink.
func (u *Uplink) Close() error {
	if u.cancel != nil {
		u.cancel()
	}

	select {
	case <-u.closeCh:
	default:
		close(u.closeCh)
	}

	u.connMu.Lock()
	defer u.connMu.Unlock()
	if u.conn != nil {
		u.conn.Close()
		u.conn = nil
	}
	u.connected = false
	return nil
}

// telemetryFromStatus maps a status snapshot onto the wire format.
func telemetryFromStatus(roverID string, st nav.Status) protocol.TelemetryData {
	return protocol.TelemetryData{
		RoverID:         roverID,
		State:           st.State,
		PersonVisible:   st.PersonVisible,
		ObstacleAhead:   st.ObstacleAhead,
		FrontDistanceM:  st.FrontDistanceM,
		PersonDistanceM: st.PersonDistanceM,
		Aligned:         st.Aligned,
		Ready:           st.Ready,
		AvoidPhase:      st.AvoidPhase,
		TurnDirection:   st.TurnDirection,
		LinearMS:        st.LinearMS,
		AngularRadS:     st.AngularRadS,
		Ticks:           st.Ticks,
		Transitions:     st.Transitions,
	}
}
