package locate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

const (
	bridgeReconnectBase = 1 * time.Second
	bridgeReconnectMax  = 30 * time.Second
)

// Bridge receives person detections pushed by a companion vision service
// over WebSocket. Useful when detection runs on a box with more compute
// than the rover's Pi.
type Bridge struct {
	url        string
	staleAfter time.Duration

	conn         *websocket.Conn
	connMu       sync.Mutex
	connected    bool
	reconnecting bool

	latest  *Person
	seenAt  time.Time
	stateMu sync.RWMutex

	// Callbacks
	OnConnected  func()
	OnDisconnect func()

	now     func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	closeCh chan struct{}
}

var _ Locator = (*Bridge)(nil)

// NewBridge creates a bridge locator for the given ws:// URL.
// Sightings older than staleAfter are treated as person-lost.
func NewBridge(url string, staleAfter time.Duration) (*Bridge, error) {
	if url == "" {
		return nil, fmt.Errorf("bridge url is empty")
	}
	if staleAfter <= 0 {
		return nil, fmt.Errorf("stale window must be positive, got %v", staleAfter)
	}

	return &Bridge{
		url:        url,
		staleAfter: staleAfter,
		now:        time.Now,
		closeCh:    make(chan struct{}),
	}, nil
}

// Connect establishes the WebSocket connection and starts the read loop.
func (b *Bridge) Connect(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	if err := b.dial(); err != nil {
		return err
	}

	go b.readLoop()
	return nil
}

func (b *Bridge) dial() error {
	b.connMu.Lock()
	defer b.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(b.ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("vision bridge dial failed: %w", err)
	}

	b.conn = conn
	b.connected = true

	log.Info("vision bridge connected", "url", b.url)
	if b.OnConnected != nil {
		b.OnConnected()
	}
	return nil
}

// readLoop consumes detection messages until the bridge closes.
func (b *Bridge) readLoop() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.closeCh:
			return
		default:
		}

		b.connMu.Lock()
		conn := b.conn
		b.connMu.Unlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("vision bridge read error", "error", err)
			}
			b.handleDisconnect()
			continue
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("vision bridge bad message", "error", err)
			continue
		}

		b.handleMessage(msg)
	}
}

func (b *Bridge) handleMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeDetection:
		det, err := msg.GetDetectionData()
		if err != nil {
			log.Warn("vision bridge bad detection", "error", err)
			return
		}
		b.handleDetection(*det)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, b.now().UnixMilli())
		if err != nil {
			return
		}
		b.send(pong)
	}
}

func (b *Bridge) handleDetection(det protocol.DetectionData) {
	person := personFromDetection(det)
	if person == nil {
		return
	}

	b.stateMu.Lock()
	b.latest = person
	b.seenAt = b.now()
	b.stateMu.Unlock()
}

func (b *Bridge) send(msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		return
	}

	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.conn == nil {
		return
	}
	b.conn.WriteMessage(websocket.TextMessage, data)
}

// handleDisconnect handles connection loss and triggers reconnection.
func (b *Bridge) handleDisconnect() {
	b.connMu.Lock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.connected = false
	wasReconnecting := b.reconnecting
	b.reconnecting = true
	b.connMu.Unlock()

	if b.OnDisconnect != nil {
		b.OnDisconnect()
	}

	// Only start one reconnection goroutine
	if !wasReconnecting {
		go b.reconnectLoop()
	}
}

// reconnectLoop attempts to reconnect with exponential backoff.
func (b *Bridge) reconnectLoop() {
	delay := bridgeReconnectBase

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.closeCh:
			return
		default:
		}

		log.Info("vision bridge reconnecting", "delay", delay)
		time.Sleep(delay)

		if err := b.dial(); err != nil {
			log.Error("vision bridge reconnect failed", "error", err)
			delay *= 2
			if delay > bridgeReconnectMax {
				delay = bridgeReconnectMax
			}
			continue
		}

		b.connMu.Lock()
		b.reconnecting = false
		b.connMu.Unlock()
		return
	}
}

// Person returns the latest sighting if it is still fresh.
// A stale or missing sighting reads as nobody visible, which steers
// the navigation loop back to searching rather than chasing old data.
func (b *Bridge) Person() *Person {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	if b.latest == nil || b.now().Sub(b.seenAt) > b.staleAfter {
		return nil
	}
	p := *b.latest
	return &p
}

// IsConnected returns true if the WebSocket is connected.
func (b *Bridge) IsConnected() bool {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return b.connected
}

// Close terminates the connection and stops the read loop.
func (b *Bridge) Close() error {
	if b.cancel != nil {
		b.cancel()
	}

	select {
	case <-b.closeCh:
	default:
		close(b.closeCh)
	}

	b.connMu.Lock()
	defer b.connMu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.connected = false
	return nil
}
