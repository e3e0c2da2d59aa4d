// Package protocol defines the WebSocket message types for rover communication.
// This package is shared between the rover, the vision bridge, and the
// fleet station.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Rover → Station/Dashboard messages
	TypeTelemetry  MessageType = "telemetry"  // Navigation status snapshot
	TypeTransition MessageType = "transition" // State machine transition event
	TypeFrame      MessageType = "frame"      // Preview video frame

	// Vision bridge → Rover messages
	TypeDetection MessageType = "detection" // Person detection result

	// Station/Dashboard → Rover messages
	TypeStop   MessageType = "stop"   // Emergency stop
	TypeReset  MessageType = "reset"  // Resume searching
	TypeConfig MessageType = "config" // Configuration update

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Rover → Station/Dashboard Message Types
// =============================================================================

// TelemetryData is the navigation status snapshot published every tick.
// It mirrors the state machine status so remote consumers never need the
// rover's internal types.
type TelemetryData struct {
	RoverID         string   `json:"rover_id,omitempty"`
	State           string   `json:"state"`
	PersonVisible   bool     `json:"person_visible"`
	ObstacleAhead   bool     `json:"obstacle_ahead"`
	FrontDistanceM  *float64 `json:"front_distance_m,omitempty"`
	PersonDistanceM float64  `json:"person_distance_m,omitempty"`
	Aligned         bool     `json:"aligned"`
	Ready           bool     `json:"ready"`
	AvoidPhase      string   `json:"avoid_phase,omitempty"`
	TurnDirection   string   `json:"turn_direction,omitempty"`
	LinearMS        float64  `json:"linear_m_s"`
	AngularRadS     float64  `json:"angular_rad_s"`
	Ticks           uint64   `json:"ticks"`
	Transitions     uint64   `json:"transitions"`
}

// TransitionData describes one state machine transition.
type TransitionData struct {
	RoverID string `json:"rover_id,omitempty"`
	From    string `json:"from"`
	To      string `json:"to"`
	Cause   string `json:"cause"`
}

// FrameData contains a preview video frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// =============================================================================
// Vision Bridge → Rover Message Types
// =============================================================================

// DetectionData contains one person detection in pixel coordinates.
type DetectionData struct {
	XMin        int     `json:"x_min"`
	YMin        int     `json:"y_min"`
	XMax        int     `json:"x_max"`
	YMax        int     `json:"y_max"`
	Confidence  float64 `json:"confidence"`
	FrameWidth  int     `json:"frame_width"`
	FrameHeight int     `json:"frame_height"`
}

// =============================================================================
// Station/Dashboard → Rover Message Types
// =============================================================================

// CommandData carries an operator command such as stop or reset.
type CommandData struct {
	Reason string `json:"reason,omitempty"`
}

// ConfigUpdate contains configuration changes
type ConfigUpdate struct {
	Camera *CameraConfig `json:"camera,omitempty"`
	Follow *FollowConfig `json:"follow,omitempty"`
}

// CameraConfig contains camera settings
type CameraConfig struct {
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Framerate int    `json:"framerate,omitempty"`
	Quality   int    `json:"quality,omitempty"`
	Preset    string `json:"preset,omitempty"` // "default", "lowres", "highres"
}

// FollowConfig contains person following tuning
type FollowConfig struct {
	TargetDistanceM float64 `json:"target_distance_m,omitempty"`
	MaxLinearSpeed  float64 `json:"max_linear_speed,omitempty"`
	MaxAngularSpeed float64 `json:"max_angular_speed,omitempty"`
	Preset          string  `json:"preset,omitempty"` // "default", "slow", "aggressive"
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
