package protocol

import (
	"encoding/base64"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewTelemetryMessage creates a telemetry message
func NewTelemetryMessage(data TelemetryData) (*Message, error) {
	return NewMessage(TypeTelemetry, data)
}

// NewTransitionMessage creates a transition event message
func NewTransitionMessage(roverID, from, to, cause string) (*Message, error) {
	return NewMessage(TypeTransition, TransitionData{
		RoverID: roverID,
		From:    from,
		To:      to,
		Cause:   cause,
	})
}

// NewFrameMessage creates a frame message from raw JPEG data
func NewFrameMessage(width, height int, jpegData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:   width,
		Height:  height,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString(jpegData),
		FrameID: frameID,
	})
}

// NewDetectionMessage creates a person detection message
func NewDetectionMessage(det DetectionData) (*Message, error) {
	return NewMessage(TypeDetection, det)
}

// NewStopMessage creates an emergency stop command
func NewStopMessage(reason string) (*Message, error) {
	return NewMessage(TypeStop, CommandData{Reason: reason})
}

// NewResetMessage creates a reset command
func NewResetMessage(reason string) (*Message, error) {
	return NewMessage(TypeReset, CommandData{Reason: reason})
}

// NewConfigMessage creates a configuration update message
func NewConfigMessage(camera *CameraConfig, follow *FollowConfig) (*Message, error) {
	return NewMessage(TypeConfig, ConfigUpdate{
		Camera: camera,
		Follow: follow,
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetTelemetryData extracts telemetry from a message
func (m *Message) GetTelemetryData() (*TelemetryData, error) {
	var data TelemetryData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTransitionData extracts a transition event from a message
func (m *Message) GetTransitionData() (*TransitionData, error) {
	var data TransitionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetDetectionData extracts a person detection from a message
func (m *Message) GetDetectionData() (*DetectionData, error) {
	var data DetectionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCommandData extracts an operator command from a message
func (m *Message) GetCommandData() (*CommandData, error) {
	var data CommandData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetConfigUpdate extracts config update from a message
func (m *Message) GetConfigUpdate() (*ConfigUpdate, error) {
	var data ConfigUpdate
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
