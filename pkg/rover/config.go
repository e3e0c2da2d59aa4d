// Package rover assembles the person-following rover application:
// depth perception, person detection, the navigation state machine, the
// drivetrain, telemetry recording, the onboard dashboard, and the fleet
// station uplink.
package rover

import (
	"fmt"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/pkg/follow"
)

// Config holds all configuration for the rover application.
// Flag parsing is done in cmd/rover/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// LogLevel sets the structured log level: debug, info, warn, error.
	LogLevel string

	// RoverID identifies this rover to the fleet station.
	RoverID string

	// TickHz is the control loop rate.
	TickHz int

	// Depth camera.
	CameraIndex   int    // depth camera device index
	DepthFixtures string // recorded depth frames; replaces the device when set

	// Person detection.
	VisionIndex int    // color camera device for onboard detection
	BridgeURL   string // external vision bridge; overrides onboard detection

	// Drivetrain. Exactly one backend is chosen: Simulate wins, then an
	// HTTP daemon when DrivetrainURL is set, else VESC serial.
	Simulate      bool
	DrivetrainURL string
	VESCPort      string // explicit serial port, empty means auto-detect

	// Integrations.
	DashboardPort string
	StationURL    string // empty disables the uplink
	DBPath        string // empty disables telemetry recording

	// FollowPreset selects the initial tuning: default, slow, aggressive.
	FollowPreset string
}

// DefaultConfig returns sensible defaults for the rover.
func DefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		RoverID:       "rover-01",
		TickHz:        config.DefaultTickHz,
		DashboardPort: config.DefaultDashboardPort,
		DBPath:        config.DefaultDBPath,
		FollowPreset:  "default",
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.RoverID == "" {
		return fmt.Errorf("rover id must not be empty")
	}
	if c.TickHz < 1 || c.TickHz > 100 {
		return fmt.Errorf("tick rate must be 1-100 Hz, got %d", c.TickHz)
	}
	if c.CameraIndex < 0 {
		return fmt.Errorf("camera index must not be negative, got %d", c.CameraIndex)
	}
	if c.VisionIndex < 0 {
		return fmt.Errorf("vision index must not be negative, got %d", c.VisionIndex)
	}
	switch c.FollowPreset {
	case "default", "slow", "aggressive":
	default:
		return fmt.Errorf("unknown follow preset %q", c.FollowPreset)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// FollowConfig resolves the preset into follower tuning.
func (c Config) FollowConfig() follow.Config {
	switch c.FollowPreset {
	case "slow":
		return follow.SlowConfig()
	case "aggressive":
		return follow.AggressiveConfig()
	default:
		return follow.DefaultConfig()
	}
}
