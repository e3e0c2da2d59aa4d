package nav

import (
	"fmt"
	"time"
)

// Config holds all tunable parameters for the navigation machine
type Config struct {
	// Search
	SearchAngularSpeed float64 // Rotation rate while looking for a person (rad/s)

	// Avoidance phase durations
	StopDuration time.Duration // Settle to a standstill before scanning
	ScanDuration time.Duration // Sample left/right depth while stationary
	TurnDuration time.Duration // Open-loop turn toward the open side

	// Avoidance turn rate (rad/s)
	TurnAngularSpeed float64
}

// DefaultConfig returns the recommended navigation configuration
func DefaultConfig() Config {
	return Config{
		SearchAngularSpeed: 0.3, // Slow enough for the detector to keep up

		StopDuration: 300 * time.Millisecond,
		ScanDuration: 500 * time.Millisecond,
		TurnDuration: 1 * time.Second,

		TurnAngularSpeed: 0.5,
	}
}

// Validate checks the configuration, returning a descriptive error for the
// first invalid parameter found.
func (c Config) Validate() error {
	if c.SearchAngularSpeed <= 0 {
		return fmt.Errorf("search angular speed must be positive, got %v", c.SearchAngularSpeed)
	}
	if c.StopDuration <= 0 {
		return fmt.Errorf("stop duration must be positive, got %v", c.StopDuration)
	}
	if c.ScanDuration <= 0 {
		return fmt.Errorf("scan duration must be positive, got %v", c.ScanDuration)
	}
	if c.TurnDuration <= 0 {
		return fmt.Errorf("turn duration must be positive, got %v", c.TurnDuration)
	}
	if c.TurnAngularSpeed <= 0 {
		return fmt.Errorf("turn angular speed must be positive, got %v", c.TurnAngularSpeed)
	}
	return nil
}
