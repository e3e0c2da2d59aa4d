package follow

import "fmt"

// Config holds all tunable parameters for person following
type Config struct {
	// Goal
	TargetDistanceM float64 // Stand-off distance from the person (meters)

	// Limits
	MaxLinearSpeed  float64 // Maximum forward speed (m/s)
	MaxAngularSpeed float64 // Maximum turn rate (rad/s)

	// Proportional gains
	KAngle  float64 // Angular gain on normalized horizontal error
	KLinear float64 // Linear gain on distance error (meters)

	// Thresholds
	AngleThreshold     float64 // Aligned when |normalized error| is below this
	DistanceThresholdM float64 // Close enough when within this of the target (meters)
}

// DefaultConfig returns the recommended following configuration
func DefaultConfig() Config {
	return Config{
		TargetDistanceM: 1.0, // Conversational distance

		MaxLinearSpeed:  0.5, // Walking-pace ceiling
		MaxAngularSpeed: 1.0,

		KAngle:  1.0, // Full-frame offset maps to max turn rate
		KLinear: 0.5, // 1m of distance error maps to 0.5 m/s

		AngleThreshold:     0.1, // ~10% of half frame width
		DistanceThresholdM: 0.2,
	}
}

// SlowConfig returns a configuration for gentle, cautious following
func SlowConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxLinearSpeed = 0.3
	cfg.MaxAngularSpeed = 0.6
	cfg.KAngle = 0.7
	cfg.KLinear = 0.3
	return cfg
}

// AggressiveConfig returns a configuration for fast, responsive following
func AggressiveConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxLinearSpeed = 0.8
	cfg.MaxAngularSpeed = 1.5
	cfg.KAngle = 1.5
	cfg.KLinear = 0.8
	cfg.AngleThreshold = 0.15 // Advance sooner
	return cfg
}

// Validate checks the configuration, returning a descriptive error for the
// first invalid parameter found.
func (c Config) Validate() error {
	if c.TargetDistanceM <= 0 {
		return fmt.Errorf("target distance must be positive, got %v", c.TargetDistanceM)
	}
	if c.MaxLinearSpeed <= 0 {
		return fmt.Errorf("max linear speed must be positive, got %v", c.MaxLinearSpeed)
	}
	if c.MaxAngularSpeed <= 0 {
		return fmt.Errorf("max angular speed must be positive, got %v", c.MaxAngularSpeed)
	}
	if c.KAngle <= 0 {
		return fmt.Errorf("angular gain must be positive, got %v", c.KAngle)
	}
	if c.KLinear <= 0 {
		return fmt.Errorf("linear gain must be positive, got %v", c.KLinear)
	}
	if c.AngleThreshold <= 0 || c.AngleThreshold > 1 {
		return fmt.Errorf("angle threshold must be in (0, 1], got %v", c.AngleThreshold)
	}
	if c.DistanceThresholdM <= 0 {
		return fmt.Errorf("distance threshold must be positive, got %v", c.DistanceThresholdM)
	}
	return nil
}
