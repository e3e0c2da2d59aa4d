package vehicle

import "fmt"

// Limits holds the physical drivetrain parameters shared by every
// actuator backend.
type Limits struct {
	WheelbaseM      float64 // Distance between the wheel centerlines
	MaxLinearSpeed  float64 // m/s, also the duty-cycle normalization base
	MaxAngularSpeed float64 // rad/s
}

// DefaultLimits returns the drivetrain limits of the stock rover chassis
func DefaultLimits() Limits {
	return Limits{
		WheelbaseM:      0.25,
		MaxLinearSpeed:  1.0,
		MaxAngularSpeed: 2.0,
	}
}

// Validate checks the limits, returning a descriptive error for the
// first invalid parameter found.
func (l Limits) Validate() error {
	if l.WheelbaseM <= 0 {
		return fmt.Errorf("wheelbase must be positive, got %v", l.WheelbaseM)
	}
	if l.MaxLinearSpeed <= 0 {
		return fmt.Errorf("max linear speed must be positive, got %v", l.MaxLinearSpeed)
	}
	if l.MaxAngularSpeed <= 0 {
		return fmt.Errorf("max angular speed must be positive, got %v", l.MaxAngularSpeed)
	}
	return nil
}

// Clamp limits a velocity command to the drivetrain envelope.
func (l Limits) Clamp(linearMS, angularRadS float64) (float64, float64) {
	return clamp(linearMS, -l.MaxLinearSpeed, l.MaxLinearSpeed),
		clamp(angularRadS, -l.MaxAngularSpeed, l.MaxAngularSpeed)
}

// WheelSpeeds converts a clamped (linear, angular) command to left/right
// wheel speeds in m/s. Positive angular is a right turn, so the left
// wheel runs faster:
//
//	v_left  = v + w * wheelbase / 2
//	v_right = v - w * wheelbase / 2
func (l Limits) WheelSpeeds(linearMS, angularRadS float64) (left, right float64) {
	left = linearMS + angularRadS*l.WheelbaseM/2.0
	right = linearMS - angularRadS*l.WheelbaseM/2.0
	return left, right
}

// Duty normalizes a wheel speed to a VESC duty cycle in [-1, 1].
func (l Limits) Duty(speedMS float64) float64 {
	return clamp(speedMS/l.MaxLinearSpeed, -1.0, 1.0)
}

// directionLabel names a command for simulated output. Thresholds keep
// tiny corrections from flapping the label.
func directionLabel(linearMS, angularRadS float64) string {
	switch {
	case angularRadS > 0.1:
		return "RIGHT TURN"
	case angularRadS < -0.1:
		return "LEFT TURN"
	case linearMS > 0.1:
		return "FORWARD"
	case linearMS < -0.1:
		return "BACKWARD"
	default:
		return "STOP"
	}
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
