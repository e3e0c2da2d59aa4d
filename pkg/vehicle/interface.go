// Package vehicle drives the rover's differential drivetrain. Three
// backends implement the same Actuator interface: VESC serial, an HTTP
// drivetrain daemon, and a simulator for bench work.
package vehicle

// Driver applies one velocity command. Positive angular is a right turn;
// the sign convention matches the navigation stack.
type Driver interface {
	Apply(linearMS, angularRadS float64) error
}

// Stopper brings the drivetrain to an immediate standstill.
type Stopper interface {
	Stop() error
}

// StateReporter reports the last applied command.
type StateReporter interface {
	State() DriveState
}

// Actuator is the composite interface for a full drivetrain backend.
type Actuator interface {
	Driver
	Stopper
	StateReporter
	Close() error
}

// DriveState is the last command the actuator applied.
type DriveState struct {
	LinearMS    float64 `json:"linear_m_s"`
	AngularRadS float64 `json:"angular_rad_s"`
	Simulated   bool    `json:"simulated"`
}

// Ensure every backend implements Actuator
var (
	_ Actuator = (*Simulated)(nil)
	_ Actuator = (*VESC)(nil)
	_ Actuator = (*HTTPDrivetrain)(nil)
)
