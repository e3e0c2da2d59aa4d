package nav

import (
	"time"

	"github.com/teslashibe/go-rover/pkg/debug"
	"github.com/teslashibe/go-rover/pkg/perception"
)

// Phase is the stage of an avoidance maneuver.
type Phase int

const (
	// PhaseStopping settles the rover to a standstill.
	PhaseStopping Phase = iota + 1
	// PhaseScanning samples left/right depth while stationary.
	PhaseScanning
	// PhaseTurning turns open-loop toward the chosen side.
	PhaseTurning
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStopping:
		return "STOPPING"
	case PhaseScanning:
		return "SCANNING"
	case PhaseTurning:
		return "TURNING"
	default:
		return "IDLE"
	}
}

// Direction is the side an avoidance turn swings toward.
type Direction int

const (
	// TurnLeft turns toward the left (negative angular command).
	TurnLeft Direction = iota + 1
	// TurnRight turns toward the right (positive angular command).
	TurnRight
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case TurnLeft:
		return "LEFT"
	case TurnRight:
		return "RIGHT"
	default:
		return "NONE"
	}
}

// Avoider runs the timed stop/scan/turn maneuver. It holds at most one
// active plan; the machine begins one when an obstacle appears and the
// plan is discarded when the turn completes. The maneuver is open loop:
// obstacle presence is not re-checked mid-turn, a still-blocked path is
// simply re-detected on the tick after resuming.
type Avoider struct {
	cfg Config
	now func() time.Time

	active     bool
	phase      Phase
	phaseStart time.Time
	direction  Direction
	resume     State

	// Latest side distances seen while scanning.
	lastLeft  *float64
	lastRight *float64
}

// NewAvoider creates an avoider. A nil clock uses wall time.
func NewAvoider(cfg Config, now func() time.Time) (*Avoider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Avoider{cfg: cfg, now: now}, nil
}

// Begin starts a new plan that will hand control back to resume when the
// maneuver completes. The resume state is fixed here and never changes
// mid-avoidance.
func (a *Avoider) Begin(resume State) {
	a.active = true
	a.phase = PhaseStopping
	a.phaseStart = a.now()
	a.direction = 0
	a.resume = resume
	a.lastLeft = nil
	a.lastRight = nil
}

// Active reports whether a plan is in progress.
func (a *Avoider) Active() bool {
	return a.active
}

// Phase returns the current phase, or zero when idle.
func (a *Avoider) Phase() Phase {
	if !a.active {
		return 0
	}
	return a.phase
}

// Direction returns the chosen turn direction, set when scanning ends.
func (a *Avoider) Direction() Direction {
	return a.direction
}

// Resume returns the state control goes back to after the maneuver.
func (a *Avoider) Resume() State {
	return a.resume
}

// Abort discards the active plan without completing it.
func (a *Avoider) Abort() {
	a.active = false
	a.direction = 0
	a.lastLeft = nil
	a.lastRight = nil
}

// Tick advances the maneuver by one control tick and returns the velocity
// command for this tick plus whether the maneuver just completed. The
// scan argument carries this tick's side distances; a side is retained
// only when readable, so a transient dropout does not erase an earlier
// measurement.
func (a *Avoider) Tick(scan perception.SideScan) (linear, angular float64, done bool) {
	if !a.active {
		return 0, 0, false
	}

	elapsed := a.now().Sub(a.phaseStart)

	switch a.phase {
	case PhaseStopping:
		if elapsed >= a.cfg.StopDuration {
			a.enterPhase(PhaseScanning)
		}
		return 0, 0, false

	case PhaseScanning:
		if scan.LeftM != nil {
			a.lastLeft = scan.LeftM
		}
		if scan.RightM != nil {
			a.lastRight = scan.RightM
		}
		if elapsed >= a.cfg.ScanDuration {
			if a.lastLeft == nil && a.lastRight == nil {
				debug.NavLogln("avoid: scan blind, defaulting right")
			}
			a.direction = chooseDirection(a.lastLeft, a.lastRight)
			a.enterPhase(PhaseTurning)
		}
		return 0, 0, false

	default: // PhaseTurning
		if elapsed >= a.cfg.TurnDuration {
			a.active = false
			return 0, 0, true
		}
		angular = a.cfg.TurnAngularSpeed
		if a.direction == TurnLeft {
			angular = -angular
		}
		return 0, angular, false
	}
}

func (a *Avoider) enterPhase(p Phase) {
	a.phase = p
	a.phaseStart = a.now()
}

// chooseDirection turns toward the more open side. A single readable side
// wins outright; ties and fully blind scans default to the right.
func chooseDirection(left, right *float64) Direction {
	switch {
	case left == nil && right == nil:
		return TurnRight
	case right == nil:
		return TurnLeft
	case left == nil:
		return TurnRight
	case *left > *right:
		return TurnLeft
	default:
		return TurnRight
	}
}
