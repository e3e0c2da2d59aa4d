// Package nav implements the top-level navigation controller for the
// rover: a five-state machine that searches for a person, approaches,
// dodges obstacles with a timed stop/scan/turn maneuver, holds position
// for interaction, and honors a manual stop override.
package nav

import "fmt"

// State is the navigation state. Exactly one is held by the machine and
// it changes at most once per tick.
type State int

const (
	// StateSearch rotates in place looking for a person.
	StateSearch State = iota + 1
	// StateApproach drives toward the detected person.
	StateApproach
	// StateAvoidObstacle runs the timed stop/scan/turn maneuver.
	StateAvoidObstacle
	// StateInteract holds position in front of the person.
	StateInteract
	// StateStop is the manual safety override.
	StateStop
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateSearch:
		return "SEARCH"
	case StateApproach:
		return "APPROACH"
	case StateAvoidObstacle:
		return "AVOID_OBSTACLE"
	case StateInteract:
		return "INTERACT"
	case StateStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// ParseState converts a state name back to a State.
func ParseState(s string) (State, error) {
	switch s {
	case "SEARCH":
		return StateSearch, nil
	case "APPROACH":
		return StateApproach, nil
	case "AVOID_OBSTACLE":
		return StateAvoidObstacle, nil
	case "INTERACT":
		return StateInteract, nil
	case "STOP":
		return StateStop, nil
	default:
		return 0, fmt.Errorf("unknown navigation state %q", s)
	}
}
