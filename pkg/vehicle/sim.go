package vehicle

import (
	"fmt"
	"sync"

	"github.com/teslashibe/go-rover/internal/log"
)

// Simulated is a drivetrain that only logs, for development without
// hardware. It prints a line when the command label or magnitude
// materially changes rather than on every tick.
type Simulated struct {
	limits Limits

	mu          sync.Mutex
	last        DriveState
	lastLabel   string
	lastPrinted DriveState
	applied     uint64
	quiet       bool
}

// NewSimulated creates a simulated drivetrain.
func NewSimulated(limits Limits) (*Simulated, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Simulated{limits: limits}, nil
}

// SetQuiet disables command printing, for tests and batch simulations.
func (s *Simulated) SetQuiet(quiet bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiet = quiet
}

// Apply clamps and records the command, printing it when it changed.
func (s *Simulated) Apply(linearMS, angularRadS float64) error {
	linearMS, angularRadS = s.limits.Clamp(linearMS, angularRadS)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = DriveState{LinearMS: linearMS, AngularRadS: angularRadS, Simulated: true}
	s.applied++

	label := directionLabel(linearMS, angularRadS)
	changed := label != s.lastLabel ||
		abs(linearMS-s.lastPrinted.LinearMS) > 0.05 ||
		abs(angularRadS-s.lastPrinted.AngularRadS) > 0.05
	if changed && !s.quiet {
		fmt.Printf("[SIM] Car Command: %s | Linear: %.2f m/s, Angular: %.2f rad/s\n", label, linearMS, angularRadS)
	}
	if changed {
		s.lastLabel = label
		s.lastPrinted = s.last
	}
	return nil
}

// Stop zeroes the drivetrain.
func (s *Simulated) Stop() error {
	return s.Apply(0, 0)
}

// State returns the last applied command.
func (s *Simulated) State() DriveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Applied returns how many commands have been applied.
func (s *Simulated) Applied() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Label returns the current direction label.
func (s *Simulated) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return directionLabel(s.last.LinearMS, s.last.AngularRadS)
}

// Close stops the drivetrain.
func (s *Simulated) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	log.Debug("simulated drivetrain closed")
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
