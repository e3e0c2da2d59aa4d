package nav

import "time"

// Status is an immutable snapshot of the machine for observers: the
// dashboard, the station uplink, telemetry, and periodic status prints.
type Status struct {
	State        string    `json:"state"`
	StateEntered time.Time `json:"state_entered"`

	PersonVisible   bool     `json:"person_visible"`
	ObstacleAhead   bool     `json:"obstacle_ahead"`
	FrontDistanceM  *float64 `json:"front_distance_m,omitempty"`
	PersonDistanceM float64  `json:"person_distance_m,omitempty"`
	Aligned         bool     `json:"aligned"`
	Ready           bool     `json:"ready"`

	AvoidPhase    string `json:"avoid_phase,omitempty"`
	TurnDirection string `json:"turn_direction,omitempty"`

	LinearMS    float64 `json:"linear_m_s"`
	AngularRadS float64 `json:"angular_rad_s"`

	Ticks       uint64 `json:"ticks"`
	Transitions uint64 `json:"transitions"`
}

// Status returns a snapshot of the machine.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:        m.state.String(),
		StateEntered: m.stateEntered,

		PersonVisible:   m.lastPerson,
		ObstacleAhead:   m.lastReading.ObstacleAhead,
		PersonDistanceM: m.lastCommand.DistanceM,
		Aligned:         m.lastCommand.Aligned,
		Ready:           m.lastCommand.ReadyToInteract,

		LinearMS:    m.lastOutput.LinearMS,
		AngularRadS: m.lastOutput.AngularRadS,

		Ticks:       m.ticks,
		Transitions: m.transitions,
	}

	if dist, ok := m.lastReading.FrontDistance(); ok {
		d := dist
		st.FrontDistanceM = &d
	}
	if m.avoider.Active() {
		st.AvoidPhase = m.avoider.Phase().String()
		if dir := m.avoider.Direction(); dir != 0 {
			st.TurnDirection = dir.String()
		}
	}
	return st
}
