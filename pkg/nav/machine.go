package nav

import (
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/debug"
	"github.com/teslashibe/go-rover/pkg/follow"
	"github.com/teslashibe/go-rover/pkg/perception"
)

// Transition causes, recorded with every state change.
const (
	CauseObstacle      = "obstacle_detected"
	CausePersonFound   = "person_found"
	CausePersonLost    = "person_lost"
	CauseReady         = "ready_to_interact"
	CausePersonMoved   = "person_moved"
	CauseAvoidComplete = "avoidance_complete"
	CauseManualStop    = "manual_stop"
	CauseManualReset   = "manual_reset"
)

// Inputs is the sensor snapshot for one control tick. A nil box means no
// person this frame; a nil depth frame means no depth this frame. Both
// are normal, not errors.
type Inputs struct {
	BBox        *follow.BoundingBox
	Depth       *perception.DepthFrame
	FrameWidth  int
	FrameHeight int

	// DistanceM is a measured distance to the person in meters, zero
	// when the depth camera could not range the detection. The follower
	// falls back to its bounding-box estimate.
	DistanceM float64
}

// Output is the velocity command produced by one tick.
type Output struct {
	LinearMS    float64
	AngularRadS float64
	State       State
}

// Transition records one state change.
type Transition struct {
	From  State
	To    State
	Cause string
	At    time.Time
}

// Machine is the navigation controller. It owns the single NavState and
// the at-most-one avoidance plan, and mutates them only inside Tick,
// Stop, and Reset. Tick is driven by one control loop; Stop and Reset
// may arrive from other goroutines (web dashboard, station), so state is
// guarded by a mutex.
type Machine struct {
	mu       sync.Mutex
	cfg      Config
	detector *perception.Detector
	follower *follow.Follower
	avoider  *Avoider
	now      func() time.Time

	state        State
	stateEntered time.Time

	ticks       uint64
	transitions uint64

	lastReading perception.Reading
	lastCommand follow.Command
	lastOutput  Output
	lastPerson  bool

	onTransition func(Transition)
	pending      []Transition
}

// NewMachine creates a machine in the SEARCH state.
func NewMachine(cfg Config, detector *perception.Detector, follower *follow.Follower) (*Machine, error) {
	return NewMachineWithClock(cfg, detector, follower, time.Now)
}

// NewMachineWithClock is NewMachine with an injected clock, used by tests
// to drive avoidance phases deterministically.
func NewMachineWithClock(cfg Config, detector *perception.Detector, follower *follow.Follower, now func() time.Time) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if detector == nil {
		return nil, fmt.Errorf("machine requires an obstacle detector")
	}
	if follower == nil {
		return nil, fmt.Errorf("machine requires a person follower")
	}
	if now == nil {
		now = time.Now
	}
	avoider, err := NewAvoider(cfg, now)
	if err != nil {
		return nil, err
	}
	return &Machine{
		cfg:          cfg,
		detector:     detector,
		follower:     follower,
		avoider:      avoider,
		now:          now,
		state:        StateSearch,
		stateEntered: now(),
	}, nil
}

// OnTransition registers a handler called after every state change, with
// the machine unlocked. Set it before the control loop starts; the
// handler must not block the tick for long.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.onTransition = fn
}

// State returns the current navigation state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetFollower swaps the follow controller between ticks. Runtime tuning
// from the dashboard or the station lands here.
func (m *Machine) SetFollower(f *follow.Follower) {
	if f == nil {
		return
	}
	m.mu.Lock()
	m.follower = f
	m.mu.Unlock()
}

// Tick runs one control cycle over the latest sensor snapshot and returns
// the velocity command to apply. Obstacle checks take priority over
// person-following transitions: not hitting things dominates the task
// goal.
func (m *Machine) Tick(in Inputs) Output {
	m.mu.Lock()
	out := m.tickLocked(in)
	fired := m.pending
	m.pending = nil
	m.mu.Unlock()

	m.fire(fired)
	return out
}

func (m *Machine) tickLocked(in Inputs) Output {
	m.ticks++
	m.lastPerson = in.BBox != nil

	reading := m.detector.Detect(in.Depth)
	m.lastReading = reading

	if reading.ObstacleAhead && (m.state == StateSearch || m.state == StateApproach) {
		m.avoider.Begin(m.state)
		m.setState(StateAvoidObstacle, CauseObstacle)
	}

	switch m.state {
	case StateStop:
		m.lastCommand = follow.Command{}
		return m.emit(0, 0)

	case StateAvoidObstacle:
		scan := m.detector.ScanSides(in.Depth)
		linear, angular, done := m.avoider.Tick(scan)
		if done {
			m.setState(m.avoider.Resume(), CauseAvoidComplete)
		}
		return m.emit(linear, angular)

	case StateApproach:
		if in.BBox == nil {
			m.setState(StateSearch, CausePersonLost)
			m.lastCommand = follow.Command{}
			return m.emit(0, m.cfg.SearchAngularSpeed)
		}
		return m.approach(in)

	case StateInteract:
		if in.BBox == nil {
			m.setState(StateSearch, CausePersonLost)
			m.lastCommand = follow.Command{}
			return m.emit(0, m.cfg.SearchAngularSpeed)
		}
		cmd := m.followerCommand(in)
		m.lastCommand = cmd
		if !cmd.ReadyToInteract {
			m.setState(StateApproach, CausePersonMoved)
			return m.emit(cmd.LinearMS, cmd.AngularRadS)
		}
		return m.emit(0, 0)

	default: // StateSearch
		if in.BBox != nil {
			// Enter APPROACH with the follower command; the ready
			// check waits for the next tick so the state changes at
			// most once per tick.
			m.setState(StateApproach, CausePersonFound)
			cmd := m.followerCommand(in)
			m.lastCommand = cmd
			return m.emit(cmd.LinearMS, cmd.AngularRadS)
		}
		m.lastCommand = follow.Command{}
		return m.emit(0, m.cfg.SearchAngularSpeed)
	}
}

// approach runs the follower and advances to INTERACT when aligned and at
// distance.
func (m *Machine) approach(in Inputs) Output {
	cmd := m.followerCommand(in)
	m.lastCommand = cmd
	if cmd.ReadyToInteract {
		m.setState(StateInteract, CauseReady)
		return m.emit(0, 0)
	}
	return m.emit(cmd.LinearMS, cmd.AngularRadS)
}

func (m *Machine) followerCommand(in Inputs) follow.Command {
	if in.DistanceM > 0 {
		return m.follower.ComputeAt(in.BBox, in.FrameWidth, in.FrameHeight, in.DistanceM)
	}
	return m.follower.Compute(in.BBox, in.FrameWidth, in.FrameHeight)
}

// Stop is the manual safety override: zero velocity, all inputs ignored
// until Reset. Stopping an already stopped machine is a no-op.
func (m *Machine) Stop() {
	m.mu.Lock()
	if m.state != StateStop {
		m.avoider.Abort()
		m.setState(StateStop, CauseManualStop)
	}
	fired := m.pending
	m.pending = nil
	m.mu.Unlock()
	m.fire(fired)
}

// Reset returns the machine to SEARCH from any state and discards any
// active avoidance plan. Resetting a searching machine is a no-op.
func (m *Machine) Reset() {
	m.mu.Lock()
	if m.state != StateSearch {
		m.avoider.Abort()
		m.setState(StateSearch, CauseManualReset)
	}
	fired := m.pending
	m.pending = nil
	m.mu.Unlock()
	m.fire(fired)
}

func (m *Machine) setState(to State, cause string) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	m.stateEntered = m.now()
	m.transitions++

	tr := Transition{From: from, To: to, Cause: cause, At: m.stateEntered}
	m.pending = append(m.pending, tr)

	log.Info("nav transition", "from", from.String(), "to", to.String(), "cause", cause)
	debug.NavLog("nav: %s -> %s (%s)\n", from, to, cause)
}

func (m *Machine) emit(linear, angular float64) Output {
	out := Output{LinearMS: linear, AngularRadS: angular, State: m.state}
	m.lastOutput = out
	return out
}

func (m *Machine) fire(fired []Transition) {
	if m.onTransition == nil {
		return
	}
	for _, tr := range fired {
		m.onTransition(tr)
	}
}
