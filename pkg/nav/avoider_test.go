package nav

import (
	"testing"
	"time"

	"github.com/teslashibe/go-rover/pkg/perception"
)

// fakeClock drives phase timing deterministically.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func sideScan(left, right float64) perception.SideScan {
	scan := perception.SideScan{}
	if left > 0 {
		scan.LeftM = &left
	}
	if right > 0 {
		scan.RightM = &right
	}
	return scan
}

func newTestAvoider(t *testing.T) (*Avoider, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	a, err := NewAvoider(DefaultConfig(), clock.now)
	if err != nil {
		t.Fatalf("NewAvoider failed: %v", err)
	}
	return a, clock
}

func TestAvoiderPhaseSequence(t *testing.T) {
	a, clock := newTestAvoider(t)
	a.Begin(StateSearch)

	if !a.Active() || a.Phase() != PhaseStopping {
		t.Fatalf("fresh plan should be active in STOPPING, got %v", a.Phase())
	}

	// Still settling.
	if lin, ang, done := a.Tick(perception.SideScan{}); lin != 0 || ang != 0 || done {
		t.Errorf("stopping should hold zero velocity, got (%v, %v, %v)", lin, ang, done)
	}

	clock.advance(300 * time.Millisecond)
	if _, _, done := a.Tick(perception.SideScan{}); done {
		t.Error("maneuver must not complete straight out of stopping")
	}
	if a.Phase() != PhaseScanning {
		t.Fatalf("expected SCANNING after the stop duration, got %v", a.Phase())
	}

	// Scan while stationary.
	if lin, ang, _ := a.Tick(sideScan(1.2, 0.4)); lin != 0 || ang != 0 {
		t.Errorf("scanning should hold zero velocity, got (%v, %v)", lin, ang)
	}

	clock.advance(500 * time.Millisecond)
	a.Tick(perception.SideScan{})
	if a.Phase() != PhaseTurning {
		t.Fatalf("expected TURNING after the scan duration, got %v", a.Phase())
	}
	if a.Direction() != TurnLeft {
		t.Fatalf("left 1.2m vs right 0.4m should turn LEFT, got %v", a.Direction())
	}

	// Left turn is a negative angular command.
	lin, ang, done := a.Tick(perception.SideScan{})
	if lin != 0 || ang != -0.5 || done {
		t.Errorf("left turn should command (0, -0.5), got (%v, %v, %v)", lin, ang, done)
	}

	clock.advance(999 * time.Millisecond)
	if _, _, done := a.Tick(perception.SideScan{}); done {
		t.Error("turn should still be running just before the turn duration")
	}

	clock.advance(1 * time.Millisecond)
	lin, ang, done = a.Tick(perception.SideScan{})
	if !done {
		t.Fatal("turn should complete once the turn duration elapses")
	}
	if lin != 0 || ang != 0 {
		t.Errorf("completion tick should command zero velocity, got (%v, %v)", lin, ang)
	}
	if a.Active() {
		t.Error("plan should be discarded on completion")
	}
}

func TestAvoiderTurnsRightWhenRightIsOpen(t *testing.T) {
	a, clock := newTestAvoider(t)
	a.Begin(StateApproach)

	clock.advance(300 * time.Millisecond)
	a.Tick(perception.SideScan{})
	a.Tick(sideScan(0.4, 1.2))
	clock.advance(500 * time.Millisecond)
	a.Tick(perception.SideScan{})

	if a.Direction() != TurnRight {
		t.Fatalf("right side more open should turn RIGHT, got %v", a.Direction())
	}
	if _, ang, _ := a.Tick(perception.SideScan{}); ang != 0.5 {
		t.Errorf("right turn should command positive angular, got %v", ang)
	}
}

func TestChooseDirection(t *testing.T) {
	left12, right04 := 1.2, 0.4
	equal := 0.8

	cases := []struct {
		name  string
		left  *float64
		right *float64
		want  Direction
	}{
		{"left more open", &left12, &right04, TurnLeft},
		{"right more open", &right04, &left12, TurnRight},
		{"exact tie", &equal, &equal, TurnRight},
		{"both blind", nil, nil, TurnRight},
		{"only left readable", &left12, nil, TurnLeft},
		{"only right readable", nil, &right04, TurnRight},
	}
	for _, tc := range cases {
		if got := chooseDirection(tc.left, tc.right); got != tc.want {
			t.Errorf("%s: chooseDirection = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAvoiderRetainsLatestScan(t *testing.T) {
	a, clock := newTestAvoider(t)
	a.Begin(StateSearch)

	clock.advance(300 * time.Millisecond)
	a.Tick(perception.SideScan{})

	// A good scan followed by a dropout: the earlier measurement holds.
	a.Tick(sideScan(1.2, 0.4))
	a.Tick(perception.SideScan{})
	clock.advance(500 * time.Millisecond)
	a.Tick(perception.SideScan{})

	if a.Direction() != TurnLeft {
		t.Errorf("dropout should not erase the earlier scan, got %v", a.Direction())
	}
}

func TestAvoiderLatestScanWins(t *testing.T) {
	a, clock := newTestAvoider(t)
	a.Begin(StateSearch)

	clock.advance(300 * time.Millisecond)
	a.Tick(perception.SideScan{})

	// The left side closes up mid-scan; the final measurement decides.
	a.Tick(sideScan(1.2, 0.4))
	a.Tick(sideScan(0.2, 0.4))
	clock.advance(500 * time.Millisecond)
	a.Tick(perception.SideScan{})

	if a.Direction() != TurnRight {
		t.Errorf("latest scan should win, got %v", a.Direction())
	}
}

func TestAvoiderResumeFixedAtEntry(t *testing.T) {
	a, clock := newTestAvoider(t)
	a.Begin(StateApproach)

	for i := 0; i < 3; i++ {
		if a.Resume() != StateApproach {
			t.Fatalf("resume state changed mid-avoidance at step %d", i)
		}
		clock.advance(600 * time.Millisecond)
		a.Tick(perception.SideScan{})
	}
}

func TestAvoiderAbort(t *testing.T) {
	a, _ := newTestAvoider(t)
	a.Begin(StateSearch)
	a.Abort()

	if a.Active() {
		t.Error("aborted plan should not be active")
	}
	if lin, ang, done := a.Tick(perception.SideScan{}); lin != 0 || ang != 0 || done {
		t.Errorf("ticking an aborted plan should do nothing, got (%v, %v, %v)", lin, ang, done)
	}
}

func TestAvoiderRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScanDuration = 0
	if _, err := NewAvoider(cfg, nil); err == nil {
		t.Error("zero scan duration should be rejected")
	}

	cfg = DefaultConfig()
	cfg.TurnAngularSpeed = -0.5
	if _, err := NewAvoider(cfg, nil); err == nil {
		t.Error("negative turn speed should be rejected")
	}
}
