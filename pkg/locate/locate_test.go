package locate

import (
	"testing"
	"time"

	"github.com/teslashibe/go-rover/pkg/follow"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

func person(xMin, yMin, xMax, yMax int, conf float64) Person {
	return Person{
		Box:         follow.BoundingBox{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax},
		Confidence:  conf,
		FrameWidth:  640,
		FrameHeight: 480,
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name      string
		people    []Person
		expectNil bool
		expectIdx int
	}{
		{
			name:      "empty list",
			people:    []Person{},
			expectNil: true,
		},
		{
			name:      "single sighting",
			people:    []Person{person(100, 100, 200, 300, 0.9)},
			expectIdx: 0,
		},
		{
			name: "high confidence beats larger area",
			// Scores: 0.95*0.7 + 0.25*0.3 = 0.74 vs 0.5*0.7 + 1.0*0.3 = 0.65
			people: []Person{
				person(0, 0, 400, 400, 0.5),
				person(200, 200, 400, 400, 0.95),
			},
			expectIdx: 1,
		},
		{
			name: "similar confidence picks larger",
			people: []Person{
				person(0, 0, 500, 400, 0.8),
				person(300, 300, 350, 350, 0.8),
			},
			expectIdx: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best := SelectBest(tc.people)
			if tc.expectNil {
				if best != nil {
					t.Errorf("SelectBest: expected nil, got %+v", best)
				}
				return
			}

			if best == nil {
				t.Fatal("SelectBest: expected non-nil, got nil")
			}

			expected := &tc.people[tc.expectIdx]
			if best.Confidence != expected.Confidence || best.Box != expected.Box {
				t.Errorf("SelectBest: got %+v, want %+v", best, expected)
			}
		})
	}
}

func TestPersonFromDetectionClamps(t *testing.T) {
	// Coordinates outside the frame are clamped, matching how the
	// detector treats boxes that spill past the sensor edge.
	p := personFromDetection(protocol.DetectionData{
		XMin: -40, YMin: 10, XMax: 700, YMax: 500,
		Confidence:  0.8,
		FrameWidth:  640,
		FrameHeight: 480,
	})
	if p == nil {
		t.Fatal("expected a sighting")
	}
	if p.Box.XMin != 0 || p.Box.XMax != 639 {
		t.Errorf("x clamp = [%d, %d], want [0, 639]", p.Box.XMin, p.Box.XMax)
	}
	if p.Box.YMax != 479 {
		t.Errorf("y clamp = %d, want 479", p.Box.YMax)
	}
}

func TestPersonFromDetectionRejectsDegenerate(t *testing.T) {
	cases := []protocol.DetectionData{
		{XMin: 10, YMin: 10, XMax: 10, YMax: 100, FrameWidth: 640, FrameHeight: 480}, // zero width
		{XMin: 50, YMin: 80, XMax: 40, YMax: 100, FrameWidth: 640, FrameHeight: 480}, // inverted
		{XMin: 10, YMin: 10, XMax: 100, YMax: 100, FrameWidth: 0, FrameHeight: 480},  // no frame size
	}
	for i, det := range cases {
		if p := personFromDetection(det); p != nil {
			t.Errorf("case %d: expected nil, got %+v", i, p)
		}
	}
}

func TestScriptedSequence(t *testing.T) {
	first := person(100, 100, 200, 300, 0.9)
	second := person(150, 100, 250, 300, 0.85)

	s := NewScripted(&first, nil, &second)

	if p := s.Person(); p == nil || p.Box.XMin != 100 {
		t.Errorf("step 1 = %+v, want first sighting", p)
	}
	if p := s.Person(); p != nil {
		t.Errorf("step 2 = %+v, want nil (nobody visible)", p)
	}
	if p := s.Person(); p == nil || p.Box.XMin != 150 {
		t.Errorf("step 3 = %+v, want second sighting", p)
	}

	// Script exhausted
	if p := s.Person(); p != nil {
		t.Errorf("after script end = %+v, want nil", p)
	}
	if s.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", s.Remaining())
	}
}

func TestScriptedReturnsCopies(t *testing.T) {
	orig := person(100, 100, 200, 300, 0.9)
	s := NewScripted(&orig)

	p := s.Person()
	p.Box.XMin = 999
	if orig.Box.XMin != 100 {
		t.Error("mutating a returned sighting must not touch the script")
	}
}

func TestBridgeStaleness(t *testing.T) {
	b, err := NewBridge("ws://localhost:9999/ws", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("NewBridge failed: %v", err)
	}

	clock := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	b.handleDetection(protocol.DetectionData{
		XMin: 100, YMin: 50, XMax: 300, YMax: 400,
		Confidence:  0.9,
		FrameWidth:  640,
		FrameHeight: 480,
	})

	if p := b.Person(); p == nil || p.Box.XMin != 100 {
		t.Fatalf("fresh sighting = %+v, want the detection", p)
	}

	// Within the window the sighting stays visible.
	clock = clock.Add(400 * time.Millisecond)
	if p := b.Person(); p == nil {
		t.Error("sighting should still be fresh at 400ms")
	}

	// Past the window it reads as nobody visible.
	clock = clock.Add(200 * time.Millisecond)
	if p := b.Person(); p != nil {
		t.Errorf("stale sighting = %+v, want nil", p)
	}
}

func TestBridgeHandleMessage(t *testing.T) {
	b, err := NewBridge("ws://localhost:9999/ws", time.Second)
	if err != nil {
		t.Fatalf("NewBridge failed: %v", err)
	}

	msg, err := protocol.NewDetectionMessage(protocol.DetectionData{
		XMin: 10, YMin: 20, XMax: 200, YMax: 420,
		Confidence:  0.7,
		FrameWidth:  640,
		FrameHeight: 480,
	})
	if err != nil {
		t.Fatalf("NewDetectionMessage failed: %v", err)
	}

	b.handleMessage(msg)

	p := b.Person()
	if p == nil {
		t.Fatal("detection message should produce a sighting")
	}
	if p.Confidence != 0.7 || p.Box.YMax != 420 {
		t.Errorf("sighting = %+v", p)
	}

	// Unknown types are ignored without panicking.
	b.handleMessage(&protocol.Message{Type: "mystery"})
}

func TestBridgeRejectsBadConfig(t *testing.T) {
	if _, err := NewBridge("", time.Second); err == nil {
		t.Error("empty url should be rejected")
	}
	if _, err := NewBridge("ws://localhost/ws", 0); err == nil {
		t.Error("zero stale window should be rejected")
	}
}

func TestCameraConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}

	bad := []func(*Config){
		func(c *Config) { c.DeviceIndex = -1 },
		func(c *Config) { c.Interval = 0 },
		func(c *Config) { c.StaleAfter = 0 },
		func(c *Config) { c.JPEGQuality = 0 },
		func(c *Config) { c.JPEGQuality = 150 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected a validation error", i)
		}
	}
}
