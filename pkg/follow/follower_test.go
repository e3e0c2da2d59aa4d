package follow

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func mustFollower(t *testing.T, cfg Config) *Follower {
	t.Helper()
	f, err := NewFollower(cfg)
	if err != nil {
		t.Fatalf("NewFollower failed: %v", err)
	}
	return f
}

// boxAt builds a bounding box of the given width centered at cx.
func boxAt(cx, width int) *BoundingBox {
	return &BoundingBox{
		XMin: cx - width/2,
		YMin: 100,
		XMax: cx + width/2,
		YMax: 400,
	}
}

func TestCenteredPersonZeroAngular(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	cmd := f.ComputeAt(boxAt(100, 40), 200, 200, 2.0)

	if !floatEquals(cmd.AngularRadS, 0) {
		t.Errorf("centered person should give zero angular, got %v", cmd.AngularRadS)
	}
	if !cmd.Aligned {
		t.Error("centered person should be aligned")
	}
}

func TestRightOfCenterTurnsRight(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	// Increasing offsets to the right give increasing right-turn commands,
	// clamped at the maximum angular speed.
	var last float64
	for _, cx := range []int{120, 160, 200} {
		cmd := f.ComputeAt(boxAt(cx, 40), 200, 200, 2.0)
		if cmd.AngularRadS <= 0 {
			t.Fatalf("person at x=%d should turn right, got angular %v", cx, cmd.AngularRadS)
		}
		if cmd.AngularRadS < last {
			t.Errorf("angular magnitude should not shrink with larger offset: %v after %v", cmd.AngularRadS, last)
		}
		last = cmd.AngularRadS
	}
	if !floatEquals(last, DefaultConfig().MaxAngularSpeed) {
		t.Errorf("full-frame offset should clamp at max angular speed, got %v", last)
	}
}

func TestLeftOfCenterTurnsLeft(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	cmd := f.ComputeAt(boxAt(40, 40), 200, 200, 2.0)

	if cmd.AngularRadS >= 0 {
		t.Errorf("person left of center should turn left, got angular %v", cmd.AngularRadS)
	}
	if !floatEquals(cmd.AngularRadS, -0.6) {
		t.Errorf("angular = %v, want -0.6 for a -0.6 normalized error", cmd.AngularRadS)
	}
}

func TestLinearRequiresAlignment(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	cmd := f.ComputeAt(boxAt(160, 40), 200, 200, 3.0)

	if cmd.Aligned {
		t.Fatal("person at 60% offset should not be aligned")
	}
	if !floatEquals(cmd.LinearMS, 0) {
		t.Errorf("unaligned person must not advance, got linear %v", cmd.LinearMS)
	}
	if floatEquals(cmd.AngularRadS, 0) {
		t.Error("unaligned person should still turn")
	}
}

func TestApproachWhenAlignedAndFar(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	cmd := f.ComputeAt(boxAt(100, 40), 200, 200, 2.0)

	// distance error 1.0m at gain 0.5, inside the 0.5 m/s limit.
	if !floatEquals(cmd.LinearMS, 0.5) {
		t.Errorf("linear = %v, want 0.5", cmd.LinearMS)
	}
	if cmd.ReadyToInteract {
		t.Error("1m past the target is not ready to interact")
	}
}

func TestStopsInsideDistanceThreshold(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	cmd := f.ComputeAt(boxAt(100, 40), 200, 200, 1.1)

	if !floatEquals(cmd.LinearMS, 0) {
		t.Errorf("inside the distance threshold linear should be zero, got %v", cmd.LinearMS)
	}
	if !cmd.ReadyToInteract {
		t.Error("aligned and within threshold should be ready to interact")
	}
}

func TestNeverReverses(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	// Half a meter inside the target: distance error is negative.
	cmd := f.ComputeAt(boxAt(100, 40), 200, 200, 0.5)

	if cmd.LinearMS != 0 {
		t.Errorf("follower must not reverse, got linear %v", cmd.LinearMS)
	}
	if cmd.ReadyToInteract {
		t.Error("0.5m off target is outside the 0.2m threshold")
	}
}

func TestNilBoxZeroCommand(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	cmd := f.Compute(nil, 200, 200)

	if cmd.LinearMS != 0 || cmd.AngularRadS != 0 || cmd.Aligned || cmd.ReadyToInteract {
		t.Errorf("nil box should give a zero command, got %+v", cmd)
	}
}

func TestUnknownDistanceAlignsOnly(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	cmd := f.ComputeAt(boxAt(100, 40), 200, 200, 0)

	if !cmd.Aligned {
		t.Error("alignment should not depend on distance")
	}
	if cmd.LinearMS != 0 {
		t.Errorf("unknown distance must not advance, got linear %v", cmd.LinearMS)
	}
	if cmd.ReadyToInteract {
		t.Error("unknown distance can never be ready to interact")
	}
}

func TestReadyRequiresBothConditions(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	if cmd := f.ComputeAt(boxAt(100, 40), 200, 200, 1.0); !cmd.ReadyToInteract {
		t.Error("aligned at target distance should be ready")
	}
	if cmd := f.ComputeAt(boxAt(100, 40), 200, 200, 2.5); cmd.ReadyToInteract {
		t.Error("aligned but far should not be ready")
	}
	if cmd := f.ComputeAt(boxAt(180, 40), 200, 200, 1.0); cmd.ReadyToInteract {
		t.Error("close but unaligned should not be ready")
	}
}

func TestComputeUsesWidthProxy(t *testing.T) {
	f := mustFollower(t, DefaultConfig())

	// 220px of a 1000px frame is 22% width, the 1m calibration point.
	cmd := f.Compute(boxAt(500, 220), 1000, 800)

	if !floatEquals(cmd.DistanceM, 1.0) {
		t.Errorf("proxy distance = %v, want 1.0", cmd.DistanceM)
	}
	if !cmd.ReadyToInteract {
		t.Error("centered at the calibrated target distance should be ready")
	}
}

func TestEstimateDistance(t *testing.T) {
	cases := []struct {
		widthFrac float64
		want      float64
	}{
		{0.22, 1.0},
		{0.44, 0.5},
		{0.11, 2.0},
		{1.0, minEstimatedDistance},  // enormous box clamps near
		{0.01, maxEstimatedDistance}, // sliver box clamps far
		{0, 0},
		{-0.5, 0},
		{1.5, 0},
	}
	for _, tc := range cases {
		if got := EstimateDistance(tc.widthFrac); !floatEquals(got, tc.want) {
			t.Errorf("EstimateDistance(%v) = %v, want %v", tc.widthFrac, got, tc.want)
		}
	}
}

func TestDistanceCategory(t *testing.T) {
	cases := []struct {
		distance float64
		want     string
	}{
		{0, "unknown"},
		{0.4, "very close"},
		{0.8, "close"},
		{1.5, "nearby"},
		{2.5, "moderate"},
		{4.0, "far"},
	}
	for _, tc := range cases {
		if got := DistanceCategory(tc.distance); got != tc.want {
			t.Errorf("DistanceCategory(%v) = %q, want %q", tc.distance, got, tc.want)
		}
	}
}

func TestPresetsValidate(t *testing.T) {
	for name, cfg := range map[string]Config{
		"default":    DefaultConfig(),
		"slow":       SlowConfig(),
		"aggressive": AggressiveConfig(),
	} {
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s config should validate, got %v", name, err)
		}
	}
}

func TestConfigValidationRejectsBadValues(t *testing.T) {
	bad := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target", func(c *Config) { c.TargetDistanceM = 0 }},
		{"negative max linear", func(c *Config) { c.MaxLinearSpeed = -1 }},
		{"zero max angular", func(c *Config) { c.MaxAngularSpeed = 0 }},
		{"zero angular gain", func(c *Config) { c.KAngle = 0 }},
		{"zero linear gain", func(c *Config) { c.KLinear = 0 }},
		{"zero angle threshold", func(c *Config) { c.AngleThreshold = 0 }},
		{"angle threshold above one", func(c *Config) { c.AngleThreshold = 1.2 }},
		{"zero distance threshold", func(c *Config) { c.DistanceThresholdM = 0 }},
	}
	for _, tc := range bad {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if _, err := NewFollower(cfg); err == nil {
			t.Errorf("%s: NewFollower should reject the config", tc.name)
		}
	}
}
