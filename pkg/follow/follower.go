package follow

// Command is the per-tick output of the follower. Positive angular means
// the person is right of center and the command is interpreted downstream
// as a right turn; the same sign convention runs through the whole stack.
type Command struct {
	LinearMS    float64
	AngularRadS float64

	// Aligned reports that the person is roughly centered.
	Aligned bool

	// ReadyToInteract reports aligned and within the distance threshold
	// of the target, with a known distance.
	ReadyToInteract bool

	// Diagnostics for telemetry and the dashboard.
	NormalizedError float64
	DistanceM       float64 // 0 when unknown
}

// Follower computes velocity commands from the current detection. It is a
// pure function of its inputs and configuration; nothing is retained
// between calls.
type Follower struct {
	cfg Config
}

// NewFollower validates the configuration and returns a follower.
func NewFollower(cfg Config) (*Follower, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Follower{cfg: cfg}, nil
}

// Config returns the follower configuration.
func (f *Follower) Config() Config {
	return f.cfg
}

// Compute derives a command from the detection alone, estimating the
// distance from the bounding box width. A nil box yields a zero command;
// rotation while searching is the caller's concern.
func (f *Follower) Compute(bbox *BoundingBox, frameWidth, frameHeight int) Command {
	if bbox == nil || frameWidth <= 0 {
		return Command{}
	}
	widthFrac := float64(bbox.Width()) / float64(frameWidth)
	return f.ComputeAt(bbox, frameWidth, frameHeight, EstimateDistance(widthFrac))
}

// ComputeAt is Compute with a measured distance in meters, for callers
// whose depth camera can range the person directly. A distance of zero or
// less means unknown: the follower still aligns but holds position and
// never reports ready.
func (f *Follower) ComputeAt(bbox *BoundingBox, frameWidth, frameHeight int, distanceM float64) Command {
	if bbox == nil || frameWidth <= 0 {
		return Command{}
	}

	// Positive error: person is right of center, turn right.
	errorX := bbox.CenterX() - float64(frameWidth)/2.0
	normalized := errorX / (float64(frameWidth) / 2.0)

	cmd := Command{
		AngularRadS:     clamp(f.cfg.KAngle*normalized, -f.cfg.MaxAngularSpeed, f.cfg.MaxAngularSpeed),
		Aligned:         abs(normalized) < f.cfg.AngleThreshold,
		NormalizedError: normalized,
	}

	if distanceM <= 0 {
		return cmd
	}
	cmd.DistanceM = distanceM

	distanceError := distanceM - f.cfg.TargetDistanceM
	closeEnough := abs(distanceError) < f.cfg.DistanceThresholdM

	// Advance only when aligned, and stop creeping once inside the
	// distance threshold. Never reverse.
	if cmd.Aligned && !closeEnough {
		cmd.LinearMS = clamp(f.cfg.KLinear*distanceError, 0, f.cfg.MaxLinearSpeed)
	}

	cmd.ReadyToInteract = cmd.Aligned && closeEnough
	return cmd
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
