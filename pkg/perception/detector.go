package perception

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Reading is the per-tick obstacle summary for the region ahead.
// FrontDistanceM is nil when the sampled region held no valid samples;
// in that case ObstacleAhead is always false (fail open).
type Reading struct {
	ObstacleAhead  bool
	FrontDistanceM *float64
}

// FrontDistance returns the front distance in meters and whether one was
// measured.
func (r Reading) FrontDistance() (float64, bool) {
	if r.FrontDistanceM == nil {
		return 0, false
	}
	return *r.FrontDistanceM, true
}

// SideScan holds the left/right median distances sampled during the
// scanning phase of obstacle avoidance. A side is nil when its region
// held no valid samples.
type SideScan struct {
	LeftM  *float64
	RightM *float64
}

// Detector reduces a depth frame to an obstacle reading. It is a pure
// function of the frame and its configuration and keeps no state between
// calls.
type Detector struct {
	cfg Config
}

// NewDetector validates the configuration and returns a detector.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect samples the central region of the frame and decides whether
// something is close ahead. A nil frame or a region with no valid samples
// yields no obstacle and no distance.
func (d *Detector) Detect(frame *DepthFrame) Reading {
	if frame == nil {
		return Reading{}
	}

	regionW := int(float64(frame.Width) * d.cfg.FrontRegionRatio)
	regionH := int(float64(frame.Height) * d.cfg.FrontRegionRatio)
	x0 := (frame.Width - regionW) / 2
	y0 := (frame.Height - regionH) / 2

	samples := d.collect(frame, x0, y0, x0+regionW, y0+regionH)
	if len(samples) == 0 {
		return Reading{}
	}

	meters := d.aggregate(samples, d.cfg.Aggregation) / 1000.0
	return Reading{
		ObstacleAhead:  meters < d.cfg.DepthThresholdM,
		FrontDistanceM: &meters,
	}
}

// ScanSides samples the left and right thirds of the frame, restricted to
// the middle half of its height, and returns the median distance of each.
// Used during the scanning phase of avoidance to pick the more open side.
func (d *Detector) ScanSides(frame *DepthFrame) SideScan {
	if frame == nil {
		return SideScan{}
	}

	w, h := frame.Width, frame.Height
	yTop, yBottom := h/4, 3*h/4

	var scan SideScan
	if left := d.collect(frame, 0, yTop, w/3, yBottom); len(left) > 0 {
		m := d.aggregate(left, AggregateMedian) / 1000.0
		scan.LeftM = &m
	}
	if right := d.collect(frame, 2*w/3, yTop, w, yBottom); len(right) > 0 {
		m := d.aggregate(right, AggregateMedian) / 1000.0
		scan.RightM = &m
	}
	return scan
}

// DistanceAt measures the distance at a pixel by averaging the valid
// samples of a small patch around it. Returns false when the patch holds
// no valid samples.
func (d *Detector) DistanceAt(frame *DepthFrame, x, y int) (float64, bool) {
	if frame == nil {
		return 0, false
	}

	const half = 5
	samples := d.collect(frame, x-half, y-half, x+half, y+half)
	if len(samples) == 0 {
		return 0, false
	}

	return stat.Mean(samples, nil) / 1000.0, true
}

// collect gathers the valid samples of the clipped rectangle
// [x0,x1)×[y0,y1) in millimeters. Valid means strictly inside the
// configured depth range, which also drops zero (no-return) samples.
func (d *Detector) collect(frame *DepthFrame, x0, y0, x1, y1 int) []float64 {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > frame.Width {
		x1 = frame.Width
	}
	if y1 > frame.Height {
		y1 = frame.Height
	}
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	minMM := float64(d.cfg.MinDepthMM)
	maxMM := float64(d.cfg.MaxDepthMM)
	samples := make([]float64, 0, (x1-x0)*(y1-y0))
	for y := y0; y < y1; y++ {
		row := y * frame.Width
		for x := x0; x < x1; x++ {
			v := float64(frame.Data[row+x])
			if v > minMM && v < maxMM {
				samples = append(samples, v)
			}
		}
	}
	return samples
}

// aggregate collapses samples (millimeters) to one value. Samples are
// sorted in place.
func (d *Detector) aggregate(samples []float64, method Aggregation) float64 {
	sort.Float64s(samples)
	switch method {
	case AggregatePercentile10:
		return stat.Quantile(0.10, stat.LinInterp, samples, nil)
	default:
		return stat.Quantile(0.5, stat.LinInterp, samples, nil)
	}
}
