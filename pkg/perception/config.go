package perception

import "fmt"

// Aggregation selects how the valid samples of a region collapse to a
// single distance.
type Aggregation string

const (
	// AggregateMedian takes the median of the valid samples.
	AggregateMedian Aggregation = "median"

	// AggregatePercentile10 takes the 10th percentile, a conservative
	// "worst case nearby point" that reacts to partial obstructions
	// the median would average away.
	AggregatePercentile10 Aggregation = "percentile_10"
)

// Config holds all tunable parameters for obstacle detection
type Config struct {
	// Region
	FrontRegionRatio float64 // Fraction of frame width/height forming the central sampling rectangle

	// Decision
	DepthThresholdM float64 // Obstacle when the aggregate distance is below this (meters)

	// Valid sample range (exclusive bounds, millimeters)
	MinDepthMM int // Samples at or below this are sensor noise
	MaxDepthMM int // Samples at or above this are invalid returns

	// Aggregation method for the front region
	Aggregation Aggregation
}

// DefaultConfig returns the recommended obstacle detection configuration
func DefaultConfig() Config {
	return Config{
		FrontRegionRatio: 0.3,             // Central 30% of the frame
		DepthThresholdM:  0.5,             // Stop-and-avoid inside half a meter
		MinDepthMM:       100,             // OAK-D near limit, below is noise
		MaxDepthMM:       6000,            // Beyond 6m the stereo depth is unreliable
		Aggregation:      AggregateMedian, // Robust to speckle dropout
	}
}

// Validate checks the configuration, returning a descriptive error for the
// first invalid parameter found.
func (c Config) Validate() error {
	if c.FrontRegionRatio <= 0 || c.FrontRegionRatio > 1 {
		return fmt.Errorf("front region ratio must be in (0, 1], got %v", c.FrontRegionRatio)
	}
	if c.DepthThresholdM <= 0 {
		return fmt.Errorf("depth threshold must be positive, got %v", c.DepthThresholdM)
	}
	if c.MinDepthMM < 0 {
		return fmt.Errorf("min depth must not be negative, got %d", c.MinDepthMM)
	}
	if c.MaxDepthMM <= c.MinDepthMM {
		return fmt.Errorf("max depth %d must exceed min depth %d", c.MaxDepthMM, c.MinDepthMM)
	}
	switch c.Aggregation {
	case AggregateMedian, AggregatePercentile10:
	default:
		return fmt.Errorf("unknown aggregation method %q", c.Aggregation)
	}
	return nil
}
