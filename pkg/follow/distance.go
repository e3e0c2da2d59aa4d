package follow

// Distance estimation constants, calibrated for a wide-angle front camera
// looking at a standing adult.
const (
	// Calibration constant: a person filling ~22% of the frame width is
	// about 1m away, giving distance = distanceCalibration / widthFrac.
	// At 44% width: 0.5m. At 11% width: 2m.
	distanceCalibration = 0.22

	minEstimatedDistance = 0.3
	maxEstimatedDistance = 5.0
)

// EstimateDistance calculates approximate distance from the person
// bounding box width as a fraction of frame width (0-1). Returns distance
// in meters, or 0 when the width is invalid.
//
// This uses a simple inverse relationship: distance ≈ k / widthFrac.
// Accuracy is roughly ±30% at distances under 3 meters; prefer a measured
// depth distance whenever the depth camera has one.
func EstimateDistance(widthFrac float64) float64 {
	if widthFrac <= 0 || widthFrac > 1 {
		return 0
	}

	distance := distanceCalibration / widthFrac

	if distance < minEstimatedDistance {
		distance = minEstimatedDistance
	}
	if distance > maxEstimatedDistance {
		distance = maxEstimatedDistance
	}
	return distance
}

// DistanceCategory returns a human-readable distance category
func DistanceCategory(distance float64) string {
	if distance <= 0 {
		return "unknown"
	}
	if distance < 0.5 {
		return "very close"
	}
	if distance < 1.0 {
		return "close"
	}
	if distance < 2.0 {
		return "nearby"
	}
	if distance < 3.0 {
		return "moderate"
	}
	return "far"
}
