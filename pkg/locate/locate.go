// Package locate finds the person the rover should follow. Detection can
// run in-process on camera frames or arrive over a WebSocket bridge from
// a companion vision service; either way the navigation loop only sees
// the freshest sighting.
package locate

import (
	"github.com/teslashibe/go-rover/pkg/follow"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

// Person is one person sighting in pixel coordinates.
type Person struct {
	Box         follow.BoundingBox
	Confidence  float64
	FrameWidth  int
	FrameHeight int
}

// Locator provides the most recent person sighting.
type Locator interface {
	// Person returns the current sighting, or nil when nobody is
	// visible or the last sighting has gone stale.
	Person() *Person

	// Close releases the locator.
	Close() error
}

// SelectBest picks the person to follow from multiple sightings.
// Priority: confidence * 0.7 + area * 0.3.
func SelectBest(people []Person) *Person {
	if len(people) == 0 {
		return nil
	}

	if len(people) == 1 {
		return &people[0]
	}

	// Find max area for normalization
	maxArea := 0
	for _, p := range people {
		if p.Box.Area() > maxArea {
			maxArea = p.Box.Area()
		}
	}

	bestScore := -1.0
	var best *Person

	for i := range people {
		score := people[i].Confidence * 0.7
		if maxArea > 0 {
			score += float64(people[i].Box.Area()) / float64(maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &people[i]
		}
	}

	return best
}

// personFromDetection converts a wire detection into a sighting,
// clamping the box to the frame bounds.
func personFromDetection(det protocol.DetectionData) *Person {
	if det.FrameWidth <= 0 || det.FrameHeight <= 0 {
		return nil
	}

	box := follow.BoundingBox{
		XMin: clampInt(det.XMin, 0, det.FrameWidth-1),
		YMin: clampInt(det.YMin, 0, det.FrameHeight-1),
		XMax: clampInt(det.XMax, 0, det.FrameWidth-1),
		YMax: clampInt(det.YMax, 0, det.FrameHeight-1),
	}
	if box.XMax <= box.XMin || box.YMax <= box.YMin {
		return nil
	}

	return &Person{
		Box:         box,
		Confidence:  det.Confidence,
		FrameWidth:  det.FrameWidth,
		FrameHeight: det.FrameHeight,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
