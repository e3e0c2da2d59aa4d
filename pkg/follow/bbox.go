// Package follow converts person detections into velocity commands that
// center the person and close to a target distance.
package follow

// BoundingBox is an axis-aligned detection rectangle in image pixel
// coordinates. Boxes are produced fresh each frame; there is no
// cross-frame identity.
type BoundingBox struct {
	XMin int
	YMin int
	XMax int
	YMax int
}

// CenterX returns the horizontal center of the box in pixels.
func (b BoundingBox) CenterX() float64 {
	return float64(b.XMin+b.XMax) / 2.0
}

// CenterY returns the vertical center of the box in pixels.
func (b BoundingBox) CenterY() float64 {
	return float64(b.YMin+b.YMax) / 2.0
}

// Width returns the box width in pixels.
func (b BoundingBox) Width() int {
	return b.XMax - b.XMin
}

// Height returns the box height in pixels.
func (b BoundingBox) Height() int {
	return b.YMax - b.YMin
}

// Area returns the box area in square pixels.
func (b BoundingBox) Area() int {
	return b.Width() * b.Height()
}
