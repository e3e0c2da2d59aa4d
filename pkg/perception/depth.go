// Package perception reduces depth frames to obstacle readings for the
// navigation controller. It owns the depth frame type, the front-region
// obstacle detector, and the left/right side scan used while avoiding.
package perception

import (
	"fmt"
)

// DepthFrame is a row-major grid of distance samples in millimeters.
// A zero sample means the sensor produced no return for that pixel.
// Frames are created per camera tick, consumed, and discarded.
type DepthFrame struct {
	Width  int
	Height int
	Data   []uint16
}

// NewDepthFrame wraps data as a depth frame. The slice is retained, not
// copied, and must hold exactly width*height samples.
func NewDepthFrame(width, height int, data []uint16) (*DepthFrame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("depth frame dimensions must be positive, got %dx%d", width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("depth frame data length %d does not match %dx%d", len(data), width, height)
	}
	return &DepthFrame{Width: width, Height: height, Data: data}, nil
}

// NewUniformFrame creates a frame filled with a single distance.
func NewUniformFrame(width, height int, mm uint16) *DepthFrame {
	data := make([]uint16, width*height)
	for i := range data {
		data[i] = mm
	}
	return &DepthFrame{Width: width, Height: height, Data: data}
}

// Clone returns a deep copy of the frame.
func (f *DepthFrame) Clone() *DepthFrame {
	data := make([]uint16, len(f.Data))
	copy(data, f.Data)
	return &DepthFrame{Width: f.Width, Height: f.Height, Data: data}
}

// At returns the sample at pixel (x, y). Out-of-bounds reads return zero.
func (f *DepthFrame) At(x, y int) uint16 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Data[y*f.Width+x]
}

// SetRect fills the half-open rectangle [x0,x1)×[y0,y1) with a distance.
// Coordinates are clipped to the frame.
func (f *DepthFrame) SetRect(x0, y0, x1, y1 int, mm uint16) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > f.Width {
		x1 = f.Width
	}
	if y1 > f.Height {
		y1 = f.Height
	}
	for y := y0; y < y1; y++ {
		row := y * f.Width
		for x := x0; x < x1; x++ {
			f.Data[row+x] = mm
		}
	}
}
