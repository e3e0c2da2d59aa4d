package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/perception"
	"gocv.io/x/gocv"
)

// ErrDeviceNotOpen is returned when reading from a device that is not open.
var ErrDeviceNotOpen = errors.New("camera device is not open")

// DepthSource produces depth frames for the obstacle detector.
type DepthSource interface {
	// DepthFrame reads the next depth frame. A nil frame with a nil
	// error means the source had nothing ready this tick.
	DepthFrame() (*perception.DepthFrame, error)

	// Close releases the source.
	Close() error
}

// Device reads 16-bit depth frames from a UVC video device using GoCV.
// The OAK-D Lite exposes its stereo depth stream this way when running
// the UVC depth firmware.
type Device struct {
	cfg     Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
}

var _ DepthSource = (*Device)(nil)

// OpenDevice opens the configured video device for depth capture.
func OpenDevice(cfg Config) (*Device, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config invalid: %v", errs)
	}

	d := &Device{cfg: cfg}
	if err := d.open(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) open() error {
	capture, err := gocv.OpenVideoCapture(d.cfg.DeviceIndex)
	if err != nil {
		return fmt.Errorf("open video device %d: %w", d.cfg.DeviceIndex, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(d.cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(d.cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(d.cfg.Framerate))

	d.capture = capture
	log.Info("depth camera open", "device", d.cfg.DeviceIndex, "width", d.cfg.Width, "height", d.cfg.Height)
	return nil
}

// Reconfigure closes and reopens the device with new settings.
// Wire this as the camera manager's OnConfigChange callback.
func (d *Device) Reconfigure(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("camera config invalid: %v", errs)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture != nil {
		d.capture.Close()
		d.capture = nil
	}
	d.cfg = cfg
	return d.open()
}

// DepthFrame reads one depth frame from the device.
func (d *Device) DepthFrame() (*perception.DepthFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil, ErrDeviceNotOpen
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := d.capture.Read(&mat); !ok {
		return nil, errors.New("failed to read frame from depth camera")
	}
	if mat.Empty() {
		return nil, errors.New("captured depth frame is empty")
	}

	return matToDepth(mat)
}

// Close closes the device and releases resources.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil
	return err
}

// matToDepth converts a 16-bit single-channel Mat into a depth frame.
// The sample values are millimeters, matching the OAK-D depth output.
func matToDepth(mat gocv.Mat) (*perception.DepthFrame, error) {
	if mat.Type() != gocv.MatTypeCV16UC1 {
		return nil, fmt.Errorf("unsupported depth format %v, want 16UC1", mat.Type())
	}

	vals, err := mat.DataPtrUint16()
	if err != nil {
		return nil, fmt.Errorf("read depth data: %w", err)
	}

	// The Mat buffer is reused by the capture loop, so copy out.
	data := make([]uint16, len(vals))
	copy(data, vals)

	return perception.NewDepthFrame(mat.Cols(), mat.Rows(), data)
}
