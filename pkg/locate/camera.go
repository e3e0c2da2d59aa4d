package locate

import (
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"gocv.io/x/gocv"
)

// Config holds in-process camera locator settings.
type Config struct {
	DeviceIndex int           // Color camera device (/dev/videoN)
	Interval    time.Duration // Time between detection passes
	StaleAfter  time.Duration // How long a sighting stays valid
	JPEGQuality int           // Preview frame encode quality (1-100)
}

// DefaultConfig returns production defaults for the camera locator.
func DefaultConfig() Config {
	return Config{
		DeviceIndex: 0,
		Interval:    100 * time.Millisecond,
		StaleAfter:  500 * time.Millisecond,
		JPEGQuality: 80,
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.DeviceIndex < 0 {
		return fmt.Errorf("device index must not be negative, got %d", c.DeviceIndex)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("detection interval must be positive, got %v", c.Interval)
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("stale window must be positive, got %v", c.StaleAfter)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be 1-100, got %d", c.JPEGQuality)
	}
	return nil
}

// CameraLocator runs person detection on color camera frames in a
// background loop and caches the best sighting.
type CameraLocator struct {
	cfg      Config
	detector *SSDDetector
	capture  *gocv.VideoCapture

	mu      sync.RWMutex
	latest  *Person
	seenAt  time.Time
	preview []byte // Latest frame as JPEG for the dashboard
	frameID uint64
	frameW  int
	frameH  int

	now     func() time.Time
	closeCh chan struct{}
	done    sync.WaitGroup
}

var _ Locator = (*CameraLocator)(nil)

// NewCameraLocator opens the color camera and starts the detection loop.
func NewCameraLocator(cfg Config, detector *SSDDetector) (*CameraLocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("locator config invalid: %w", err)
	}
	if detector == nil {
		return nil, fmt.Errorf("locator needs a detector")
	}

	capture, err := gocv.OpenVideoCapture(cfg.DeviceIndex)
	if err != nil {
		return nil, fmt.Errorf("open color camera %d: %w", cfg.DeviceIndex, err)
	}

	l := &CameraLocator{
		cfg:      cfg,
		detector: detector,
		capture:  capture,
		now:      time.Now,
		closeCh:  make(chan struct{}),
	}

	l.done.Add(1)
	go l.loop()

	log.Info("camera locator started", "device", cfg.DeviceIndex, "interval", cfg.Interval)
	return l, nil
}

func (l *CameraLocator) loop() {
	defer l.done.Done()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-l.closeCh:
			return
		case <-ticker.C:
		}

		if ok := l.capture.Read(&img); !ok || img.Empty() {
			continue
		}

		people, err := l.detector.Detect(img)
		if err != nil {
			log.Warn("person detection failed", "error", err)
			continue
		}

		var preview []byte
		if buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, l.cfg.JPEGQuality}); err == nil {
			preview = make([]byte, len(buf.GetBytes()))
			copy(preview, buf.GetBytes())
			buf.Close()
		}

		best := SelectBest(people)

		l.mu.Lock()
		l.frameW, l.frameH = img.Cols(), img.Rows()
		if best != nil {
			l.latest = best
			l.seenAt = l.now()
		}
		if preview != nil {
			l.preview = preview
			l.frameID++
		}
		l.mu.Unlock()
	}
}

// Person returns the latest sighting if it is still fresh.
func (l *CameraLocator) Person() *Person {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.latest == nil || l.now().Sub(l.seenAt) > l.cfg.StaleAfter {
		return nil
	}
	p := *l.latest
	return &p
}

// FrameSize returns the capture dimensions, zero before the first frame.
func (l *CameraLocator) FrameSize() (int, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frameW, l.frameH
}

// Preview returns the latest color frame as JPEG with its frame id.
// Returns nil before the first frame arrives.
func (l *CameraLocator) Preview() ([]byte, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.preview == nil {
		return nil, 0
	}
	frame := make([]byte, len(l.preview))
	copy(frame, l.preview)
	return frame, l.frameID
}

// Close stops the loop and releases the camera and detector.
func (l *CameraLocator) Close() error {
	close(l.closeCh)
	l.done.Wait()

	err := l.capture.Close()
	if cerr := l.detector.Close(); err == nil {
		err = cerr
	}
	return err
}
