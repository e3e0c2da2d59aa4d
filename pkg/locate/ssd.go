package locate

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-rover/pkg/debug"
	"github.com/teslashibe/go-rover/pkg/follow"
	"gocv.io/x/gocv"
)

// personClassID is the person class in the PASCAL VOC label set that
// MobileNet-SSD was trained on.
const personClassID = 15

// SSDConfig holds MobileNet-SSD detector configuration
type SSDConfig struct {
	PrototxtPath     string  // Path to Caffe prototxt
	ModelPath        string  // Path to Caffe weights
	ConfidenceThresh float32 // Minimum confidence (default 0.5)
	InputSize        int     // Model input size (300 for MobileNet-SSD)
}

// DefaultSSDConfig returns production defaults for MobileNet-SSD
func DefaultSSDConfig() SSDConfig {
	return SSDConfig{
		PrototxtPath:     "models/mobilenet_ssd.prototxt",
		ModelPath:        "models/mobilenet_ssd.caffemodel",
		ConfidenceThresh: 0.5,
		InputSize:        300,
	}
}

// SSDDetector finds people in color frames using MobileNet-SSD.
type SSDDetector struct {
	net    gocv.Net
	config SSDConfig
	mu     sync.Mutex // Protects inference
}

// NewSSD creates a new MobileNet-SSD person detector
func NewSSD(cfg SSDConfig) (*SSDDetector, error) {
	if _, err := os.Stat(cfg.PrototxtPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("prototxt not found: %s", cfg.PrototxtPath)
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromCaffe(cfg.PrototxtPath, cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load SSD model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &SSDDetector{
		net:    net,
		config: cfg,
	}, nil
}

// Detect finds people in the color frame.
func (d *SSDDetector) Detect(img gocv.Mat) ([]Person, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	imgW := img.Cols()
	imgH := img.Rows()

	// MobileNet-SSD preprocessing: scale to [-1, 1] around 127.5
	size := image.Pt(d.config.InputSize, d.config.InputSize)
	blob := gocv.BlobFromImage(img, 1.0/127.5, size, gocv.NewScalar(127.5, 127.5, 127.5, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	// SSD output shape: [1, 1, N, 7]
	// Each detection: [image_id, label, confidence, x_min, y_min, x_max, y_max]
	// with box coordinates normalized to 0-1.
	var people []Person
	for i := 0; i < output.Total(); i += 7 {
		confidence := output.GetFloatAt(0, i+2)
		if confidence < d.config.ConfidenceThresh {
			continue
		}
		if int(output.GetFloatAt(0, i+1)) != personClassID {
			continue
		}

		xMin := clampInt(int(output.GetFloatAt(0, i+3)*float32(imgW)), 0, imgW-1)
		yMin := clampInt(int(output.GetFloatAt(0, i+4)*float32(imgH)), 0, imgH-1)
		xMax := clampInt(int(output.GetFloatAt(0, i+5)*float32(imgW)), 0, imgW-1)
		yMax := clampInt(int(output.GetFloatAt(0, i+6)*float32(imgH)), 0, imgH-1)
		if xMax <= xMin || yMax <= yMin {
			continue
		}

		people = append(people, Person{
			Box:         follow.BoundingBox{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax},
			Confidence:  float64(confidence),
			FrameWidth:  imgW,
			FrameHeight: imgH,
		})
	}

	if len(people) > 0 {
		debug.Log("🔍 SSD found %d person(s)\n", len(people))
	}

	return people, nil
}

// Close releases the detector resources
func (d *SSDDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.net.Close()
	return nil
}
