// Package camera provides depth frame acquisition for the rover and
// runtime-tunable camera settings. Settings follow the same pattern as
// pkg/follow and pkg/nav for tunable parameters.
package camera

// Config holds the camera configuration.
// These can be modified through the dashboard API at runtime.
type Config struct {
	// === Resolution ===
	Width     int `json:"width"`     // Depth frame width in pixels
	Height    int `json:"height"`    // Depth frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// DeviceIndex selects the video device (/dev/videoN).
	DeviceIndex int `json:"device_index"`

	// Quality is the JPEG quality (1-100) for preview frames
	// streamed to the dashboard.
	Quality int `json:"quality"`
}

// Sensor capabilities for the OAK-D Lite stereo pair
const (
	SensorMaxWidth     = 1280
	SensorMaxHeight    = 800
	SensorMaxFramerate = 60
)

// DefaultConfig returns the recommended configuration.
// 640x480 keeps depth processing cheap on a Pi 5.
func DefaultConfig() Config {
	return Config{
		Width:       640,
		Height:      480,
		Framerate:   30,
		DeviceIndex: 0,
		Quality:     80,
	}
}

// LowResConfig returns a 320x240 configuration for constrained hosts.
func LowResConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	return cfg
}

// HighResConfig returns the full stereo resolution at a reduced framerate.
func HighResConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 800
	cfg.Framerate = 15
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 160 || c.Width > SensorMaxWidth {
		errors = append(errors, "width must be between 160 and 1280")
	}
	if c.Height < 120 || c.Height > SensorMaxHeight {
		errors = append(errors, "height must be between 120 and 800")
	}
	if c.Framerate < 1 || c.Framerate > SensorMaxFramerate {
		errors = append(errors, "framerate must be between 1 and 60")
	}
	if c.DeviceIndex < 0 {
		errors = append(errors, "device_index must not be negative")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}

// Capabilities returns the camera sensor capabilities.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"sensor":        "oak-d-lite",
		"max_width":     SensorMaxWidth,
		"max_height":    SensorMaxHeight,
		"max_framerate": SensorMaxFramerate,
		"depth_unit":    "millimeter",
		"presets":       PresetNames(),
	}
}
