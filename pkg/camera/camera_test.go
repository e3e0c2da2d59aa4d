package camera

import (
	"testing"

	"github.com/teslashibe/go-rover/pkg/perception"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config should validate, got %v", errs)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("default resolution = %dx%d, want 640x480", cfg.Width, cfg.Height)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"width too small", func(c *Config) { c.Width = 100 }},
		{"width over sensor max", func(c *Config) { c.Width = 4000 }},
		{"height too small", func(c *Config) { c.Height = 0 }},
		{"framerate zero", func(c *Config) { c.Framerate = 0 }},
		{"framerate over max", func(c *Config) { c.Framerate = 120 }},
		{"negative device", func(c *Config) { c.DeviceIndex = -1 }},
		{"quality out of range", func(c *Config) { c.Quality = 101 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if errs := cfg.Validate(); len(errs) == 0 {
				t.Error("expected validation errors")
			}
		})
	}
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		preset := GetPreset(name)
		if preset == nil {
			t.Errorf("preset %q not found", name)
			continue
		}
		if errs := preset.Validate(); len(errs) > 0 {
			t.Errorf("preset %q should validate, got %v", name, errs)
		}
	}

	if GetPreset("nope") != nil {
		t.Error("unknown preset should return nil")
	}
}

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager()

	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	// Preset loads first, then overrides apply on top.
	err := m.UpdateConfig(map[string]interface{}{
		"preset":    PresetLowRes,
		"framerate": float64(15), // JSON numbers decode as float64
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Width != 320 || cfg.Height != 240 {
		t.Errorf("resolution = %dx%d, want lowres 320x240", cfg.Width, cfg.Height)
	}
	if cfg.Framerate != 15 {
		t.Errorf("framerate = %d, want override 15", cfg.Framerate)
	}
	if len(applied) != 1 {
		t.Errorf("callback fired %d times, want 1", len(applied))
	}
}

func TestManagerRejectsUnknownPreset(t *testing.T) {
	m := NewManager()
	if err := m.UpdateConfig(map[string]interface{}{"preset": "cinematic"}); err == nil {
		t.Error("expected an error for an unknown preset")
	}
}

func TestManagerRejectsInvalidConfig(t *testing.T) {
	m := NewManager()
	if err := m.UpdateConfig(map[string]interface{}{"width": 10}); err == nil {
		t.Error("expected a validation error")
	}
	if m.GetConfig().Width != 640 {
		t.Error("rejected update should not change the stored config")
	}
}

func TestPlaybackSequence(t *testing.T) {
	frames := []*perception.DepthFrame{
		perception.NewUniformFrame(4, 4, 1000),
		perception.NewUniformFrame(4, 4, 2000),
	}

	p := NewPlayback(frames, false)
	for i, want := range []uint16{1000, 2000} {
		frame, err := p.DepthFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if frame == nil || frame.At(0, 0) != want {
			t.Fatalf("frame %d = %v, want sample %d", i, frame, want)
		}
	}

	// Exhausted non-looping source yields nil without error.
	frame, err := p.DepthFrame()
	if err != nil || frame != nil {
		t.Errorf("exhausted playback = (%v, %v), want (nil, nil)", frame, err)
	}

	p.Reset()
	frame, _ = p.DepthFrame()
	if frame == nil || frame.At(0, 0) != 1000 {
		t.Error("reset should restart from the first frame")
	}
}

func TestPlaybackLoops(t *testing.T) {
	p := NewPlayback([]*perception.DepthFrame{perception.NewUniformFrame(2, 2, 500)}, true)
	for i := 0; i < 5; i++ {
		frame, err := p.DepthFrame()
		if err != nil || frame == nil {
			t.Fatalf("loop read %d failed: (%v, %v)", i, frame, err)
		}
	}
}

func TestPlaybackClonesFrames(t *testing.T) {
	src := perception.NewUniformFrame(2, 2, 700)
	p := NewPlayback([]*perception.DepthFrame{src}, true)

	frame, _ := p.DepthFrame()
	frame.SetRect(0, 0, 2, 2, 9)
	if src.At(0, 0) != 700 {
		t.Error("mutating a played frame must not touch the recording")
	}
}
