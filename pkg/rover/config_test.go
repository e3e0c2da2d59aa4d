package rover

import (
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty id", func(c *Config) { c.RoverID = "" }, "rover id"},
		{"zero tick rate", func(c *Config) { c.TickHz = 0 }, "tick rate"},
		{"tick rate too high", func(c *Config) { c.TickHz = 500 }, "tick rate"},
		{"negative camera", func(c *Config) { c.CameraIndex = -1 }, "camera index"},
		{"negative vision", func(c *Config) { c.VisionIndex = -2 }, "vision index"},
		{"bad preset", func(c *Config) { c.FollowPreset = "turbo" }, "preset"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestFollowConfigPresets(t *testing.T) {
	cfg := DefaultConfig()

	cfg.FollowPreset = "slow"
	slow := cfg.FollowConfig()

	cfg.FollowPreset = "aggressive"
	fast := cfg.FollowConfig()

	if slow.MaxLinearSpeed >= fast.MaxLinearSpeed {
		t.Errorf("slow preset should cap speed below aggressive: %.2f vs %.2f",
			slow.MaxLinearSpeed, fast.MaxLinearSpeed)
	}

	cfg.FollowPreset = "default"
	if err := cfg.FollowConfig().Validate(); err != nil {
		t.Errorf("default follow tuning invalid: %v", err)
	}
}
