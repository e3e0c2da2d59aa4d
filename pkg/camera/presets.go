package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLowRes  = "lowres"
	PresetHighRes = "highres"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLowRes:  LowResConfig(),
		PresetHighRes: HighResConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, PresetLowRes, PresetHighRes}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}
