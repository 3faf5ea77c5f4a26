package config

import (
	"fmt"
	"sort"
)

// Presets are named variations of DefaultConfig, keyed by controller.
var Presets = map[string]map[string]func(*Config){
	ControllerPID: {
		"hover": func(c *Config) {
			c.Wind.Enabled = false
		},
		"gusty": func(c *Config) {
			c.Wind.Interval = 2
			c.Wind.MaxForce = 1500
		},
		"calm": func(c *Config) {
			c.Wind.MaxForce = 600
			c.Duration = 60
		},
	},
	ControllerLearned: {
		"hover": func(c *Config) {
			c.Wind.Enabled = false
		},
		"gusty": func(c *Config) {
			c.Wind.Interval = 1
			c.Wind.MaxForce = 1500
		},
		"calm": func(c *Config) {
			c.Wind.MaxForce = 600
			c.Duration = 60
		},
	},
}

// GetPreset returns a fresh config for the preset, or nil if it is unknown.
func GetPreset(controller, preset string) *Config {
	cfg := DefaultConfig()
	cfg.Controller = controller
	if err := ApplyPreset(cfg, preset); err != nil {
		return nil
	}
	return cfg
}

// ApplyPreset layers the named preset for cfg.Controller over cfg.
func ApplyPreset(cfg *Config, preset string) error {
	apply, ok := Presets[cfg.Controller][preset]
	if !ok {
		return fmt.Errorf("unknown preset %q for %s (available: %v)", preset, cfg.Controller, ListPresets(cfg.Controller))
	}
	apply(cfg)
	return nil
}

func ListPresets(controller string) []string {
	controllerPresets, ok := Presets[controller]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(controllerPresets))
	for name := range controllerPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
