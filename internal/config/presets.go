package config

import (
	"sort"

	"github.com/san-kum/spinsim/internal/device"
	"github.com/san-kum/spinsim/internal/stimulus"
	"github.com/san-kum/spinsim/internal/vecmath"
)

type preset struct {
	description string
	build       func(*Config)
}

var presets = map[string]preset{
	"pma_single": {
		description: "single perpendicular layer, in-plane field sweep, no RF",
		build: func(c *Config) {
			c.Stack.Layers = []device.Layer{{
				ID: 0, Ms: 1.07, Ku: 305e3, Kdir: vecmath.New(0, 0, 1),
				Thickness: 1e-9, Alpha: 0.01,
				AMR: 1, SMR: 0.5, AHE: 2, Rx0: 100, Ry0: 5,
				Width: 1e-6, Length: 1e-6, Hoe: 1,
			}}
			c.Stimulus = stimulus.Spec{
				Mode:     stimulus.ModeH,
				H:        stimulus.Axis{Min: -800e3, Max: 800e3},
				Theta:    stimulus.Fixed(89.9),
				Phi:      stimulus.Fixed(45),
				Steps:    50,
				LLGTime:  4e-9,
				LLGSteps: 4000,
			}
		},
	},
	"spin_valve": {
		description: "in-plane free/reference pair with IEC and spin-diode frequencies",
		build: func(c *Config) {
			c.Stack.Layers = []device.Layer{
				{
					ID: 0, Ms: 1.0, Ku: 1e3, Kdir: vecmath.New(1, 0, 0),
					J: 1e-5, Thickness: 2e-9, Alpha: 0.01, Demag: vecmath.New(0, 0, 1),
					AMR: 0.5, SMR: 0.2, AHE: 0.1, Rx0: 100, Ry0: 5,
					Width: 1e-6, Length: 4e-6, Hoe: 1,
				},
				{
					ID: 1, Ms: 1.6, Ku: 5e5, Kdir: vecmath.New(1, 0, 0),
					Thickness: 3e-9, Alpha: 0.02, Demag: vecmath.New(0, 0, 1),
					AMR: 0.3, SMR: 0.1, Rx0: 120, Ry0: 5,
					Width: 1e-6, Length: 4e-6, Hoe: 1,
				},
			}
			c.Stack.GMR = &device.GMR{RP: 100, RAP: 110}
			c.Stimulus = stimulus.Spec{
				Mode:      stimulus.ModeH,
				H:         stimulus.Axis{Min: -1e5, Max: 1e5},
				Theta:     stimulus.Fixed(90),
				Phi:       stimulus.Fixed(5),
				Steps:     21,
				Back:      true,
				FreqMin:   2e9,
				FreqMax:   10e9,
				FreqSteps: 5,
				IAC:       1e-3,
				IDir:      vecmath.New(1, 0, 0),
				VDir:      vecmath.New(1, 0, 0),
				LLGTime:   2e-9,
				LLGSteps:  4000,
			}
		},
	},
	"saf_trilayer": {
		description: "antiferromagnetically coupled pair under a free layer, azimuth sweep",
		build: func(c *Config) {
			pma := func(id int, ms, ku, th, j float64) device.Layer {
				return device.Layer{
					ID: id, Ms: ms, Ku: ku, Kdir: vecmath.New(0, 0, 1),
					J: j, Thickness: th, Alpha: 0.01,
					AMR: 0.5, SMR: 0.3, AHE: 1, Rx0: 100, Ry0: 5,
					Width: 1e-6, Length: 1e-6, Hoe: 1,
				}
			}
			c.Stack.Layers = []device.Layer{
				pma(0, 1.1, 6e5, 1e-9, -5e-4),
				pma(1, 1.1, 6e5, 1e-9, 1e-4),
				pma(2, 1.0, 3e5, 1.2e-9, 0),
			}
			c.Initial = []vecmath.Vec3{
				vecmath.New(0, 0, 1),
				vecmath.New(0, 0, -1),
				vecmath.New(0, 0, 1),
			}
			c.Stimulus = stimulus.Spec{
				Mode:     stimulus.ModePhi,
				H:        stimulus.Fixed(2e5),
				Theta:    stimulus.Fixed(90),
				Phi:      stimulus.Axis{Min: 0, Max: 360},
				Steps:    37,
				LLGTime:  1e-9,
				LLGSteps: 2000,
			}
		},
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Name = name
	p.build(cfg)
	return cfg
}

// ListPresets returns the preset names in order.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func PresetDescription(name string) string {
	return presets[name].description
}
