package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/stimulus"
	"github.com/san-kum/spinsim/internal/sweep"
	"github.com/san-kum/spinsim/internal/vecmath"
)

// Scenario is a scripted work queue: several named jobs run back to back
// by one driver.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Jobs        []ScenarioStep `yaml:"jobs"`
}

// ScenarioStep starts from Preset (if any) and replaces whichever of
// stack, stimulus and initial state it sets.
type ScenarioStep struct {
	Name     string         `yaml:"name"`
	Preset   string         `yaml:"preset"`
	Stack    *StackConfig   `yaml:"stack"`
	Stimulus *stimulus.Spec `yaml:"stimulus"`
	Initial  []vecmath.Vec3 `yaml:"initial"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if len(scenario.Jobs) == 0 {
		return nil, dynamo.Configf("scenario.jobs", "%s: no jobs", path)
	}
	return &scenario, nil
}

// SweepJobs resolves every step into a driver job.
func (s *Scenario) SweepJobs() ([]sweep.Job, error) {
	jobs := make([]sweep.Job, 0, len(s.Jobs))
	for i, step := range s.Jobs {
		cfg, err := step.config()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		job, err := cfg.Job()
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, cfg.Name, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (st ScenarioStep) config() (*Config, error) {
	cfg := DefaultConfig()
	if st.Preset != "" {
		cfg = GetPreset(st.Preset)
		if cfg == nil {
			return nil, dynamo.Configf("scenario.preset", "unknown preset %q (available: %v)", st.Preset, ListPresets())
		}
	}
	if st.Stack != nil {
		cfg.Stack = *st.Stack
		cfg.Initial = nil
	}
	if st.Stimulus != nil {
		cfg.Stimulus = *st.Stimulus
	}
	if st.Initial != nil {
		cfg.Initial = st.Initial
	}
	if len(cfg.Stack.Layers) == 0 {
		return nil, dynamo.Configf("scenario.stack", "step %q has neither a preset nor layers", st.Name)
	}
	if st.Name != "" {
		cfg.Name = st.Name
	}
	return cfg, nil
}
