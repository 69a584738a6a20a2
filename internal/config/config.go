// Package config loads spinsim run configurations from YAML and turns them
// into sweep jobs and driver options.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/spinsim/internal/device"
	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/llg"
	"github.com/san-kum/spinsim/internal/spectrum"
	"github.com/san-kum/spinsim/internal/stimulus"
	"github.com/san-kum/spinsim/internal/sweep"
	"github.com/san-kum/spinsim/internal/vecmath"
)

type Config struct {
	Name     string         `yaml:"name"`
	Stack    StackConfig    `yaml:"stack"`
	Stimulus stimulus.Spec  `yaml:"stimulus"`
	Initial  []vecmath.Vec3 `yaml:"initial,omitempty"`
	Solver   llg.Options    `yaml:"solver"`
	Run      RunConfig      `yaml:"run"`
	Logging  LoggingConfig  `yaml:"logging"`
	Output   OutputConfig   `yaml:"output"`
}

type StackConfig struct {
	Layers []device.Layer `yaml:"layers"`
	GMR    *device.GMR    `yaml:"gmr,omitempty"`
}

type RunConfig struct {
	Parallel     bool            `yaml:"parallel"`
	Workers      int             `yaml:"workers"`
	PointTimeout time.Duration   `yaml:"point_timeout"`
	Policy       sweep.Policy    `yaml:"policy"`
	BatchSize    int             `yaml:"batch_size"`
	LockIn       spectrum.LockIn `yaml:"lockin"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type OutputConfig struct {
	DataDir string `yaml:"data_dir"`
	Save    bool   `yaml:"save"`
}

// DefaultConfig has every ambient section filled in but no stack or
// stimulus.
func DefaultConfig() *Config {
	return &Config{
		Name:   "spinsim",
		Solver: llg.DefaultOptions(),
		Run: RunConfig{
			Parallel:     true,
			PointTimeout: sweep.DefaultPointTimeout,
			Policy:       sweep.PolicySkip,
			BatchSize:    1,
			LockIn:       spectrum.DefaultLockIn(),
		},
		Logging: LoggingConfig{Level: "info"},
		Output:  OutputConfig{DataDir: "data", Save: true},
	}
}

// Load reads path over DefaultConfig, so omitted sections keep their
// defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base, typically a preset. base is modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the run section; stack and stimulus are validated when
// the job is built.
func (c *Config) Validate() error {
	switch c.Run.Policy {
	case sweep.PolicySkip, sweep.PolicyFail, "":
	default:
		return dynamo.Configf("run.policy", "unknown policy %q (want %s or %s)", c.Run.Policy, sweep.PolicySkip, sweep.PolicyFail)
	}
	if c.Run.Workers < 0 {
		return dynamo.Configf("run.workers", "must be non-negative, got %d", c.Run.Workers)
	}
	if c.Run.BatchSize < 0 {
		return dynamo.Configf("run.batch_size", "must be non-negative, got %d", c.Run.BatchSize)
	}
	if c.Run.PointTimeout < 0 {
		return dynamo.Configf("run.point_timeout", "must be non-negative, got %s", c.Run.PointTimeout)
	}
	return nil
}

// BuildStack validates the layers and applies the optional GMR override.
func (s StackConfig) BuildStack() (*device.Stack, error) {
	var opts []device.StackOption
	if s.GMR != nil {
		opts = append(opts, device.WithGMR(*s.GMR))
	}
	return device.NewStack(s.Layers, opts...)
}

// Job builds the single sweep job this config describes.
func (c *Config) Job() (sweep.Job, error) {
	stack, err := c.Stack.BuildStack()
	if err != nil {
		return sweep.Job{}, err
	}
	return sweep.Job{
		Name:     c.Name,
		Stack:    stack,
		Stimulus: c.Stimulus,
		Initial:  c.Initial,
	}, nil
}

// Options maps the solver and run sections onto driver options.
func (c *Config) Options(logger *slog.Logger) sweep.Options {
	opts := sweep.DefaultOptions()
	opts.Solver = c.Solver
	opts.LockIn = c.Run.LockIn
	opts.Parallel = c.Run.Parallel
	opts.Workers = c.Run.Workers
	opts.PointTimeout = c.Run.PointTimeout
	opts.Policy = c.Run.Policy
	if c.Run.BatchSize > 0 {
		opts.BatchSize = c.Run.BatchSize
	}
	opts.Logger = logger
	return opts
}
