package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/llg"
	"github.com/san-kum/spinsim/internal/logging"
	"github.com/san-kum/spinsim/internal/results"
	"github.com/san-kum/spinsim/internal/storage"
	"github.com/san-kum/spinsim/internal/sweep"
	"github.com/san-kum/spinsim/internal/table"
	"github.com/san-kum/spinsim/internal/tui"
	"github.com/san-kum/spinsim/internal/viz"
)

// loadConfig layers preset, config file, tables and explicit flags, in that
// order.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if len(args) > 0 {
		var err error
		if cfg, err = config.LoadOver(args[0], cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if layersFile != "" {
		layers, err := table.LoadLayers(layersFile)
		if err != nil {
			return nil, err
		}
		cfg.Stack.Layers = layers
		cfg.Initial = nil
	}
	if stimulusFile != "" {
		spec, err := table.LoadStimulus(stimulusFile)
		if err != nil {
			return nil, err
		}
		cfg.Stimulus = spec
	}

	flags := cmd.Flags()
	if flags.Changed("parallel") {
		cfg.Run.Parallel = parallel
	}
	if flags.Changed("workers") {
		cfg.Run.Workers = workers
	}
	if flags.Changed("ordering") {
		cfg.Solver.Ordering = llg.Ordering(ordering)
	}
	if flags.Changed("integrator") {
		cfg.Solver.Integrator = integrator
	}
	if flags.Changed("tolerance") {
		cfg.Solver.Tolerance = tolerance
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("data") {
		cfg.Output.DataDir = dataDir
	}
	if noSave {
		cfg.Output.Save = false
	}
	return cfg, cfg.Validate()
}

func loadJobs(cfg *config.Config) ([]sweep.Job, error) {
	if scenarioFile == "" {
		job, err := cfg.Job()
		if err != nil {
			return nil, err
		}
		return []sweep.Job{job}, nil
	}
	if layersFile != "" || stimulusFile != "" {
		return nil, fmt.Errorf("--layers and --stimulus cannot be combined with --scenario")
	}
	scenario, err := config.LoadScenario(scenarioFile)
	if err != nil {
		return nil, err
	}
	return scenario.SweepJobs()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	jobs, err := loadJobs(cfg)
	if err != nil {
		return err
	}

	var logOut io.Writer = os.Stderr
	if live {
		if err := os.MkdirAll(cfg.Output.DataDir, 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(cfg.Output.DataDir, "spinsim.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.NewLogger(cfg.Logging.Level, logOut)

	pointLog := logging.OpenPointLog(cfg.Output.DataDir, cfg.Logging.Level)
	defer pointLog.Close()

	opts := cfg.Options(logger)
	opts.OnRecord = func(job string, r *results.Record) {
		event := map[string]any{
			"job":        job,
			"index":      r.Index,
			"value":      r.Value,
			"norm_drift": r.NormDrift,
			"failed":     r.Failed,
			"err":        r.Err,
		}
		if !r.Failed {
			event["rx"], event["ry"], event["rz"] = r.Rx, r.Ry, r.Rz
		}
		pointLog.Log(event)
	}

	drv := sweep.New(opts)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	errc := make(chan error, 1)
	go func() { errc <- drv.Run(ctx, jobs...) }()

	if live {
		p := tea.NewProgram(tui.NewMonitor(drv, drv.Updates()), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			drv.Cancel()
			logger.Error("monitor failed", "err", err)
		}
	} else {
		if err := tui.NewPrinter(os.Stdout).Follow(context.Background(), drv.Updates()); err != nil {
			logger.Warn("progress stream ended early", "err", err)
		}
	}
	runErr := <-errc

	state := drv.State()
	fmt.Printf("%s in %v\n", stateStyle(state).Render(state.String()), time.Since(start).Round(time.Millisecond))

	if cfg.Output.Save {
		if err := saveResults(cfg, jobs, drv.Results(), state, start, logger); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func stateStyle(s sweep.State) lipgloss.Style {
	switch s {
	case sweep.Completed:
		return viz.StatusRunning
	case sweep.Cancelled:
		return viz.StatusPaused
	}
	return viz.StatusFailed
}

// saveResults stores one run directory per job that produced records.
func saveResults(cfg *config.Config, jobs []sweep.Job, all []*results.Series, state sweep.State, start time.Time, logger *slog.Logger) error {
	st := storage.New(cfg.Output.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	for i, series := range all {
		if series.Len() == 0 {
			continue
		}
		job := jobs[i]
		status := results.StatusDone.String()
		if sw, err := job.Stimulus.Sweep(); err == nil && series.Len() < sw.Len() {
			status = state.String()
		}
		meta := storage.RunMetadata{
			Name:      series.Name,
			Timestamp: start,
			Status:    status,
			Layers:    job.Stack.Layers(),
			Stimulus:  job.Stimulus.WithDefaults(),
			Solver:    cfg.Solver,
		}
		runID, err := st.Save(meta, series)
		if err != nil {
			return fmt.Errorf("saving %s: %w", series.Name, err)
		}
		logger.Info("run saved", "job", series.Name, "run", runID, "points", series.Len())
		fmt.Printf("run id: %s  (%d points, %d failed)\n", runID, series.Len(), series.Len()-series.Completed())
	}
	return nil
}
