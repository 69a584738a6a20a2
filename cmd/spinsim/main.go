package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/export"
	"github.com/san-kum/spinsim/internal/results"
	"github.com/san-kum/spinsim/internal/storage"
	"github.com/san-kum/spinsim/internal/viz"
)

var (
	dataDir string

	// run
	preset       string
	scenarioFile string
	layersFile   string
	stimulusFile string
	parallel     bool
	workers      int
	ordering     string
	integrator   string
	tolerance    float64
	live         bool
	logLevel     string
	noSave       bool

	// plot
	plotWhat   string
	plotWidth  int
	plotHeight int

	// export
	format    string
	out       string
	svgWhat   string
	svgWidth  int
	svgHeight int

	// snapshot
	showSnapshot bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusFailed.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "spinsim",
		Short:         "macrospin LLG simulator for magnetic multilayers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "data", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [config]",
		Short: "run a field or angle sweep",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "start from a named preset")
	runCmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario file listing several jobs (yaml)")
	runCmd.Flags().StringVar(&layersFile, "layers", "", "tab-separated layer table")
	runCmd.Flags().StringVar(&stimulusFile, "stimulus", "", "tab-separated stimulus table")
	runCmd.Flags().BoolVar(&parallel, "parallel", true, "integrate spin-diode frequencies in parallel")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = NumCPU-1)")
	runCmd.Flags().StringVar(&ordering, "ordering", "sequential", "layer update ordering: sequential or synchronized")
	runCmd.Flags().StringVar(&integrator, "integrator", "rk45", "integrator: rk45, rk4 or euler")
	runCmd.Flags().Float64Var(&tolerance, "tolerance", 0, "adaptive substep tolerance for rk45 (0 = fixed steps)")
	runCmd.Flags().BoolVar(&live, "live", false, "interactive monitor")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn or error")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write results to the data directory")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run (latest if omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotWhat, "what", "all", "rx, ry, rz, peak, diode or all")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as JSON or SVG (latest if omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json or svg")
	exportCmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout if empty)")
	exportCmd.Flags().StringVar(&svgWhat, "what", "rx", "svg quantity: rx, ry, rz, peak, diode or sphere")
	exportCmd.Flags().IntVar(&svgWidth, "width", 640, "svg width")
	exportCmd.Flags().IntVar(&svgHeight, "height", 400, "svg height")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [out] [run_id...]",
		Short: "bundle saved runs into one compressed snapshot (all runs if none given)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  snapshotRuns,
	}
	snapshotCmd.Flags().BoolVar(&showSnapshot, "show", false, "print the header of an existing snapshot instead")

	rootCmd.AddCommand(runCmd, presetsCmd, listCmd, plotCmd, exportCmd, snapshotCmd)
	return rootCmd
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.PresetDescription(name))
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tTIME\tPOINTS\tFAILED\tSTATUS\tINTEG")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Points,
			run.Failed,
			run.Status,
			run.Solver.Integrator,
		)
	}
	return w.Flush()
}

// resolveRun picks args[0] or the most recent run.
func resolveRun(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return st.Latest()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(meta.ID))
	fmt.Println(viz.Metric("mode", meta.Mode))
	fmt.Println(viz.Metric("points", fmt.Sprintf("%d (%d failed)", meta.Points, meta.Failed)))
	fmt.Println(viz.Metric("status", meta.Status))
	fmt.Println()

	o := viz.PlotOptions{Width: plotWidth, Height: plotHeight}
	kinds := []string{plotWhat}
	if plotWhat == "all" {
		kinds = []string{"rx", "ry", "rz", "peak"}
		if len(series.Freqs) > 0 {
			kinds = append(kinds, "diode")
		}
	}

	for _, kind := range kinds {
		var graph string
		switch kind {
		case "peak":
			graph, err = viz.PlotPeak(series, o)
		case "diode":
			graph, err = viz.PlotDiode(series, o)
		default:
			graph, err = viz.PlotResistance(series, kind, o)
		}
		if err != nil {
			if plotWhat == "all" {
				fmt.Println(viz.Subtle.Render(err.Error()))
				continue
			}
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return st.ExportRun(runID, out)
	case "svg":
	default:
		return fmt.Errorf("unknown format %q (want json or svg)", format)
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	var svg string
	if svgWhat == "sphere" {
		last := lastCompleted(series)
		if last == nil {
			return fmt.Errorf("run %s has no completed points", runID)
		}
		svg = export.SphereSVG(last, svgWidth/8, 4)
	} else if svg, err = export.SeriesSVG(series, svgWhat, svgWidth, svgHeight); err != nil {
		return err
	}

	if out == "" || out == "-" {
		_, err = os.Stdout.WriteString(svg)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", out)
	return nil
}

func lastCompleted(s *results.Series) *results.Record {
	for i := len(s.Records) - 1; i >= 0; i-- {
		if !s.Records[i].Failed {
			return s.Records[i]
		}
	}
	return nil
}

func snapshotRuns(cmd *cobra.Command, args []string) error {
	path := args[0]
	if showSnapshot {
		header, err := storage.ReadSnapshotHeader(path)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(header)
	}

	st := storage.New(dataDir)
	ids := args[1:]
	if len(ids) == 0 {
		runs, err := st.List()
		if err != nil {
			return err
		}
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no runs in %s", dataDir)
	}

	snap := &storage.Snapshot{}
	for _, id := range ids {
		series, err := st.LoadSeries(id)
		if err != nil {
			return fmt.Errorf("run %s: %w", id, err)
		}
		series.Name = id
		snap.Series = append(snap.Series, series)
	}
	if err := storage.WriteSnapshot(path, snap); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d runs)\n", path, len(ids))
	return nil
}
