// Package tui follows a running sweep: a bubbletea monitor for interactive
// terminals and a line printer for everything else.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/spinsim/internal/results"
	"github.com/san-kum/spinsim/internal/sweep"
	"github.com/san-kum/spinsim/internal/vecmath"
	"github.com/san-kum/spinsim/internal/viz"
)

// Controller is the part of sweep.Driver the monitor drives.
type Controller interface {
	Pause()
	Resume()
	Cancel()
	State() sweep.State
}

const historyLen = 120

type jobView struct {
	name    string
	status  results.Status
	index   int
	last    *results.Record
	rx      []float64
	failed  int
	errText string
}

type updateMsg results.Update

type closedMsg struct{ err error }

// Monitor is the tea.Model of a live sweep.
type Monitor struct {
	ctrl  Controller
	queue *results.Queue

	jobs     []*jobView
	byName   map[string]*jobView
	progress float64
	final    results.Status
	closed   bool
	err      error

	cam    *viz.Camera
	width  int
	height int
}

func NewMonitor(ctrl Controller, queue *results.Queue) *Monitor {
	return &Monitor{
		ctrl:   ctrl,
		queue:  queue,
		byName: make(map[string]*jobView),
		final:  -1,
		cam:    viz.NewCamera(),
		width:  80,
		height: 24,
	}
}

func waitUpdate(q *results.Queue) tea.Cmd {
	return func() tea.Msg {
		u, err := q.Next(context.Background())
		if err != nil {
			return closedMsg{err: err}
		}
		return updateMsg(u)
	}
}

func (m *Monitor) Init() tea.Cmd { return waitUpdate(m.queue) }

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case updateMsg:
		m.apply(results.Update(msg))
		return m, waitUpdate(m.queue)
	case closedMsg:
		m.closed = true
		if !errors.Is(msg.err, io.EOF) {
			m.err = msg.err
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *Monitor) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "p", " ":
		if m.ctrl.State() == sweep.Paused {
			m.ctrl.Resume()
		} else {
			m.ctrl.Pause()
		}
	case "r":
		m.ctrl.Resume()
	case "c", "q", "esc":
		if m.closed {
			return m, tea.Quit
		}
		m.ctrl.Cancel()
	case "ctrl+c":
		m.ctrl.Cancel()
		return m, tea.Quit
	case "left", "h":
		m.cam.RotateZ(-0.15)
	case "right", "l":
		m.cam.RotateZ(0.15)
	case "up", "k":
		m.cam.RotateX(-0.15)
	case "down", "j":
		m.cam.RotateX(0.15)
	case "+", "=":
		m.cam.ZoomIn()
	case "-", "_":
		m.cam.ZoomOut()
	}
	return m, nil
}

func (m *Monitor) job(name string) *jobView {
	if jv, ok := m.byName[name]; ok {
		return jv
	}
	jv := &jobView{name: name, index: -1}
	m.byName[name] = jv
	m.jobs = append(m.jobs, jv)
	return jv
}

func (m *Monitor) apply(u results.Update) {
	m.progress = u.Progress
	if u.Terminal() {
		m.final = u.Status
	}
	if u.Job == "" {
		return
	}

	jv := m.job(u.Job)
	jv.status = u.Status
	jv.index = u.Index
	if u.Err != "" {
		jv.errText = u.Err
	}
	if u.Status != results.StatusInProgress {
		return
	}
	for _, r := range u.Records {
		if r.Failed {
			jv.failed++
			jv.rx = append(jv.rx, math.NaN())
		} else {
			jv.last = r
			jv.rx = append(jv.rx, r.Rx)
		}
	}
	if len(jv.rx) > historyLen {
		jv.rx = jv.rx[len(jv.rx)-historyLen:]
	}
}

// Final is the terminal status seen on the queue, or -1 if none arrived.
func (m *Monitor) Final() results.Status { return m.final }

// Err reports a queue error other than the normal end of stream.
func (m *Monitor) Err() error { return m.err }

func (m *Monitor) View() string {
	var b strings.Builder

	state := m.ctrl.State()
	style := viz.StatusRunning
	switch {
	case state == sweep.Paused:
		style = viz.StatusPaused
	case state == sweep.Failed || state == sweep.Cancelled:
		style = viz.StatusFailed
	}
	fmt.Fprintf(&b, "\n %s  %s\n", viz.Title.Render("spinsim"), style.Render(state.String()))
	fmt.Fprintf(&b, " %s %s\n\n", viz.ProgressBar(m.progress, 40), viz.Subtle.Render(fmt.Sprintf("%5.1f%%", m.progress)))

	var current *jobView
	for _, jv := range m.jobs {
		st := viz.StatusStyle(jv.status).Render(jv.status.String())
		line := fmt.Sprintf(" %-18s %s  point %d", jv.name, st, jv.index+1)
		if jv.failed > 0 {
			line += viz.StatusFailed.Render(fmt.Sprintf("  %d failed", jv.failed))
		}
		b.WriteString(line + "\n")
		current = jv
	}

	if current != nil && current.last != nil {
		r := current.last
		b.WriteString("\n")
		b.WriteString(" " + viz.Metric("value", fmt.Sprintf("%.4g", r.Value)) + "\n")
		b.WriteString(" " + viz.Metric("m", r.M.String()) + "\n")
		b.WriteString(" " + viz.Metric("Rx Ry Rz", fmt.Sprintf("%.4g  %.4g  %.4g", r.Rx, r.Ry, r.Rz)) + "\n")
		if f, _ := r.PIMM.Peak(); f > 0 {
			b.WriteString(" " + viz.Metric("PIMM peak", fmt.Sprintf("%.3f GHz", f/1e9)) + "\n")
		}
		b.WriteString(" " + viz.MetricLabel.Render("Rx") + viz.Sparkline(current.rx, 40) + "\n")

		traj := r.Trajectory
		if len(traj) == 0 {
			for _, l := range r.Layers {
				traj = append(traj, []vecmath.Vec3{l})
			}
		}
		w, h := m.sphereSize()
		sphere := viz.RenderSphere(w, h, m.cam, traj)
		b.WriteString("\n" + viz.Panel.Render(strings.TrimRight(sphere, "\n")) + "\n")
	}
	if current != nil && current.errText != "" {
		b.WriteString(" " + viz.StatusFailed.Render(current.errText) + "\n")
	}

	b.WriteString("\n " + viz.KeyHint.Render("p pause/resume  c cancel  arrows rotate  +/- zoom") + "\n")
	return b.String()
}

func (m *Monitor) sphereSize() (int, int) {
	h := max(m.height-20, 8)
	w := min(max(m.width/2, 20), 2*h+4)
	return w, h
}
