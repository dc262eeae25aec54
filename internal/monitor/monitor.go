// Package monitor presents engine tick events as a live BubbleTea status
// view, or as log lines when no terminal UI is wanted.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/luki/twatch/internal/capture"
	"github.com/luki/twatch/internal/chart"
	"github.com/luki/twatch/internal/history"
	"github.com/luki/twatch/internal/sensor"
)

const historySize = 240

// EventMsg carries one engine event into the program.
type EventMsg capture.Event

// Options control what the live view shows.
type Options struct {
	Policy      capture.Policy
	ShowUnknown bool
}

// Model is the BubbleTea model for the live status view.
type Model struct {
	opts     Options
	cancel   context.CancelFunc
	history  *history.Store
	last     capture.Event
	final    *capture.Event
	width    int
	height   int
	quitting bool
}

// New creates the live view. cancel is invoked when the user quits.
func New(opts Options, cancel context.CancelFunc) Model {
	return Model{
		opts:    opts,
		cancel:  cancel,
		history: history.NewStore(historySize),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// Wait for the engine's terminated event so the session is
			// finalized before the program exits.
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case EventMsg:
		ev := capture.Event(msg)
		if ev.State == capture.Terminated {
			m.final = &ev
			return m, tea.Quit
		}
		m.last = ev
		m.history.Record(ev.Readings, ev.Time)
	}
	return m, nil
}

var (
	colorTitleBg = lipgloss.Color("17")
	colorTitleFg = lipgloss.Color("51")
	colorBorder  = lipgloss.Color("62")
	colorClass   = lipgloss.Color("147")
	colorLabel   = lipgloss.Color("252")
	colorDim     = lipgloss.Color("240")
	colorWarn    = lipgloss.Color("220")
	colorCrit    = lipgloss.Color("196")
)

func (m Model) View() string {
	width := m.width - 2
	if width < 40 {
		width = 78
	}

	sections := []string{m.renderTitle(width), m.renderStatus()}
	if m.last.Tick == 0 {
		sections = append(sections, lipgloss.NewStyle().Foreground(colorDim).Padding(1, 0).Render("Waiting for sensor data..."))
	} else {
		sections = append(sections, m.renderReadings(width))
	}
	if m.final != nil {
		sections = append(sections, m.renderFinal())
	} else if m.quitting {
		sections = append(sections, lipgloss.NewStyle().Foreground(colorDim).Render("stopping..."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().Bold(true).Foreground(colorTitleFg).Render("TRIGGER MONITOR")
	right := lipgloss.NewStyle().Foreground(colorDim).Render(
		fmt.Sprintf("tick %d │ %s │ q:stop", m.last.Tick, m.last.Elapsed.Round(time.Second)))

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderStatus() string {
	dim := lipgloss.NewStyle().Foreground(colorDim)
	switch p := m.opts.Policy.(type) {
	case capture.TemperatureTrigger:
		line := dim.Render(fmt.Sprintf("Range: [Start: %d°C, End: %d°C]  ", p.Lower, p.Upper))
		switch {
		case m.last.Tick == 0:
		case m.last.Armed:
			line += lipgloss.NewStyle().Foreground(colorWarn).Bold(true).
				Render(fmt.Sprintf("Trigger Active: %d°C >= %d°C", m.last.CPU, p.Lower))
		default:
			line += dim.Render("Below Target")
		}
		return line
	case capture.CaptureLimit:
		return dim.Render(fmt.Sprintf("Current: [%d] Target: [%d]", m.last.Tick, p.Target))
	}
	return ""
}

func (m Model) warnCrit() (float64, float64) {
	if p, ok := m.opts.Policy.(capture.TemperatureTrigger); ok {
		return float64(p.Lower), float64(p.Upper)
	}
	return 80, 95
}

func (m Model) renderReadings(width int) string {
	warn, crit := m.warnCrit()
	colorOf := func(v float64) lipgloss.Color { return chart.TempColor(v, warn, crit) }

	sparkW := width - 48
	if sparkW < 10 {
		sparkW = 10
	}

	dim := lipgloss.NewStyle().Foreground(colorDim)
	var rows []string
	for _, r := range m.last.Readings {
		if r.Class == sensor.Unknown && !m.opts.ShowUnknown {
			continue
		}
		class := lipgloss.NewStyle().Width(9).Foreground(colorClass).Bold(true).Render("[" + r.Class.String() + "]")
		label := lipgloss.NewStyle().Width(16).Foreground(colorLabel).Render(truncate(r.Label, 16))
		temp := lipgloss.NewStyle().Width(6).Align(lipgloss.Right).Foreground(colorOf(float64(r.Temp))).
			Render(fmt.Sprintf("%d°C", r.Temp))

		row := class + label + temp
		if h := m.history.Get(r.Key()); h != nil {
			row += " " + chart.Sparkline(h.LastN(sparkW), sparkW, 0, chart.AxisCeiling, colorOf) +
				dim.Render(fmt.Sprintf(" lo %d pk %d", h.Min, h.Peak))
		}
		rows = append(rows, row)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderFinal() string {
	style := lipgloss.NewStyle().Foreground(colorCrit).Bold(true)
	switch m.final.Reason {
	case capture.ReasonTrigger:
		return style.Render(fmt.Sprintf("Limit reached (%d°C).", m.final.CPU))
	case capture.ReasonCaptureLimit:
		return style.Render(fmt.Sprintf("Target reached: [%d]", m.final.Tick))
	}
	return style.Render(string(m.final.Reason))
}

// truncate shortens s to w cells, cutting on grapheme boundaries.
func truncate(s string, w int) string {
	return ansi.Truncate(s, w, "…")
}

// CaptureFunc runs a capture, reporting events to obs.
type CaptureFunc func(ctx context.Context, obs capture.Observer) (capture.Result, error)

// Run starts the live view and runs fn alongside it. The view quits when
// the engine reports termination; quitting the view cancels the capture.
func Run(ctx context.Context, opts Options, fn CaptureFunc, progOpts ...tea.ProgramOption) (capture.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(opts, cancel), progOpts...)

	type outcome struct {
		res capture.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := fn(ctx, func(ev capture.Event) { p.Send(EventMsg(ev)) })
		done <- outcome{res, err}
		// Covers runs that fail before emitting any event.
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		cancel()
	}
	out := <-done
	return out.res, out.err
}
