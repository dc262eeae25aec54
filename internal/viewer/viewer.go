// Package viewer implements the recorded session browser TUI with tick
// scrubbing, session navigation, and sparkline windows.
package viewer

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/luki/twatch/internal/chart"
	"github.com/luki/twatch/internal/series"
	"github.com/luki/twatch/internal/store"
)

// skip is how many ticks H/L move the cursor.
const skip = 50

// Loader parses one session.
type Loader func(id int) (*series.Series, error)

// Run launches the browser over every session in st, starting at the latest.
func Run(st *store.Store, policy series.KeyPolicy) error {
	ids, err := st.IDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%s: %w", st.Dir(), store.ErrNoSessions)
	}

	load := func(id int) (*series.Series, error) {
		return series.ParseFile(st.Path(id), policy)
	}
	p := tea.NewProgram(
		New(ids, load),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorAccent   = lipgloss.Color("214")
	colorCrit     = lipgloss.Color("196")
)

// ── Model ────────────────────────────────────────────────────────────

// Model browses parsed sessions. ids must be ascending and non-empty.
type Model struct {
	ids    []int          // available session ids
	idx    int            // currently selected session
	load   Loader         // parses a session by id
	s      *series.Series // current session
	cursor int            // tick cursor position
	scroll int            // vertical scroll offset
	width  int
	height int
	err    error
}

// New opens the browser on the last (newest) id.
func New(ids []int, load Loader) Model {
	m := Model{ids: ids, idx: len(ids) - 1, load: load}
	m.loadSession()
	return m
}

func (m *Model) loadSession() {
	s, err := m.load(m.ids[m.idx])
	m.err = err
	if err != nil {
		s = &series.Series{Samples: map[string][]float64{}}
	}
	m.s = s
	m.cursor = s.Len() - 1
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scroll = 0
}

// Session returns the selected session id.
func (m Model) Session() int {
	return m.ids[m.idx]
}

// Cursor returns the selected tick index.
func (m Model) Cursor() int {
	return m.cursor
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		last := m.s.Len() - 1
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < last {
				m.cursor++
			}
		case "shift+left", "H":
			m.cursor = max(m.cursor-skip, 0)
		case "shift+right", "L":
			m.cursor = max(min(m.cursor+skip, last), 0)
		case "home":
			m.cursor = 0
		case "end":
			m.cursor = max(last, 0)

		case "[":
			if m.idx > 0 {
				m.idx--
				m.loadSession()
			}
		case "]":
			if m.idx < len(m.ids)-1 {
				m.idx++
				m.loadSession()
			}

		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := max(m.width-2, 40)

	sections := []string{m.renderTitle(contentWidth)}

	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ERROR: %v", m.err)))
	}

	if m.s.Len() == 0 {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render("No data in this session."))
	} else {
		sections = append(sections, m.renderCursorInfo(contentWidth), m.renderPanel(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	lines := strings.Split(lipgloss.JoinVertical(lipgloss.Left, sections...), "\n")
	visible := max(m.height, 5)
	scroll := min(m.scroll, max(len(lines)-visible, 0))
	end := min(scroll+visible, len(lines))
	return strings.Join(lines[scroll:end], "\n")
}

func (m Model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().Bold(true).Foreground(colorTitleFg).Render("SESSION HISTORY")

	right := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).
		Render(fmt.Sprintf("session %d", m.Session())) +
		lipgloss.NewStyle().Foreground(colorDim).
			Render(fmt.Sprintf("  [ %d/%d ]  %d ticks, %d series, max %.0f°C",
				m.idx+1, len(m.ids), m.s.Len(), len(m.s.Keys), m.s.Max))

	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)
	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderCursorInfo(width int) string {
	tick := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).
		Render(fmt.Sprintf("tick %d", m.cursor+1))
	pos := lipgloss.NewStyle().Foreground(colorDim).
		Render(fmt.Sprintf("  of %d", m.s.Len()))

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render("  " + tick + pos + "  " + m.renderScrubber(max(width-30, 10)))
}

// renderScrubber draws the cursor position with a tick mark every skip
// samples.
func (m Model) renderScrubber(width int) string {
	n := m.s.Len()
	if n == 0 || width <= 0 {
		return ""
	}

	pos := 0
	if n > 1 {
		pos = min(m.cursor*(width-1)/(n-1), width-1)
	}

	var sb strings.Builder
	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	curS := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i := 0; i < width; i++ {
		if i == pos {
			sb.WriteString(curS.Render("◆"))
			continue
		}
		if n > 1 && i > 0 {
			slot, prev := i*(n-1)/(width-1), (i-1)*(n-1)/(width-1)
			if slot/skip != prev/skip {
				sb.WriteString(tickS.Render("│"))
				continue
			}
		}
		sb.WriteString(dimS.Render("─"))
	}
	return sb.String()
}

func (m Model) renderPanel(totalWidth int) string {
	innerWidth := max(totalWidth-4, 30)
	chartWidth := min(max(innerWidth-60, 15), 140)
	top := math.Max(chart.AxisCeiling, m.s.Max)

	labelW, tempW := 16, 8
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	rows := []string{
		lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(labelW).Render("series") + " " +
			lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(tempW).Align(lipgloss.Right).Render("value"),
		lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(strings.Repeat("─", innerWidth)),
	}

	for _, key := range m.s.Keys {
		vals := m.s.Samples[key]
		if len(vals) == 0 {
			continue
		}
		color := chart.SeriesColor(key)

		label := lipgloss.NewStyle().Foreground(colorLabel).Bold(true).Width(labelW).Render(truncate(key, labelW))

		cur := "--"
		if m.cursor < len(vals) {
			cur = fmt.Sprintf("%.0f°C", vals[m.cursor])
		}
		temp := lipgloss.NewStyle().Width(tempW).Align(lipgloss.Right).Foreground(color).Render(cur)

		window := sparkWindow(vals, m.cursor, chartWidth)
		spark := chart.Sparkline(window, chartWidth, 0, top, func(float64) lipgloss.Color { return color })
		frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
		frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

		lo, pk, avg := stats(vals)
		st := dimS.Render("avg") + valS.Render(fmt.Sprintf("%5.1f", avg)) +
			dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", lo)) +
			dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", pk))

		rows = append(rows, label+" "+temp+" "+frameL+spark+frameR+" "+st)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  h/l") + keyS.Render(":scrub") +
		dimS.Render("  H/L") + keyS.Render(fmt.Sprintf(":skip %d", skip)) +
		dimS.Render("  home/end") + keyS.Render(":jump") +
		dimS.Render("  [/]") + keyS.Render(":session") +
		dimS.Render("  j/k") + keyS.Render(":scroll")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

// ── Helpers ──────────────────────────────────────────────────────────

// sparkWindow returns up to width values ending at cursor.
func sparkWindow(vals []float64, cursor, width int) []float64 {
	end := min(cursor+1, len(vals))
	start := max(end-width, 0)
	return vals[start:end]
}

func stats(vals []float64) (lo, pk, avg float64) {
	lo, pk = math.MaxFloat64, -math.MaxFloat64
	for _, v := range vals {
		lo = math.Min(lo, v)
		pk = math.Max(pk, v)
		avg += v
	}
	return lo, pk, avg / float64(len(vals))
}

// truncate shortens s to w cells, cutting on grapheme boundaries.
func truncate(s string, w int) string {
	return ansi.Truncate(s, w, "…")
}
