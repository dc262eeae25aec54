// Package chart renders temperature series as colour-coded terminal
// sparklines.
package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/twatch/internal/series"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// AxisCeiling is the minimum top of the temperature axis.
const AxisCeiling = 110.0

// TempColor returns the colour for a temperature given a warning and a
// critical threshold.
func TempColor(v, warn, crit float64) lipgloss.Color {
	switch {
	case v > crit:
		return lipgloss.Color("196") // red
	case v >= warn:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// SeriesColor returns the line colour for a series key.
func SeriesColor(key string) lipgloss.Color {
	switch {
	case strings.HasPrefix(key, "CPU"):
		return lipgloss.Color("196")
	case strings.HasPrefix(key, "GPU"):
		return lipgloss.Color("40")
	case strings.HasPrefix(key, "NVMe"):
		return lipgloss.Color("33")
	default:
		return lipgloss.Color("250")
	}
}

// Resample squeezes values into width buckets, keeping each bucket's
// maximum so short spikes survive.
func Resample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	out := make([]float64, width)
	for i := range out {
		lo := i * len(values) / width
		hi := (i + 1) * len(values) / width
		peak := values[lo]
		for _, v := range values[lo:hi] {
			peak = math.Max(peak, v)
		}
		out[i] = peak
	}
	return out
}

// Sparkline renders values scaled to [rangeMin, rangeMax], left padded to
// width.
func Sparkline(values []float64, width int, rangeMin, rangeMax float64, color func(float64) lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	values = Resample(values, width)

	span := rangeMax - rangeMin
	if span <= 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		span = 1
	}

	var sb strings.Builder
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if pad := width - len(values); pad > 0 {
		sb.WriteString(dim.Render(strings.Repeat("╌", pad)))
	}

	for _, v := range values {
		norm := math.Max(0, math.Min(1, (v-rangeMin)/span))
		if math.IsNaN(norm) {
			norm = 0
		}
		idx := int(norm * 7)
		style := lipgloss.NewStyle().Foreground(color(v))
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}
	return sb.String()
}

// Renderer draws a parsed session.
type Renderer interface {
	Render(s *series.Series) error
}

var _ Renderer = Terminal{}

// Terminal renders one sparkline row per series.
type Terminal struct {
	Out   io.Writer
	Width int
	Title string
}

// Render writes the chart. The axis spans 0 to the larger of AxisCeiling
// and the series maximum.
func (t Terminal) Render(s *series.Series) error {
	width := t.Width
	if width <= 0 {
		width = 60
	}
	top := math.Max(AxisCeiling, s.Max)

	title := t.Title
	if title == "" {
		title = "Temperature Monitor Graph"
	}
	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleS := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))

	var rows []string
	rows = append(rows, titleS.Render(title)+dimS.Render(fmt.Sprintf("  %d samples, max %.0f°C, axis 0-%.0f°C", s.Len(), s.Max, top)))

	if len(s.Keys) == 0 {
		rows = append(rows, dimS.Render("no data"))
	}

	labelW := 6
	for _, k := range s.Keys {
		if len(k) > labelW {
			labelW = len(k)
		}
	}

	for _, key := range s.Keys {
		vals := s.Samples[key]
		lineColor := SeriesColor(key)
		spark := Sparkline(vals, width, 0, top, func(float64) lipgloss.Color { return lineColor })

		lo, hi, sum := vals[0], vals[0], 0.0
		for _, v := range vals {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}
		label := lipgloss.NewStyle().Width(labelW).Foreground(lineColor).Bold(true).Render(key)
		stats := dimS.Render(fmt.Sprintf(" last %3.0f lo %3.0f avg %5.1f pk %3.0f",
			vals[len(vals)-1], lo, sum/float64(len(vals)), hi))
		rows = append(rows, label+" "+spark+stats)
	}

	_, err := fmt.Fprintln(t.Out, lipgloss.JoinVertical(lipgloss.Left, rows...))
	return err
}
