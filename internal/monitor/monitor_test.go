package monitor

import (
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/twatch/internal/capture"
	"github.com/luki/twatch/internal/sensor"
)

var trigger = capture.TemperatureTrigger{Lower: 40, Upper: 70}

func tick(n, cpu int, armed bool) EventMsg {
	return EventMsg(capture.Event{
		Tick:   n,
		Time:   time.Date(2026, 2, 21, 14, 0, n, 0, time.UTC),
		Policy: trigger,
		Readings: []sensor.Reading{
			{Class: sensor.CPU, Chip: "coretemp", Label: "Package id 0", Temp: cpu},
			{Class: sensor.Unknown, Chip: "acpitz", Label: "acpi-zone", Temp: 27},
		},
		CPU:    cpu,
		HasCPU: true,
		Armed:  armed,
	})
}

func TestModelShowsReadingsAndStatus(t *testing.T) {
	var m tea.Model = New(Options{Policy: trigger}, nil)

	assert.Contains(t, m.View(), "Waiting for sensor data")

	m, _ = m.Update(tick(1, 38, false))
	assert.Contains(t, m.View(), "Below Target")

	m, _ = m.Update(tick(2, 45, true))
	view := m.View()
	assert.Contains(t, view, "Trigger Active: 45°C >= 40°C")
	assert.Contains(t, view, "Package id 0")
	assert.NotContains(t, view, "acpi-zone", "unknown sensors hidden by default")
}

func TestModelShowUnknown(t *testing.T) {
	var m tea.Model = New(Options{Policy: trigger, ShowUnknown: true}, nil)
	m, _ = m.Update(tick(1, 38, false))
	assert.Contains(t, m.View(), "acpi-zone")
}

func TestModelQuitsOnTermination(t *testing.T) {
	var m tea.Model = New(Options{Policy: trigger}, nil)
	m, _ = m.Update(tick(1, 50, true))

	m, cmd := m.Update(EventMsg(capture.Event{Tick: 2, CPU: 71, State: capture.Terminated, Reason: capture.ReasonTrigger}))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Limit reached (71°C).")
}

func TestModelQuitKeyCancels(t *testing.T) {
	canceled := false
	var m tea.Model = New(Options{Policy: capture.CaptureLimit{Target: 10}}, func() { canceled = true })

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, canceled)
	assert.Nil(t, cmd, "the view waits for the engine to finish")
	assert.Contains(t, m.View(), "stopping...")
	assert.Contains(t, m.View(), "Target: [10]")
}

func TestLogObserver(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	obs := LogObserver(logrus.NewEntry(logger), Options{Policy: trigger})

	obs(capture.Event(tick(1, 38, false)))
	obs(capture.Event(tick(2, 45, true)))
	obs(capture.Event{Tick: 3, CPU: 71, State: capture.Terminated, Reason: capture.ReasonTrigger})

	var infos []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.InfoLevel {
			infos = append(infos, e.Message)
		}
		assert.NotEqual(t, "acpi-zone", e.Data["label"])
	}
	assert.Equal(t, []string{"trigger active: 45°C >= 40°C", "capture finished: temperature limit exceeded"}, infos)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	got := truncate("ab°cdefgh", 4)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "ab°…", got)
	assert.Equal(t, "Core 0", truncate("Core 0", 16))
}
