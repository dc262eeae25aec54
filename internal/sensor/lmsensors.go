package sensor

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// LMSensors reads temperatures by running the lm-sensors `sensors` tool.
type LMSensors struct {
	// Command defaults to "sensors".
	Command string
}

// Poll runs `sensors` and parses its human-readable output.
func (s LMSensors) Poll(ctx context.Context) ([]Reading, error) {
	name := s.Command
	if name == "" {
		name = "sensors"
	}
	out, err := exec.CommandContext(ctx, name).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, name, err)
	}
	return ParseSensorsText(string(out)), nil
}

var (
	adapterRe = regexp.MustCompile(`^Adapter:\s+(.+)$`)
	tempValRe = regexp.MustCompile(`([+-]?\d+\.?\d*)°C`)
)

// ParseSensorsText parses the human-readable `sensors` output. Chip
// headers are non-indented lines without a temperature; each following
// "label: +NN.N°C" line becomes a Reading of that chip. Fractional
// degrees are truncated.
func ParseSensorsText(output string) []Reading {
	var readings []Reading
	var chip string
	var class DeviceClass

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if adapterRe.MatchString(line) {
			continue
		}

		if strings.Contains(line, "°C") {
			idx := strings.Index(line, ":")
			if idx < 0 {
				continue
			}
			label := strings.TrimSpace(line[:idx])
			m := tempValRe.FindStringSubmatch(line[idx+1:])
			if m == nil {
				continue
			}
			temp, err := strconv.ParseFloat(m[1], 64)
			if err != nil || temp < -200 {
				continue
			}
			readings = append(readings, Reading{
				Class: class,
				Chip:  chip,
				Label: label,
				Temp:  int(math.Trunc(temp)),
			})
			continue
		}

		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			chip = strings.TrimSpace(line)
			class = Classify(chip)
		}
	}

	return readings
}
