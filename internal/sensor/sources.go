package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// NvidiaSMI reads GPU temperatures via nvidia-smi. A machine without
// nvidia-smi yields no readings and no error so it can always be merged.
type NvidiaSMI struct{}

func (NvidiaSMI) Poll(ctx context.Context) ([]Reading, error) {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil || path == "" {
		return nil, nil
	}

	out, err := exec.CommandContext(ctx, path,
		"--query-gpu=index,name,temperature.gpu",
		"--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: nvidia-smi: %v", ErrSourceUnavailable, err)
	}
	return parseNvidiaQuery(string(out)), nil
}

func parseNvidiaQuery(out string) []Reading {
	var readings []Reading
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.SplitN(line, ", ", 3)
		if len(parts) < 3 {
			continue
		}
		temp, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			continue
		}
		readings = append(readings, Reading{
			Class: GPU,
			Chip:  "nvidia-gpu-" + strings.TrimSpace(parts[0]),
			Label: strings.TrimSpace(parts[1]),
			Temp:  temp,
		})
	}
	return readings
}

// Gopsutil reads temperatures through gopsutil's host sensors API.
type Gopsutil struct{}

// Poll tolerates gopsutil's partial warnings as long as some sensors were
// read.
func (Gopsutil) Poll(ctx context.Context) ([]Reading, error) {
	stats, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(stats) == 0 {
		return nil, fmt.Errorf("%w: gopsutil: %v", ErrSourceUnavailable, err)
	}

	readings := make([]Reading, 0, len(stats))
	for _, st := range stats {
		chip, label := splitSensorKey(st.SensorKey)
		readings = append(readings, Reading{
			Class: Classify(chip),
			Chip:  chip,
			Label: label,
			Temp:  int(math.Trunc(st.Temperature)),
		})
	}
	return readings, nil
}

// splitSensorKey splits gopsutil keys such as "coretemp_core_0" into the
// driver name and the remaining label.
func splitSensorKey(key string) (string, string) {
	chip, label, ok := strings.Cut(key, "_")
	if !ok || label == "" {
		return key, "Unknown"
	}
	return chip, label
}

// Multi merges the readings of several sources in order. It fails only
// when every member fails.
type Multi []Source

func (m Multi) Poll(ctx context.Context) ([]Reading, error) {
	var readings []Reading
	var errs []error
	for _, src := range m {
		r, err := src.Poll(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		readings = append(readings, r...)
	}
	if len(errs) == len(m) && len(m) > 0 {
		return nil, errors.Join(errs...)
	}
	return readings, nil
}

// New builds the named source: "hwmon", "lm-sensors" or "gopsutil".
// nvidia merges in nvidia-smi GPUs and smart merges in SMART drive
// temperatures.
func New(name, hwmonRoot string, nvidia, smart bool) (Source, error) {
	var src Source
	switch name {
	case "", "hwmon":
		src = NewHwmon(hwmonRoot)
	case "lm-sensors":
		src = LMSensors{}
	case "gopsutil":
		src = Gopsutil{}
	default:
		return nil, fmt.Errorf("unknown sensor source %q", name)
	}
	multi := Multi{src}
	if nvidia {
		multi = append(multi, NvidiaSMI{})
	}
	if smart {
		multi = append(multi, Smartctl{})
	}
	if len(multi) == 1 {
		return src, nil
	}
	return multi, nil
}
