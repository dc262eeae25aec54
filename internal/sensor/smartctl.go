package sensor

import (
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultSmartDevices matches the SATA disks smartctl is asked about.
const DefaultSmartDevices = "/dev/sd?"

// Smartctl reads SATA drive temperatures from SMART attributes. Like
// NvidiaSMI it yields nothing when smartctl is not installed, and drives
// that cannot be queried (usually for lack of privileges) are skipped.
// Drives have no device class of their own, so readings are Unknown.
type Smartctl struct {
	// Devices is a glob, DefaultSmartDevices when empty.
	Devices string
}

func (s Smartctl) Poll(ctx context.Context) ([]Reading, error) {
	if path, err := exec.LookPath("smartctl"); err != nil || path == "" {
		return nil, nil
	}

	pattern := s.Devices
	if pattern == "" {
		pattern = DefaultSmartDevices
	}
	drives, _ := filepath.Glob(pattern)

	var readings []Reading
	for _, dev := range drives {
		out, err := smartctl(ctx, "-A", dev)
		if err != nil {
			continue
		}
		temp, ok := parseSmartTemp(out)
		if !ok {
			continue
		}

		label := filepath.Base(dev)
		if model := smartModel(ctx, dev); model != "" {
			label = model + " (" + label + ")"
		}
		readings = append(readings, Reading{
			Class: Unknown,
			Chip:  "smart-" + filepath.Base(dev),
			Label: label,
			Temp:  temp,
		})
	}
	return readings, nil
}

// smartctl runs smartctl through passwordless sudo first, then directly.
func smartctl(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "sudo", append([]string{"-n", "smartctl"}, args...)...).Output()
	if err != nil {
		out, err = exec.CommandContext(ctx, "smartctl", args...).Output()
	}
	return string(out), err
}

// parseSmartTemp returns the raw value of attribute 194
// (Temperature_Celsius), falling back to 190 (Airflow_Temperature_Cel).
// Attribute rows are: ID NAME FLAG VALUE WORST THRESH TYPE UPDATED
// WHEN_FAILED RAW_VALUE...
func parseSmartTemp(output string) (int, bool) {
	for _, id := range []string{"194", "190"} {
		for _, line := range strings.Split(output, "\n") {
			f := strings.Fields(line)
			if len(f) < 10 || f[0] != id || !strings.Contains(f[1], "Temperature") {
				continue
			}
			raw := f[9]
			if i := strings.IndexFunc(raw, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
				raw = raw[:i]
			}
			if v, err := strconv.Atoi(raw); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func smartModel(ctx context.Context, dev string) string {
	out, err := smartctl(ctx, "-i", dev)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(out, "\n") {
		for _, prefix := range []string{"Device Model:", "Model Number:"} {
			if strings.HasPrefix(line, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(line, prefix))
			}
		}
	}
	return ""
}
