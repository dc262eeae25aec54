package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultHwmonRoot is where the kernel exposes hwmon devices.
const DefaultHwmonRoot = "/sys/class/hwmon"

// Hwmon reads temperatures straight from the sysfs hwmon tree.
type Hwmon struct {
	Root string
	Log  *logrus.Entry
}

// NewHwmon returns a hwmon source rooted at root, or DefaultHwmonRoot when
// root is empty.
func NewHwmon(root string) *Hwmon {
	if root == "" {
		root = DefaultHwmonRoot
	}
	return &Hwmon{Root: root, Log: logrus.WithField("source", "hwmon")}
}

// Poll enumerates every hwmonN device and each of its temp*_input files.
// Value files that cannot be read or parsed are skipped; they are common
// on devices that are suspended or under load.
func (h *Hwmon) Poll(ctx context.Context) ([]Reading, error) {
	entries, err := os.ReadDir(h.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var readings []Reading
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(entry.Name(), "hwmon") {
			continue
		}
		dir := filepath.Join(h.Root, entry.Name())
		readings = append(readings, h.readDevice(dir)...)
	}
	return readings, nil
}

func (h *Hwmon) readDevice(dir string) []Reading {
	nameBytes, err := os.ReadFile(filepath.Join(dir, "name"))
	if err != nil {
		h.debug("skipping device without name", dir, err)
		return nil
	}
	chip := strings.TrimSpace(string(nameBytes))
	class := Classify(chip)

	inputs, _ := filepath.Glob(filepath.Join(dir, "temp*_input"))
	sort.Slice(inputs, func(i, j int) bool {
		return tempIndex(inputs[i]) < tempIndex(inputs[j])
	})

	var readings []Reading
	for _, input := range inputs {
		raw, err := os.ReadFile(input)
		if err != nil {
			h.debug("unreadable temperature", input, err)
			continue
		}
		milli, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			h.debug("unparseable temperature", input, err)
			continue
		}

		label := "Unknown"
		labelPath := strings.TrimSuffix(input, "_input") + "_label"
		if b, err := os.ReadFile(labelPath); err == nil {
			if l := strings.TrimSpace(string(b)); l != "" {
				label = l
			}
		}

		readings = append(readings, Reading{
			Class: class,
			Chip:  chip,
			Label: label,
			Temp:  milli / 1000,
		})
	}
	return readings
}

func (h *Hwmon) debug(msg, path string, err error) {
	if h.Log != nil {
		h.Log.WithField("path", path).WithError(err).Debug(msg)
	}
}

// tempIndex extracts N from ".../tempN_input" so temp10 sorts after temp2.
func tempIndex(path string) int {
	base := strings.TrimPrefix(filepath.Base(path), "temp")
	base = strings.TrimSuffix(base, "_input")
	n, err := strconv.Atoi(base)
	if err != nil {
		return 1 << 30
	}
	return n
}
