// Package sensor provides hardware temperature sensor discovery. Every
// source classifies its readings into a DeviceClass once, at enumeration
// time, so the rest of the program never inspects chip names again.
package sensor

import (
	"context"
	"errors"
	"strings"
)

// ErrSourceUnavailable is returned when the underlying hardware interface
// cannot be read at all.
var ErrSourceUnavailable = errors.New("sensor source unavailable")

// DeviceClass is the coarse category of a hardware sensor.
type DeviceClass int

const (
	Unknown DeviceClass = iota
	CPU
	GPU
	NVMe
)

var classNames = map[DeviceClass]string{
	Unknown: "Unknown",
	CPU:     "CPU",
	GPU:     "GPU",
	NVMe:    "NVMe",
}

func (c DeviceClass) String() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return "Unknown"
}

// ParseClass converts a session log class column back into a DeviceClass.
// Older logs spell NVMe as "NVME"; both are accepted.
func ParseClass(s string) (DeviceClass, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CPU":
		return CPU, true
	case "GPU":
		return GPU, true
	case "NVME":
		return NVMe, true
	case "UNKNOWN":
		return Unknown, true
	}
	return Unknown, false
}

// Reading represents a single temperature reading from a sensor.
type Reading struct {
	Class DeviceClass
	Chip  string // e.g. "coretemp"
	Label string // e.g. "Core 0"
	Temp  int    // whole degrees Celsius
}

// Key returns a unique identifier for this sensor.
func (r Reading) Key() string {
	return r.Chip + "/" + r.Label
}

// Source returns a snapshot of the current sensor readings.
type Source interface {
	Poll(ctx context.Context) ([]Reading, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context) ([]Reading, error)

func (f SourceFunc) Poll(ctx context.Context) ([]Reading, error) {
	return f(ctx)
}

// FirstOf returns the first reading of the given class.
func FirstOf(readings []Reading, class DeviceClass) (Reading, bool) {
	for _, r := range readings {
		if r.Class == class {
			return r, true
		}
	}
	return Reading{}, false
}
