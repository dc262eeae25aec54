// Package power reads the instantaneous battery discharge rate.
package power

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is where the kernel exposes power supplies.
const DefaultRoot = "/sys/class/power_supply"

// Read returns the power draw of BAT0 in watts. power_now is reported in
// microwatts.
func Read(root string) (float64, error) {
	if root == "" {
		root = DefaultRoot
	}
	raw, err := os.ReadFile(filepath.Join(root, "BAT0", "power_now"))
	if err != nil {
		return 0, fmt.Errorf("BAT0 not found: %w", err)
	}
	micro, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse power_now: %w", err)
	}
	return micro / 1_000_000, nil
}
