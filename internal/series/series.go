// Package series rebuilds plottable time series from a finished session log.
package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/luki/twatch/internal/sensor"
)

// KeyPolicy decides how records are grouped into series.
type KeyPolicy int

const (
	// ByClass keeps one series per device class. The first label seen for
	// a class is chosen and records of that class with any other label
	// are dropped, so redundant sub-sensors do not interleave.
	ByClass KeyPolicy = iota
	// ByLabel keeps every class+label pair as its own series.
	ByLabel
)

// ParseKeyPolicy parses "class" or "label".
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch strings.ToLower(s) {
	case "", "class":
		return ByClass, nil
	case "label":
		return ByLabel, nil
	}
	return ByClass, fmt.Errorf("unknown key policy %q", s)
}

func (p KeyPolicy) String() string {
	if p == ByLabel {
		return "label"
	}
	return "class"
}

// Series is the parsed content of one session log.
type Series struct {
	// Keys lists series keys in order of first appearance.
	Keys []string
	// Samples maps a key to its temperatures in poll order.
	Samples map[string][]float64
	// Chosen maps each class to the label selected under ByClass.
	Chosen map[sensor.DeviceClass]string
	// Max is the highest sample across all series, 0 when there are none.
	Max float64
	// Skipped counts malformed data lines.
	Skipped int

	samples int
}

// Len returns the length of the longest series.
func (s *Series) Len() int {
	n := 0
	for _, v := range s.Samples {
		if len(v) > n {
			n = len(v)
		}
	}
	return n
}

// Parse reads a session log. Comment lines, the header and malformed data
// lines are skipped; only a failing reader returns an error.
func Parse(r io.Reader, policy KeyPolicy) (*Series, error) {
	s := &Series{
		Samples: make(map[string][]float64),
		Chosen:  make(map[sensor.DeviceClass]string),
	}

	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			s.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read session: %w", err)
		}
		s.add(rec, policy)
	}

	return s, nil
}

func (s *Series) add(rec []string, policy KeyPolicy) {
	if len(rec) == 3 && rec[0] == "Type" {
		return
	}
	if len(rec) != 3 {
		s.Skipped++
		return
	}
	class, ok := sensor.ParseClass(rec[0])
	if !ok {
		s.Skipped++
		return
	}
	// Temperatures are whole degrees; this also rejects NaN and Inf.
	deg, err := strconv.Atoi(strings.TrimSpace(rec[2]))
	if err != nil {
		s.Skipped++
		return
	}
	temp := float64(deg)
	label := rec[1]

	var key string
	switch policy {
	case ByLabel:
		key = class.String() + "/" + label
	default:
		chosen, seen := s.Chosen[class]
		if !seen {
			s.Chosen[class] = label
			chosen = label
		}
		if label != chosen {
			return
		}
		key = class.String()
	}

	if _, ok := s.Samples[key]; !ok {
		s.Keys = append(s.Keys, key)
	}
	s.Samples[key] = append(s.Samples[key], temp)
	if s.samples == 0 || temp > s.Max {
		s.Max = temp
	}
	s.samples++
}

// ParseString parses an in-memory session log.
func ParseString(text string, policy KeyPolicy) *Series {
	s, _ := Parse(strings.NewReader(text), policy)
	return s
}

// ParseFile parses the session log at path.
func ParseFile(path string, policy KeyPolicy) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, policy)
}
