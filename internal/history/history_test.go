package history

import (
	"testing"
	"time"

	"github.com/luki/twatch/internal/sensor"
)

func TestBuffer(t *testing.T) {
	h := NewBuffer(5)

	now := time.Now()
	for i := 0; i < 7; i++ {
		h.Push(30+i, now.Add(time.Duration(i)*time.Second))
	}

	if h.Len() != 5 {
		t.Errorf("expected 5 points, got %d", h.Len())
	}
	if h.Last() != 36 {
		t.Errorf("Last(): got %d, want 36", h.Last())
	}
	if h.Min != 30 {
		t.Errorf("Min: got %d, want 30", h.Min)
	}
	if h.Peak != 36 {
		t.Errorf("Peak: got %d, want 36", h.Peak)
	}
	if h.Avg() != 34 {
		t.Errorf("Avg: got %f, want 34", h.Avg())
	}

	vals := h.LastN(3)
	want := []float64{34, 35, 36}
	if len(vals) != 3 {
		t.Fatalf("LastN(3): got %d values, want 3", len(vals))
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("LastN(3)[%d] = %f, want %f", i, vals[i], want[i])
		}
	}
}

func TestPointsOrder(t *testing.T) {
	h := NewBuffer(3)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)
	for i := 0; i < 4; i++ {
		h.Push(40+i, base.Add(time.Duration(i)*time.Second))
	}

	pts := h.Points()
	if len(pts) != 3 {
		t.Fatalf("Points(): got %d, want 3", len(pts))
	}
	if pts[0].Temp != 41 || pts[2].Temp != 43 {
		t.Errorf("Points(): got %+v", pts)
	}
	if pts[2].Time != base.Add(3*time.Second) {
		t.Errorf("last point time: got %v", pts[2].Time)
	}
}

func TestEmptyBuffer(t *testing.T) {
	h := NewBuffer(4)
	if h.Last() != 0 || h.Avg() != 0 || h.LastN(2) != nil {
		t.Error("empty buffer should report zero values")
	}
}

func TestStoreRecord(t *testing.T) {
	s := NewStore(10)
	now := time.Now()
	readings := []sensor.Reading{
		{Class: sensor.CPU, Chip: "coretemp", Label: "Core 0", Temp: 45},
		{Class: sensor.NVMe, Chip: "nvme", Label: "Composite", Temp: 36},
	}
	s.Record(readings, now)
	s.Record(readings, now.Add(time.Second))

	b := s.Get("coretemp/Core 0")
	if b == nil || b.Len() != 2 {
		t.Fatalf("expected two points for Core 0, got %+v", b)
	}
	if s.Get("missing") != nil {
		t.Error("expected nil for unknown key")
	}
}
