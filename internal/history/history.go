// Package history keeps a bounded window of recent readings per sensor
// with min/peak/avg statistics for the live status display.
package history

import (
	"time"

	"github.com/luki/twatch/internal/sensor"
)

// Point is a single data point in the temperature history.
type Point struct {
	Temp int
	Time time.Time
}

// Buffer is a fixed-capacity ring of points for one sensor. Min and Peak
// cover every point ever pushed, not only the retained window.
type Buffer struct {
	points []Point
	head   int
	full   bool
	Min    int
	Peak   int
	seen   int
}

// NewBuffer creates a buffer holding at most capacity points.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{points: make([]Point, capacity)}
}

// Push adds a reading, evicting the oldest one when full.
func (b *Buffer) Push(temp int, t time.Time) {
	b.points[b.head] = Point{Temp: temp, Time: t}
	b.head = (b.head + 1) % len(b.points)
	if b.head == 0 {
		b.full = true
	}

	if b.seen == 0 || temp < b.Min {
		b.Min = temp
	}
	if b.seen == 0 || temp > b.Peak {
		b.Peak = temp
	}
	b.seen++
}

// Len returns the number of retained points.
func (b *Buffer) Len() int {
	if b.full {
		return len(b.points)
	}
	return b.head
}

// Points returns the retained points, oldest first.
func (b *Buffer) Points() []Point {
	if !b.full {
		out := make([]Point, b.head)
		copy(out, b.points[:b.head])
		return out
	}
	out := make([]Point, 0, len(b.points))
	out = append(out, b.points[b.head:]...)
	return append(out, b.points[:b.head]...)
}

// Last returns the most recent temperature, or 0 if empty.
func (b *Buffer) Last() int {
	if b.Len() == 0 {
		return 0
	}
	i := b.head - 1
	if i < 0 {
		i = len(b.points) - 1
	}
	return b.points[i].Temp
}

// Avg returns the average temperature of the retained points.
func (b *Buffer) Avg() float64 {
	n := b.Len()
	if n == 0 {
		return 0
	}
	sum := 0
	for _, p := range b.Points() {
		sum += p.Temp
	}
	return float64(sum) / float64(n)
}

// LastN returns up to n of the most recent temperatures, oldest first.
func (b *Buffer) LastN(n int) []float64 {
	pts := b.Points()
	if n <= 0 || len(pts) == 0 {
		return nil
	}
	if len(pts) > n {
		pts = pts[len(pts)-n:]
	}
	vals := make([]float64, len(pts))
	for i, p := range pts {
		vals[i] = float64(p.Temp)
	}
	return vals
}

// Store manages histories for all sensors.
type Store struct {
	data     map[string]*Buffer
	capacity int
}

// NewStore creates a store with the given per-sensor capacity.
func NewStore(capacity int) *Store {
	return &Store{data: make(map[string]*Buffer), capacity: capacity}
}

// Record adds every reading of one tick.
func (s *Store) Record(readings []sensor.Reading, t time.Time) {
	for _, r := range readings {
		b, ok := s.data[r.Key()]
		if !ok {
			b = NewBuffer(s.capacity)
			s.data[r.Key()] = b
		}
		b.Push(r.Temp, t)
	}
}

// Get returns the history for a sensor key, or nil.
func (s *Store) Get(key string) *Buffer {
	return s.data[key]
}
