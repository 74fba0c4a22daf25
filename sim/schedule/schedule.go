// Package schedule generates annealing schedules: ordered sequences of control
// parameters (temperature or transverse field), one entry per update-kernel step.
package schedule

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Schedule is an immutable sequence of control values.
type Schedule struct {
	values []float64
}

// New copies values into a Schedule.
func New(values []float64) Schedule {
	v := make([]float64, len(values))
	copy(v, values)
	return Schedule{values: v}
}

// Empty returns a zero-length schedule.
func Empty() Schedule { return Schedule{} }

// Linear returns steps values evenly spaced from start to end inclusive.
// A one-step schedule holds only start.
func Linear(start, end float64, steps int) (Schedule, error) {
	if steps < 1 {
		return Schedule{}, fmt.Errorf("schedule needs at least 1 step, got %d", steps)
	}
	v := make([]float64, steps)
	if steps == 1 {
		v[0] = start
		return Schedule{values: v}, nil
	}
	// Span pins both endpoints exactly.
	floats.Span(v, start, end)
	return Schedule{values: v}, nil
}

// Constant returns steps copies of value. Zero steps yields an empty schedule.
func Constant(value float64, steps int) (Schedule, error) {
	if steps < 0 {
		return Schedule{}, fmt.Errorf("schedule steps must be non-negative, got %d", steps)
	}
	v := make([]float64, steps)
	for i := range v {
		v[i] = value
	}
	return Schedule{values: v}, nil
}

// Len returns the number of entries.
func (s Schedule) Len() int { return len(s.values) }

// At returns entry i.
func (s Schedule) At(i int) float64 { return s.values[i] }

// Values returns a copy of the entries.
func (s Schedule) Values() []float64 {
	v := make([]float64, len(s.values))
	copy(v, s.values)
	return v
}

// Start returns the first entry; it panics on an empty schedule.
func (s Schedule) Start() float64 { return s.values[0] }

// End returns the last entry; it panics on an empty schedule.
func (s Schedule) End() float64 { return s.values[len(s.values)-1] }

// All iterates entries in order.
func (s Schedule) All() func(yield func(int, float64) bool) {
	return func(yield func(int, float64) bool) {
		for i, v := range s.values {
			if !yield(i, v) {
				return
			}
		}
	}
}
