// Track state fused from multi-sensor measurements.
package fusion

import (
	"math"
	"time"

	"drivepilot-sim/internal/sensor"
)

// Class is a fused object classification.
type Class string

const (
	ClassPedestrian Class = "pedestrian"
	ClassAnimal     Class = "animal"
	ClassStatic     Class = "static_object"
	ClassUnknown    Class = "unknown"
)

// Classes lists all classes in a fixed order for deterministic iteration.
var Classes = []Class{ClassPedestrian, ClassAnimal, ClassStatic, ClassUnknown}

// Track is one fused, classified, persistent object estimate.
// The estimator is the sole writer; consumers read by value or identifier.
type Track struct {
	ID  string // unique per run, never reused
	Seq uint64 // monotonic creation order, used for tie-breaks

	X, Y   float64 // vehicle frame, metres
	VX, VY float64 // relative velocity, m/s

	VarX, VarY float64 // per-axis position uncertainty

	Probs map[Class]float64

	Age        int // ticks alive
	Misses     int // consecutive ticks without a contributing measurement
	LastUpdate time.Time
	Sensors    map[sensor.Kind]bool
	Degraded   bool // environment input was stale this tick
}

// RangeM returns the track's distance from the vehicle.
func (t *Track) RangeM() float64 {
	return math.Hypot(t.X, t.Y)
}

// ClosingSpeed returns the speed at which the track approaches the vehicle
// (positive = closing).
func (t *Track) ClosingSpeed() float64 {
	r := t.RangeM()
	if r == 0 {
		return 0
	}
	return -(t.X*t.VX + t.Y*t.VY) / r
}

// Best returns the most probable class and its probability.
func (t *Track) Best() (Class, float64) {
	best := ClassUnknown
	bestP := -1.0
	for _, c := range Classes {
		if p := t.Probs[c]; p > bestP {
			best, bestP = c, p
		}
	}
	return best, bestP
}

// Prob returns the probability of a single class.
func (t *Track) Prob(c Class) float64 { return t.Probs[c] }

// normalizeProbs rescales the class probabilities to sum to 1. A degenerate
// all-zero distribution resets to uniform.
func (t *Track) normalizeProbs() {
	sum := 0.0
	for _, c := range Classes {
		sum += t.Probs[c]
	}
	if sum <= 0 {
		for _, c := range Classes {
			t.Probs[c] = 1.0 / float64(len(Classes))
		}
		return
	}
	for _, c := range Classes {
		t.Probs[c] /= sum
	}
}

// uniformProbs returns a fresh uniform class distribution.
func uniformProbs() map[Class]float64 {
	m := make(map[Class]float64, len(Classes))
	for _, c := range Classes {
		m[c] = 1.0 / float64(len(Classes))
	}
	return m
}
