// Sensor sample and measurement types shared by ingest and fusion.
package sensor

import (
	"fmt"
	"time"
)

// Kind identifies a sensor family.
type Kind string

const (
	KindRadar      Kind = "radar"
	KindInfrared   Kind = "infrared"
	KindUltrasonic Kind = "ultrasonic"
)

// Hint is a per-sensor classification cue carried into fusion.
type Hint string

const (
	HintNone           Hint = ""
	HintLiving         Hint = "living"          // infrared thermal signature
	HintPedestrianGait Hint = "pedestrian_gait" // radar micro-Doppler
	HintAnimalGait     Hint = "animal_gait"     // radar micro-Doppler
	HintStaticLarge    Hint = "static_large"    // ultrasonic size echo
	HintStaticSmall    Hint = "static_small"    // ultrasonic size echo
)

// RawSample is one type-specific reading as delivered by a sensor driver.
// Optional fields are pointers; a nil pointer means the sensor does not
// report that quantity.
type RawSample struct {
	Kind       Kind       `json:"kind"`
	RangeM     float64    `json:"range_m"`
	BearingDeg *float64   `json:"bearing_deg,omitempty"` // absent for ultrasonic
	RadialMPS  *float64   `json:"radial_mps,omitempty"`  // radar Doppler, toward vehicle positive
	Thermal    *float64   `json:"thermal,omitempty"`     // infrared signature strength 0..1
	Gait       Hint       `json:"gait,omitempty"`        // radar micro-Doppler pattern
	SizeHint   string     `json:"size_hint,omitempty"`   // ultrasonic: small|medium|large
	Confidence float64    `json:"confidence"`
	Timestamp  time.Time  `json:"ts"`
}

// Measurement is the normalized record handed to the fusion estimator.
// Positions are in the vehicle frame: x forward, y left, metres.
type Measurement struct {
	Kind       Kind      `json:"kind"`
	RangeM     float64   `json:"range_m"`
	BearingDeg float64   `json:"bearing_deg"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	RadialMPS  float64   `json:"radial_mps"`
	HasRadial  bool      `json:"has_radial"`
	Hint       Hint      `json:"hint,omitempty"`
	HintWeight float64   `json:"hint_weight,omitempty"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"ts"`
}

// InvalidSampleError reports a malformed or physically impossible sample.
// The offending sample is dropped; the rest of the batch continues.
type InvalidSampleError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid %s sample: %s: %s", e.Kind, e.Field, e.Reason)
}
