package sensor

import (
	"math"
)

// ultrasonicBearingPenalty discounts confidence for samples that carry no
// bearing: the position is assumed dead-ahead and may be off laterally.
const ultrasonicBearingPenalty = 0.8

// Normalize validates a raw sample and converts it into a Measurement.
// Validation failures return a *InvalidSampleError and a zero Measurement.
func Normalize(s RawSample) (Measurement, error) {
	if math.IsNaN(s.RangeM) || math.IsInf(s.RangeM, 0) {
		return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "range", Reason: "not finite"}
	}
	if s.RangeM < 0 {
		return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "range", Reason: "negative"}
	}
	if s.Confidence < 0 || s.Confidence > 1 || math.IsNaN(s.Confidence) {
		return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "confidence", Reason: "outside [0,1]"}
	}

	m := Measurement{
		Kind:       s.Kind,
		RangeM:     s.RangeM,
		Confidence: s.Confidence,
		Timestamp:  s.Timestamp,
	}

	switch s.Kind {
	case KindRadar:
		if s.BearingDeg == nil {
			return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "bearing", Reason: "missing"}
		}
		if s.RadialMPS == nil {
			return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "radial_velocity", Reason: "missing"}
		}
		m.BearingDeg = *s.BearingDeg
		m.RadialMPS = *s.RadialMPS
		m.HasRadial = true
		switch s.Gait {
		case HintPedestrianGait, HintAnimalGait:
			m.Hint = s.Gait
			m.HintWeight = s.Confidence
		case HintNone:
		default:
			return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "gait", Reason: "unknown pattern"}
		}
	case KindInfrared:
		if s.BearingDeg == nil {
			return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "bearing", Reason: "missing"}
		}
		if s.Thermal == nil {
			return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "thermal", Reason: "missing"}
		}
		if *s.Thermal < 0 || *s.Thermal > 1 {
			return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "thermal", Reason: "outside [0,1]"}
		}
		m.BearingDeg = *s.BearingDeg
		if *s.Thermal >= 0.5 {
			m.Hint = HintLiving
			m.HintWeight = *s.Thermal
		}
	case KindUltrasonic:
		// No bearing: assume dead-ahead with reduced confidence.
		m.BearingDeg = 0
		m.Confidence = s.Confidence * ultrasonicBearingPenalty
		switch s.SizeHint {
		case "large", "medium":
			m.Hint = HintStaticLarge
			m.HintWeight = m.Confidence
		case "small":
			m.Hint = HintStaticSmall
			m.HintWeight = m.Confidence
		case "":
		default:
			return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "size_hint", Reason: "unknown size"}
		}
	default:
		return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "kind", Reason: "unknown sensor"}
	}

	if m.BearingDeg < -180 || m.BearingDeg > 180 {
		return Measurement{}, &InvalidSampleError{Kind: s.Kind, Field: "bearing", Reason: "outside [-180,180]"}
	}

	rad := m.BearingDeg * math.Pi / 180
	m.X = m.RangeM * math.Cos(rad)
	m.Y = m.RangeM * math.Sin(rad)
	return m, nil
}

// NormalizeBatch converts a batch of raw samples, dropping invalid entries.
// Returned errors are *InvalidSampleError values, one per dropped sample.
func NormalizeBatch(samples []RawSample) ([]Measurement, []error) {
	var ms []Measurement
	var errs []error
	for _, s := range samples {
		m, err := Normalize(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ms = append(ms, m)
	}
	return ms, errs
}
