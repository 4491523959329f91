package sensor

import (
	"math"
	"math/rand"
	"time"

	"drivepilot-sim/internal/world"
)

// Characteristic describes one sensor's envelope.
type Characteristic struct {
	MaxRangeM  float64
	Accuracy   float64 // base confidence at zero range
	RangeNoise float64 // std dev, metres
	BearingNoise float64 // std dev, degrees
	DropoutRate  float64 // per-obstacle chance of a missed reading
}

// SuiteConfig holds the per-sensor envelopes for the simulated hardware.
type SuiteConfig struct {
	Radar      Characteristic
	Infrared   Characteristic
	Ultrasonic Characteristic
}

// DefaultSuiteConfig mirrors the DrivePilot reference hardware: long-range
// radar, mid-range infrared, short-range ultrasonic.
func DefaultSuiteConfig() SuiteConfig {
	return SuiteConfig{
		Radar:      Characteristic{MaxRangeM: 150, Accuracy: 0.95, RangeNoise: 0.5, BearingNoise: 1.0},
		Infrared:   Characteristic{MaxRangeM: 80, Accuracy: 0.85, RangeNoise: 1.0, BearingNoise: 2.0},
		Ultrasonic: Characteristic{MaxRangeM: 10, Accuracy: 0.75, RangeNoise: 0.1},
	}
}

// nightInfraredFactor degrades infrared confidence in low light.
const nightInfraredFactor = 0.8

// Suite samples the simulated world into raw readings once per tick.
type Suite struct {
	cfg SuiteConfig
	rng *rand.Rand
	now func() time.Time
}

// NewSuite creates a sensor suite. A nil rng falls back to a time seed.
func NewSuite(cfg SuiteConfig, rng *rand.Rand) *Suite {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Suite{cfg: cfg, rng: rng, now: time.Now}
}

// Sample produces one batch of raw readings for the current obstacle set.
// Each sensor reads independently; a dropped-out sensor simply contributes
// nothing this tick.
func (s *Suite) Sample(obstacles []*world.Obstacle, lowLight bool) []RawSample {
	var batch []RawSample
	ts := s.now().UTC()
	for _, ob := range obstacles {
		rangeM := math.Hypot(ob.X, ob.Y)
		bearing := math.Atan2(ob.Y, ob.X) * 180 / math.Pi

		if r, ok := s.radarSample(ob, rangeM, bearing, ts); ok {
			batch = append(batch, r)
		}
		if r, ok := s.infraredSample(ob, rangeM, bearing, lowLight, ts); ok {
			batch = append(batch, r)
		}
		if r, ok := s.ultrasonicSample(ob, rangeM, ts); ok {
			batch = append(batch, r)
		}
	}
	return batch
}

func (s *Suite) radarSample(ob *world.Obstacle, rangeM, bearing float64, ts time.Time) (RawSample, bool) {
	c := s.cfg.Radar
	if rangeM > c.MaxRangeM || s.rng.Float64() < c.DropoutRate {
		return RawSample{}, false
	}
	b := bearing + s.rng.NormFloat64()*c.BearingNoise
	// Radial velocity toward the vehicle is positive.
	radial := 0.0
	if rangeM > 0 {
		radial = -(ob.X*ob.VX + ob.Y*ob.VY) / rangeM
	}
	gait := HintNone
	switch ob.Type {
	case world.ObstaclePedestrian:
		gait = HintPedestrianGait
	case world.ObstacleAnimal:
		gait = HintAnimalGait
	}
	return RawSample{
		Kind:       KindRadar,
		RangeM:     math.Max(0, rangeM+s.rng.NormFloat64()*c.RangeNoise),
		BearingDeg: &b,
		RadialMPS:  &radial,
		Gait:       gait,
		Confidence: s.confidence(c, rangeM),
		Timestamp:  ts,
	}, true
}

func (s *Suite) infraredSample(ob *world.Obstacle, rangeM, bearing float64, lowLight bool, ts time.Time) (RawSample, bool) {
	c := s.cfg.Infrared
	if rangeM > c.MaxRangeM || s.rng.Float64() < c.DropoutRate {
		return RawSample{}, false
	}
	b := bearing + s.rng.NormFloat64()*c.BearingNoise
	thermal := 0.1
	switch ob.Type {
	case world.ObstaclePedestrian, world.ObstacleAnimal:
		thermal = 0.9
	case world.ObstacleVehicle:
		thermal = 0.4
	}
	conf := s.confidence(c, rangeM)
	if lowLight {
		conf *= nightInfraredFactor
	}
	return RawSample{
		Kind:       KindInfrared,
		RangeM:     math.Max(0, rangeM+s.rng.NormFloat64()*c.RangeNoise),
		BearingDeg: &b,
		Thermal:    &thermal,
		Confidence: conf,
		Timestamp:  ts,
	}, true
}

func (s *Suite) ultrasonicSample(ob *world.Obstacle, rangeM float64, ts time.Time) (RawSample, bool) {
	c := s.cfg.Ultrasonic
	if rangeM > c.MaxRangeM || s.rng.Float64() < c.DropoutRate {
		return RawSample{}, false
	}
	return RawSample{
		Kind:       KindUltrasonic,
		RangeM:     math.Max(0, rangeM+s.rng.NormFloat64()*c.RangeNoise),
		SizeHint:   ob.Size,
		Confidence: s.confidence(c, rangeM),
		Timestamp:  ts,
	}, true
}

// confidence decays linearly from the sensor's base accuracy at zero range
// to half of it at maximum range.
func (s *Suite) confidence(c Characteristic, rangeM float64) float64 {
	f := 1 - 0.5*(rangeM/c.MaxRangeM)
	conf := c.Accuracy * f
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}
