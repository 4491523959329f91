package fusion

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"drivepilot-sim/internal/sensor"
)

// Config holds the estimator tuning knobs. All values are validated at
// construction via config; zero values fall back to defaults.
type Config struct {
	GatingDistanceM     float64 // max measurement-to-track distance for association
	StalenessTicks      int     // consecutive misses before a track is removed
	ProcessNoise        float64 // variance added per second on predict
	InitialVariance     float64 // position variance for freshly seeded tracks
	DivergenceVariance  float64 // variance ceiling; crossing it force-removes the track
	MeasurementVariance float64 // base measurement variance at confidence 1
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		GatingDistanceM:     5,
		StalenessTicks:      3,
		ProcessNoise:        1,
		InitialVariance:     4,
		DivergenceVariance:  100,
		MeasurementVariance: 1,
	}
}

// EstimatorDivergenceError reports a track whose uncertainty grew past the
// configured ceiling. The track has been force-removed.
type EstimatorDivergenceError struct {
	TrackID  string
	Variance float64
}

func (e *EstimatorDivergenceError) Error() string {
	return fmt.Sprintf("estimator diverged for track %s: variance %.2f", e.TrackID, e.Variance)
}

// AmbiguityWarning records a gating-distance tie that needed the sequence
// tie-break. Non-fatal; the step still resolves deterministically.
type AmbiguityWarning struct {
	Kind      sensor.Kind
	TrackA    string
	TrackB    string
	DistanceM float64
}

// Report summarizes one fusion step for auditing.
type Report struct {
	Created     []string
	Removed     []string
	Diverged    []*EstimatorDivergenceError
	Ambiguities []AmbiguityWarning
	Matched     int
}

// ambiguityEpsilon is the distance band within which two candidate tracks
// count as tied.
const ambiguityEpsilon = 1e-6

// Estimator fuses normalized measurements into tracks across ticks.
// It is the sole writer of track state.
type Estimator struct {
	cfg      Config
	tracks   []*Track
	nextSeq  uint64
	lastStep time.Time
}

// NewEstimator creates an estimator with the given tuning.
func NewEstimator(cfg Config) *Estimator {
	def := DefaultConfig()
	if cfg.GatingDistanceM <= 0 {
		cfg.GatingDistanceM = def.GatingDistanceM
	}
	if cfg.StalenessTicks <= 0 {
		cfg.StalenessTicks = def.StalenessTicks
	}
	if cfg.ProcessNoise <= 0 {
		cfg.ProcessNoise = def.ProcessNoise
	}
	if cfg.InitialVariance <= 0 {
		cfg.InitialVariance = def.InitialVariance
	}
	if cfg.DivergenceVariance <= 0 {
		cfg.DivergenceVariance = def.DivergenceVariance
	}
	if cfg.MeasurementVariance <= 0 {
		cfg.MeasurementVariance = def.MeasurementVariance
	}
	return &Estimator{cfg: cfg}
}

// Tracks returns the current track set. Callers must treat the tracks as
// read-only; only the estimator mutates them.
func (e *Estimator) Tracks() []*Track {
	out := make([]*Track, len(e.tracks))
	copy(out, e.tracks)
	return out
}

// Step runs one fusion tick: predict, associate, correct, classify, prune.
// Output is deterministic for a given input ordering: measurements are
// processed by descending confidence (stable), and gating ties resolve to
// the earlier track.
func (e *Estimator) Step(batch []sensor.Measurement, now time.Time) Report {
	var rep Report

	dt := 0.0
	if !e.lastStep.IsZero() {
		dt = now.Sub(e.lastStep).Seconds()
	}
	e.lastStep = now

	for _, t := range e.tracks {
		t.X, t.VarX = predictAxis(t.X, t.VX, t.VarX, e.cfg.ProcessNoise, dt)
		t.Y, t.VarY = predictAxis(t.Y, t.VY, t.VarY, e.cfg.ProcessNoise, dt)
		t.Age++
		t.Degraded = false
	}

	order := make([]sensor.Measurement, len(batch))
	copy(order, batch)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Confidence > order[j].Confidence
	})

	matched := make(map[uint64]bool)
	for _, m := range order {
		t, warn := e.associate(m)
		if warn != nil {
			rep.Ambiguities = append(rep.Ambiguities, *warn)
		}
		if t == nil {
			seeded := e.seed(m, now)
			rep.Created = append(rep.Created, seeded.ID)
			matched[seeded.Seq] = true
			continue
		}
		e.correct(t, m, dt)
		matched[t.Seq] = true
		rep.Matched++
	}

	kept := e.tracks[:0]
	for _, t := range e.tracks {
		if matched[t.Seq] {
			t.Misses = 0
		} else {
			t.Misses++
		}
		if t.VarX > e.cfg.DivergenceVariance || t.VarY > e.cfg.DivergenceVariance {
			v := math.Max(t.VarX, t.VarY)
			rep.Diverged = append(rep.Diverged, &EstimatorDivergenceError{TrackID: t.ID, Variance: v})
			rep.Removed = append(rep.Removed, t.ID)
			continue
		}
		if t.Misses > e.cfg.StalenessTicks {
			rep.Removed = append(rep.Removed, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	e.tracks = kept

	return rep
}

// MarkDegraded flags every live track as running on stale environment
// input for this tick.
func (e *Estimator) MarkDegraded() {
	for _, t := range e.tracks {
		t.Degraded = true
	}
}

// associate finds the nearest track within the gating distance. A distance
// tie resolves to the lower sequence number and yields a warning.
func (e *Estimator) associate(m sensor.Measurement) (*Track, *AmbiguityWarning) {
	var best *Track
	bestDist := e.cfg.GatingDistanceM
	var warn *AmbiguityWarning
	for _, t := range e.tracks {
		d := math.Hypot(t.X-m.X, t.Y-m.Y)
		if d > e.cfg.GatingDistanceM {
			continue
		}
		switch {
		case best == nil || d < bestDist-ambiguityEpsilon:
			best, bestDist, warn = t, d, nil
		case math.Abs(d-bestDist) <= ambiguityEpsilon:
			w := &AmbiguityWarning{Kind: m.Kind, TrackA: best.ID, TrackB: t.ID, DistanceM: d}
			if t.Seq < best.Seq {
				w.TrackA, w.TrackB = t.ID, best.ID
				best = t
			}
			warn = w
		}
	}
	return best, warn
}

// correct folds one measurement into a matched track.
func (e *Estimator) correct(t *Track, m sensor.Measurement, dt float64) {
	measVar := e.cfg.MeasurementVariance / math.Max(m.Confidence, 0.05)

	prevX, prevY := t.X, t.Y
	var gainX, gainY float64
	t.X, t.VarX, gainX = correctAxis(t.X, t.VarX, m.X, measVar)
	t.Y, t.VarY, gainY = correctAxis(t.Y, t.VarY, m.Y, measVar)

	// Velocity follows the position residual with a damped gain so a
	// single outlier cannot flip the velocity estimate.
	if dt > 0 {
		t.VX += gainX * gainX * (m.X - prevX) / dt
		t.VY += gainY * gainY * (m.Y - prevY) / dt
	}

	// Radar contributes radial velocity directly.
	if m.HasRadial {
		r := t.RangeM()
		if r > 0 {
			ux, uy := t.X/r, t.Y/r
			current := t.VX*ux + t.VY*uy
			delta := -m.RadialMPS - current
			t.VX += gainX * delta * ux
			t.VY += gainY * delta * uy
		}
	}

	if t.Sensors == nil {
		t.Sensors = make(map[sensor.Kind]bool)
	}
	t.Sensors[m.Kind] = true
	if m.Timestamp.After(t.LastUpdate) {
		t.LastUpdate = m.Timestamp
	}

	applyHint(t, m.Hint, m.HintWeight*m.Confidence)
}

// seed creates a new track from an unmatched measurement.
func (e *Estimator) seed(m sensor.Measurement, now time.Time) *Track {
	e.nextSeq++
	t := &Track{
		ID:         uuid.New().String(),
		Seq:        e.nextSeq,
		X:          m.X,
		Y:          m.Y,
		VarX:       e.cfg.InitialVariance,
		VarY:       e.cfg.InitialVariance,
		Probs:      uniformProbs(),
		LastUpdate: m.Timestamp,
		Sensors:    map[sensor.Kind]bool{m.Kind: true},
	}
	if t.LastUpdate.IsZero() {
		t.LastUpdate = now
	}
	if m.HasRadial {
		r := m.RangeM
		if r > 0 {
			t.VX = -m.RadialMPS * (m.X / r)
			t.VY = -m.RadialMPS * (m.Y / r)
		}
	}
	applyHint(t, m.Hint, m.HintWeight*m.Confidence)
	e.tracks = append(e.tracks, t)
	return t
}

// hintLikelihoods maps each sensor hint to per-class evidence.
var hintLikelihoods = map[sensor.Hint]map[Class]float64{
	sensor.HintLiving: {
		ClassPedestrian: 0.40, ClassAnimal: 0.40, ClassStatic: 0.05, ClassUnknown: 0.15,
	},
	sensor.HintPedestrianGait: {
		ClassPedestrian: 0.70, ClassAnimal: 0.15, ClassStatic: 0.05, ClassUnknown: 0.10,
	},
	sensor.HintAnimalGait: {
		ClassPedestrian: 0.15, ClassAnimal: 0.70, ClassStatic: 0.05, ClassUnknown: 0.10,
	},
	sensor.HintStaticLarge: {
		ClassPedestrian: 0.075, ClassAnimal: 0.075, ClassStatic: 0.75, ClassUnknown: 0.10,
	},
	sensor.HintStaticSmall: {
		ClassPedestrian: 0.10, ClassAnimal: 0.10, ClassStatic: 0.60, ClassUnknown: 0.20,
	},
}

// applyHint accumulates weighted class evidence and renormalizes.
// Weight is clamped to [0,1]; weight 0 or no hint leaves the distribution
// untouched.
func applyHint(t *Track, h sensor.Hint, weight float64) {
	like, ok := hintLikelihoods[h]
	if !ok || weight <= 0 {
		return
	}
	if weight > 1 {
		weight = 1
	}
	for _, c := range Classes {
		t.Probs[c] *= (1 - weight) + weight*like[c]*float64(len(Classes))
	}
	t.normalizeProbs()
}
