package world

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// dropRangeM removes obstacles once they are far outside every sensor's
// reach or have passed well behind the vehicle.
const dropRangeM = 250.0

// Engine maintains and advances the simulated obstacles.
type Engine struct {
	Obstacles []*Obstacle
	rng       *rand.Rand
	now       func() time.Time
}

// NewEngine creates an empty world. A nil rng falls back to a time seed.
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{rng: rng, now: time.Now}
}

// Spawn adds an obstacle at the given range and bearing, moving with the
// given ground speed along heading (degrees, vehicle frame). The returned
// identifier is unique for the run.
func (e *Engine) Spawn(t ObstacleType, rangeM, bearingDeg, speedMPS, headingDeg float64, size string) *Obstacle {
	bRad := bearingDeg * math.Pi / 180
	hRad := headingDeg * math.Pi / 180
	ob := &Obstacle{
		ID:      uuid.New().String(),
		Type:    t,
		X:       rangeM * math.Cos(bRad),
		Y:       rangeM * math.Sin(bRad),
		VX:      speedMPS * math.Cos(hRad),
		VY:      speedMPS * math.Sin(hRad),
		Size:    size,
		Spawned: e.now().UTC(),
	}
	e.Obstacles = append(e.Obstacles, ob)
	return ob
}

// Step advances every obstacle by dt in the vehicle frame. The vehicle's
// own speed shows up as additional closing velocity along -x.
func (e *Engine) Step(dt time.Duration, vehicleSpeedMPS float64) {
	secs := dt.Seconds()
	kept := e.Obstacles[:0]
	for _, ob := range e.Obstacles {
		ob.X += (ob.VX - vehicleSpeedMPS) * secs
		ob.Y += ob.VY * secs
		if math.Hypot(ob.X, ob.Y) > dropRangeM || ob.X < -dropRangeM/5 {
			continue
		}
		kept = append(kept, ob)
	}
	e.Obstacles = kept
}

// Jitter returns a normally distributed perturbation with the given
// standard deviation, for sensor noise injection.
func (e *Engine) Jitter(std float64) float64 {
	if std <= 0 {
		return 0
	}
	return e.rng.NormFloat64() * std
}
