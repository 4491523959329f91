package sensor

import (
	"math/rand"
	"testing"

	"drivepilot-sim/internal/world"
)

func quietSuite() *Suite {
	cfg := DefaultSuiteConfig()
	cfg.Radar.RangeNoise = 0
	cfg.Radar.BearingNoise = 0
	cfg.Infrared.RangeNoise = 0
	cfg.Infrared.BearingNoise = 0
	cfg.Ultrasonic.RangeNoise = 0
	return NewSuite(cfg, rand.New(rand.NewSource(1)))
}

func TestSuite_SampleAllSensorsInRange(t *testing.T) {
	s := quietSuite()
	ob := &world.Obstacle{ID: "ob-1", Type: world.ObstaclePedestrian, X: 5, Y: 0, VX: -1, Size: "small"}

	batch := s.Sample([]*world.Obstacle{ob}, false)
	kinds := make(map[Kind]RawSample)
	for _, r := range batch {
		kinds[r.Kind] = r
	}
	for _, k := range []Kind{KindRadar, KindInfrared, KindUltrasonic} {
		if _, ok := kinds[k]; !ok {
			t.Errorf("missing %s sample at 5m", k)
		}
	}
	radar := kinds[KindRadar]
	if radar.Gait != HintPedestrianGait {
		t.Errorf("radar gait = %q, want pedestrian_gait", radar.Gait)
	}
	if radar.RadialMPS == nil || *radar.RadialMPS <= 0 {
		t.Errorf("closing pedestrian should have positive radial velocity, got %v", radar.RadialMPS)
	}
	ir := kinds[KindInfrared]
	if ir.Thermal == nil || *ir.Thermal < 0.5 {
		t.Errorf("pedestrian should read warm, got %v", ir.Thermal)
	}
}

func TestSuite_RangeEnvelopes(t *testing.T) {
	s := quietSuite()
	ob := &world.Obstacle{ID: "ob-1", Type: world.ObstacleVehicle, X: 50, Y: 0}

	batch := s.Sample([]*world.Obstacle{ob}, false)
	for _, r := range batch {
		if r.Kind == KindUltrasonic {
			t.Errorf("ultrasonic sample at 50m, beyond its 10m envelope")
		}
	}

	far := &world.Obstacle{ID: "ob-2", Type: world.ObstacleVehicle, X: 120, Y: 0}
	batch = s.Sample([]*world.Obstacle{far}, false)
	for _, r := range batch {
		if r.Kind != KindRadar {
			t.Errorf("unexpected %s sample at 120m", r.Kind)
		}
	}
}

func TestSuite_NightDegradesInfrared(t *testing.T) {
	s := quietSuite()
	ob := &world.Obstacle{ID: "ob-1", Type: world.ObstacleAnimal, X: 20, Y: 0}

	day := s.Sample([]*world.Obstacle{ob}, false)
	night := s.Sample([]*world.Obstacle{ob}, true)

	irConf := func(batch []RawSample) float64 {
		for _, r := range batch {
			if r.Kind == KindInfrared {
				return r.Confidence
			}
		}
		t.Fatal("no infrared sample")
		return 0
	}
	d, n := irConf(day), irConf(night)
	want := d * nightInfraredFactor
	if n < want-1e-9 || n > want+1e-9 {
		t.Errorf("night infrared confidence = %.3f, want %.3f", n, want)
	}
}

func TestSuite_ConfidenceDecaysWithRange(t *testing.T) {
	s := quietSuite()
	near := &world.Obstacle{ID: "n", Type: world.ObstacleVehicle, X: 10, Y: 0}
	far := &world.Obstacle{ID: "f", Type: world.ObstacleVehicle, X: 140, Y: 0}

	radarConf := func(ob *world.Obstacle) float64 {
		for _, r := range s.Sample([]*world.Obstacle{ob}, false) {
			if r.Kind == KindRadar {
				return r.Confidence
			}
		}
		t.Fatalf("no radar sample for %s", ob.ID)
		return 0
	}
	if nc, fc := radarConf(near), radarConf(far); fc >= nc {
		t.Errorf("confidence should decay with range: near %.3f, far %.3f", nc, fc)
	}
}

func TestSuite_FullDropoutProducesNothing(t *testing.T) {
	cfg := DefaultSuiteConfig()
	cfg.Radar.DropoutRate = 1
	cfg.Infrared.DropoutRate = 1
	cfg.Ultrasonic.DropoutRate = 1
	s := NewSuite(cfg, rand.New(rand.NewSource(1)))
	ob := &world.Obstacle{ID: "ob-1", Type: world.ObstaclePedestrian, X: 5, Y: 0}
	if batch := s.Sample([]*world.Obstacle{ob}, false); len(batch) != 0 {
		t.Errorf("expected no samples with full dropout, got %d", len(batch))
	}
}
