package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"drivepilot-sim/internal/audit"
	"drivepilot-sim/internal/config"
	"drivepilot-sim/internal/scenario"
)

// mockTrackWriter collects track rows for validation.
type mockTrackWriter struct {
	Rows []TrackRow
}

func (w *mockTrackWriter) WriteTrack(row TrackRow) error {
	w.Rows = append(w.Rows, row)
	return nil
}

// mockDecisionWriter collects decision rows.
type mockDecisionWriter struct {
	Rows []DecisionRow
}

func (w *mockDecisionWriter) WriteDecision(d DecisionRow) error {
	w.Rows = append(w.Rows, d)
	return nil
}

// mockControlSink fails the first failures calls, then acknowledges.
type mockControlSink struct {
	failures int
	calls    int
	applied  []DecisionRow
}

func (s *mockControlSink) Apply(ctx context.Context, d DecisionRow) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("actuation bus unavailable")
	}
	s.applied = append(s.applied, d)
	return nil
}

func testConfig() *config.SimulationConfig {
	return &config.SimulationConfig{
		Vehicle:     config.Vehicle{SpeedMPS: 10},
		Environment: config.Environment{ProviderTimeoutMS: 100},
	}
}

func TestSimulator_TickProducesTracksAndDecisions(t *testing.T) {
	tw := &mockTrackWriter{}
	dw := &mockDecisionWriter{}
	control := &mockControlSink{}
	s := NewSimulator("run-test", testConfig(), audit.New(nil), tw, dw, nil, control, time.Second)

	s.SpawnObstacle("pedestrian", 5, 0, 1.5, 180, "small")
	s.tick(context.Background())

	if len(tw.Rows) == 0 {
		t.Fatal("tick produced no track rows")
	}
	for _, r := range tw.Rows {
		if r.RunID != "run-test" || r.TrackID == "" {
			t.Errorf("track row missing identifiers: %+v", r)
		}
	}
	var haveAggregate bool
	for _, d := range dw.Rows {
		if d.Aggregate {
			haveAggregate = true
		}
	}
	if !haveAggregate {
		t.Error("no aggregate decision row written")
	}
	if len(control.applied) != 1 {
		t.Errorf("control sink applied %d decisions, want 1", len(control.applied))
	}
}

func TestSimulator_StarvationAudited(t *testing.T) {
	cfg := testConfig()
	cfg.Sensors.Radar.DropoutRate = 1
	cfg.Sensors.Infrared.DropoutRate = 1
	cfg.Sensors.Ultrasonic.DropoutRate = 1

	log := audit.New(nil)
	s := NewSimulator("run-test", cfg, log, &mockTrackWriter{}, &mockDecisionWriter{}, nil, nil, time.Second)
	s.SpawnObstacle("vehicle", 50, 0, 0, 0, "large")
	s.tick(context.Background())

	var found bool
	for _, e := range log.Entries() {
		if e.Kind == audit.KindStarvation {
			found = true
		}
	}
	if !found {
		t.Error("total sensor starvation was not audited")
	}
	if err := log.Verify(); err != nil {
		t.Errorf("audit chain broken: %v", err)
	}
}

func TestSimulator_UndeliveredDecisionAudited(t *testing.T) {
	log := audit.New(nil)
	control := &mockControlSink{failures: 2}
	s := NewSimulator("run-test", testConfig(), log, &mockTrackWriter{}, &mockDecisionWriter{}, nil, control, time.Second)

	s.tick(context.Background())

	if control.calls != 2 {
		t.Errorf("control sink called %d times, want retry to make it 2", control.calls)
	}
	var found bool
	for _, e := range log.Entries() {
		if e.Kind == audit.KindUndelivered {
			found = true
		}
	}
	if !found {
		t.Error("undelivered decision was not audited")
	}
}

func TestSimulator_DeliveryRetrySucceeds(t *testing.T) {
	log := audit.New(nil)
	control := &mockControlSink{failures: 1}
	s := NewSimulator("run-test", testConfig(), log, &mockTrackWriter{}, &mockDecisionWriter{}, nil, control, time.Second)

	s.tick(context.Background())

	if len(control.applied) != 1 {
		t.Errorf("retry should deliver the decision, applied %d", len(control.applied))
	}
	for _, e := range log.Entries() {
		if e.Kind == audit.KindUndelivered {
			t.Error("delivered decision must not be audited as undelivered")
		}
	}
}

func TestSimulator_ToggleDetection(t *testing.T) {
	tw := &mockTrackWriter{}
	s := NewSimulator("run-test", testConfig(), audit.New(nil), tw, &mockDecisionWriter{}, nil, nil, time.Second)

	if s.ToggleDetection() {
		t.Fatal("toggle from enabled should report disabled")
	}
	s.SpawnObstacle("pedestrian", 5, 0, 0, 0, "small")
	s.tick(context.Background())
	if len(tw.Rows) != 0 {
		t.Errorf("detection disabled but %d track rows written", len(tw.Rows))
	}
	if !s.ToggleDetection() {
		t.Error("second toggle should re-enable detection")
	}
}

func TestSimulator_ScenarioPhases(t *testing.T) {
	lowLight := true
	sc := &scenario.Scenario{
		Name: "test",
		Phases: []scenario.Phase{
			{
				Name:          "first",
				DurationTicks: 2,
				LowLight:      &lowLight,
				Spawns:        []scenario.Spawn{{Type: "static_object", RangeM: 60, BearingDeg: 5, Size: "large"}},
				Triggers:      []scenario.Trigger{{Event: "tick", Value: 2, Next: "second"}},
			},
			{
				Name:   "second",
				Spawns: []scenario.Spawn{{Type: "pedestrian", RangeM: 35, BearingDeg: 20, SpeedMPS: 1.5, HeadingDeg: -90, Size: "small"}},
			},
		},
	}
	s := NewSimulator("run-test", testConfig(), audit.New(nil), &mockTrackWriter{}, &mockDecisionWriter{}, nil, nil, time.Second)
	s.SetScenario(sc)

	s.tick(context.Background())
	if s.phase != "first" {
		t.Fatalf("phase = %q, want first", s.phase)
	}
	if len(s.world.Obstacles) != 1 {
		t.Fatalf("phase entry should spawn one obstacle, have %d", len(s.world.Obstacles))
	}
	if !s.lastCond.LowLight {
		t.Error("phase low_light patch not applied")
	}

	s.tick(context.Background())
	s.tick(context.Background())
	if s.phase != "second" {
		t.Errorf("phase = %q after duration trigger, want second", s.phase)
	}
	if len(s.world.Obstacles) != 2 {
		t.Errorf("second phase should add a spawn, have %d obstacles", len(s.world.Obstacles))
	}
}

func TestSimulator_HealthSnapshot(t *testing.T) {
	s := NewSimulator("run-test", testConfig(), audit.New(nil), &mockTrackWriter{}, &mockDecisionWriter{}, nil, nil, time.Second)
	s.SpawnObstacle("pedestrian", 5, 0, 0, 0, "small")
	s.tick(context.Background())

	h := s.Health()
	if h.Tick != 1 {
		t.Errorf("tick = %d, want 1", h.Tick)
	}
	if h.Tracks == 0 {
		t.Error("health reports no tracks after detection")
	}
	if !h.DetectionEnabled {
		t.Error("detection should be enabled by default")
	}
	if rows := s.TracksSnapshot(); len(rows) != h.Tracks {
		t.Errorf("snapshot has %d rows, health says %d", len(rows), h.Tracks)
	}
}
