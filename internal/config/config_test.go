package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
vehicle:
  speed_mps: 13.9
environment:
  low_light: false
  provider_timeout_ms: 100
sensors:
  radar:
    max_range_m: 150
    accuracy: 0.95
  infrared:
    max_range_m: 80
    accuracy: 0.85
  ultrasonic:
    max_range_m: 10
    accuracy: 0.75
fusion:
  gating_distance_m: 5.0
  staleness_ticks: 3
  process_noise: 1.0
  initial_variance: 4.0
  divergence_variance: 100.0
  measurement_variance: 1.0
policy:
  pedestrian_threshold: 0.7
  animal_threshold: 0.7
  static_confidence: 0.6
  hysteresis_margin: 0.1
  ttc_safety_margin_s: 2.0
  lateral_clearance_m: 1.5
`

const validCUE = `
vehicle: speed_mps: >=0
policy: pedestrian_threshold: >=0 & <=1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeFile(t, "sim.yaml", validYAML), writeFile(t, "sim.cue", validCUE))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Vehicle.SpeedMPS != 13.9 {
		t.Errorf("speed = %.1f, want 13.9", cfg.Vehicle.SpeedMPS)
	}
	if cfg.Sensors.Radar.MaxRangeM != 150 {
		t.Errorf("radar range = %.0f, want 150", cfg.Sensors.Radar.MaxRangeM)
	}
	if cfg.Fusion.StalenessTicks != 3 {
		t.Errorf("staleness = %d, want 3", cfg.Fusion.StalenessTicks)
	}
}

func TestValidate_HysteresisBelowThreshold(t *testing.T) {
	cfg := &SimulationConfig{
		Policy: Policy{PedestrianThreshold: 0.5, HysteresisMargin: 0.6},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when hysteresis margin exceeds pedestrian threshold")
	}
}

func TestValidate_ThresholdRange(t *testing.T) {
	cfg := &SimulationConfig{
		Policy: Policy{PedestrianThreshold: 1.2},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for threshold above 1")
	}
}

func TestValidate_NegativeSpeed(t *testing.T) {
	cfg := &SimulationConfig{
		Vehicle: Vehicle{SpeedMPS: -1},
		Policy:  Policy{PedestrianThreshold: 0.7, AnimalThreshold: 0.7, StaticConfidence: 0.6, HysteresisMargin: 0.1},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative vehicle speed")
	}
}

func TestValidateWithCue_RejectsSchemaViolation(t *testing.T) {
	bad := `
vehicle:
  speed_mps: -5
policy:
  pedestrian_threshold: 0.7
`
	err := ValidateWithCue(writeFile(t, "bad.yaml", bad), writeFile(t, "sim.cue", validCUE))
	if err == nil {
		t.Error("expected CUE validation failure for negative speed")
	}
}
