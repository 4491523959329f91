// YAML config loader with CUE schema validation.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

// SensorSpec describes one sensor's envelope and noise behaviour.
type SensorSpec struct {
	MaxRangeM      float64 `yaml:"max_range_m"`
	Accuracy       float64 `yaml:"accuracy"`
	RangeNoise     float64 `yaml:"range_noise"`
	BearingNoiseDeg float64 `yaml:"bearing_noise_deg"`
	DropoutRate    float64 `yaml:"dropout_rate"`
}

// Sensors groups the three simulated sensor families.
type Sensors struct {
	Radar      SensorSpec `yaml:"radar"`
	Infrared   SensorSpec `yaml:"infrared"`
	Ultrasonic SensorSpec `yaml:"ultrasonic"`
}

// Fusion holds the estimator tuning.
type Fusion struct {
	GatingDistanceM     float64 `yaml:"gating_distance_m"`
	StalenessTicks      int     `yaml:"staleness_ticks"`
	ProcessNoise        float64 `yaml:"process_noise"`
	InitialVariance     float64 `yaml:"initial_variance"`
	DivergenceVariance  float64 `yaml:"divergence_variance"`
	MeasurementVariance float64 `yaml:"measurement_variance"`
}

// Policy holds the response thresholds.
type Policy struct {
	PedestrianThreshold float64 `yaml:"pedestrian_threshold"`
	AnimalThreshold     float64 `yaml:"animal_threshold"`
	StaticConfidence    float64 `yaml:"static_confidence"`
	HysteresisMargin    float64 `yaml:"hysteresis_margin"`
	TTCSafetyMarginS    float64 `yaml:"ttc_safety_margin_s"`
	LateralClearanceM   float64 `yaml:"lateral_clearance_m"`
}

// Vehicle holds the simulated vehicle's kinematics.
type Vehicle struct {
	SpeedMPS float64 `yaml:"speed_mps"`
}

// Environment holds the condition-provider settings.
type Environment struct {
	LowLight          bool `yaml:"low_light"`
	ProviderTimeoutMS int  `yaml:"provider_timeout_ms"`
}

// SimulationConfig is the root configuration.
type SimulationConfig struct {
	RunID       string      `yaml:"run_id,omitempty"`
	Vehicle     Vehicle     `yaml:"vehicle"`
	Environment Environment `yaml:"environment"`
	Sensors     Sensors     `yaml:"sensors"`
	Fusion      Fusion      `yaml:"fusion"`
	Policy      Policy      `yaml:"policy"`
	Scenario    string      `yaml:"scenario,omitempty"`
}

// Load reads a YAML config, validates it against the CUE schema, and
// unmarshals it.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies the range checks CUE cannot express conveniently.
func (c *SimulationConfig) Validate() error {
	if c.Policy.HysteresisMargin >= c.Policy.PedestrianThreshold && c.Policy.PedestrianThreshold > 0 {
		return fmt.Errorf("hysteresis_margin %.2f must be below pedestrian_threshold %.2f",
			c.Policy.HysteresisMargin, c.Policy.PedestrianThreshold)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"pedestrian_threshold", c.Policy.PedestrianThreshold},
		{"animal_threshold", c.Policy.AnimalThreshold},
		{"static_confidence", c.Policy.StaticConfidence},
	} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("%s %.2f outside [0,1]", p.name, p.v)
		}
	}
	if c.Vehicle.SpeedMPS < 0 {
		return fmt.Errorf("vehicle speed_mps must be non-negative")
	}
	return nil
}

// ValidateWithCue validates a YAML configuration file using a CUE schema
// file.
func ValidateWithCue(configFile, cueFile string) error {
	ctx := cuecontext.New()

	yamlBytes, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("cannot read YAML config: %w", err)
	}
	file, err := cueyaml.Extract(configFile, yamlBytes)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)

	schemaBytes, err := os.ReadFile(cueFile)
	if err != nil {
		return fmt.Errorf("cannot read CUE schema: %w", err)
	}
	schemaVal := ctx.CompileBytes(schemaBytes)

	final := configVal.Unify(schemaVal)
	if final.Err() != nil {
		return fmt.Errorf("schema unify failed: %w", final.Err())
	}
	if err := final.Validate(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
