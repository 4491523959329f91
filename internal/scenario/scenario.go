package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted obstacle scenario with ordered phases.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase is one stage of the scenario: obstacles to spawn on entry, an
// optional environment change, and triggers for transitions.
type Phase struct {
	Name          string    `yaml:"name"`
	Description   string    `yaml:"description,omitempty"`
	DurationTicks int       `yaml:"duration_ticks,omitempty"`
	LowLight      *bool     `yaml:"low_light,omitempty"`
	Spawns        []Spawn   `yaml:"spawns,omitempty"`
	Triggers      []Trigger `yaml:"triggers,omitempty"`
}

// Spawn declares one obstacle entering the world when the phase starts.
type Spawn struct {
	Type       string  `yaml:"type"` // pedestrian|animal|vehicle|static_object
	RangeM     float64 `yaml:"range_m"`
	BearingDeg float64 `yaml:"bearing_deg"`
	SpeedMPS   float64 `yaml:"speed_mps,omitempty"`
	HeadingDeg float64 `yaml:"heading_deg,omitempty"`
	Size       string  `yaml:"size,omitempty"`
}

// Trigger moves the scenario to another phase based on a runtime event.
type Trigger struct {
	Event string `yaml:"event"` // e.g. "tick", "decision:emergency_stop"
	Value int    `yaml:"value,omitempty"`
	Next  string `yaml:"next"`
}

// Event represents a runtime occurrence that may advance the scenario.
type Event struct {
	Type  string
	Value int
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Phases) == 0 {
		return nil, fmt.Errorf("scenario %q has no phases", s.Name)
	}
	return &s, nil
}

// Phase returns the phase with the given name.
func (s *Scenario) Phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the name of the next phase given the current phase and
// event. If no trigger matches, ok is false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range s.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event == ev.Type && ev.Value >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}
