// Response policy mapping fused tracks to vehicle-control actions.
package policy

import (
	"fmt"
	"math"
	"time"

	"drivepilot-sim/internal/fusion"
)

// Action is a vehicle-control response.
type Action string

const (
	ActionEmergencyStop  Action = "emergency_stop"
	ActionSlowAndAlert   Action = "slow_and_alert"
	ActionNavigateAround Action = "navigate_around"
	ActionNoAction       Action = "no_action"
)

// severityRank orders actions for aggregate selection, highest first.
var severityRank = map[Action]int{
	ActionEmergencyStop:  3,
	ActionSlowAndAlert:   2,
	ActionNavigateAround: 1,
	ActionNoAction:       0,
}

// Decision is an immutable per-track policy outcome. Tracks are referenced
// by identifier only.
type Decision struct {
	TrackID       string    `json:"track_id"`
	Action        Action    `json:"action"`
	Justification string    `json:"justification"`
	Timestamp     time.Time `json:"ts"`
}

// Alert records a per-track action transition. Emitted once per
// transition, not per tick.
type Alert struct {
	TrackID   string    `json:"track_id"`
	From      Action    `json:"from"`
	To        Action    `json:"to"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"ts"`
}

// VehicleState is the kinematic input to the policy.
type VehicleState struct {
	SpeedMPS float64
}

// Conditions are the environmental flags consumed per tick.
type Conditions struct {
	LowLight bool
	Degraded bool // provider timed out; values are last-known
}

// Config holds the policy thresholds. Zero values fall back to defaults.
type Config struct {
	PedestrianThreshold float64 // classification probability for rule 1
	AnimalThreshold     float64 // classification probability for rule 2
	StaticConfidence    float64 // classification probability for rule 3
	HysteresisMargin    float64 // release buffer below PedestrianThreshold
	TTCSafetyMarginS    float64 // time-to-collision bound for emergency stop
	LateralClearanceM   float64 // projected miss distance counting as no collision course
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		PedestrianThreshold: 0.7,
		AnimalThreshold:     0.7,
		StaticConfidence:    0.6,
		HysteresisMargin:    0.1,
		TTCSafetyMarginS:    2.0,
		LateralClearanceM:   1.5,
	}
}

// Result is the outcome of one policy evaluation.
type Result struct {
	Decisions []Decision
	Aggregate Decision // most severe decision for vehicle control
	Alerts    []Alert
}

// Engine evaluates the response policy with per-track hysteresis.
type Engine struct {
	cfg    Config
	active map[string]Action // last issued action per track
}

// NewEngine creates a policy engine.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.PedestrianThreshold <= 0 {
		cfg.PedestrianThreshold = def.PedestrianThreshold
	}
	if cfg.AnimalThreshold <= 0 {
		cfg.AnimalThreshold = def.AnimalThreshold
	}
	if cfg.StaticConfidence <= 0 {
		cfg.StaticConfidence = def.StaticConfidence
	}
	if cfg.HysteresisMargin <= 0 {
		cfg.HysteresisMargin = def.HysteresisMargin
	}
	if cfg.TTCSafetyMarginS <= 0 {
		cfg.TTCSafetyMarginS = def.TTCSafetyMarginS
	}
	if cfg.LateralClearanceM <= 0 {
		cfg.LateralClearanceM = def.LateralClearanceM
	}
	return &Engine{cfg: cfg, active: make(map[string]Action)}
}

// Evaluate produces one decision per track plus the most severe aggregate.
// Hysteresis: an issued emergency_stop persists until the track dies or
// its pedestrian probability falls below threshold minus the margin.
func (e *Engine) Evaluate(tracks []*fusion.Track, vs VehicleState, cond Conditions, now time.Time) Result {
	var res Result
	res.Aggregate = Decision{Action: ActionNoAction, Justification: "no tracks requiring action", Timestamp: now}

	live := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		live[t.ID] = true
		d := e.decide(t, vs, cond, now)

		prev, seen := e.active[t.ID]
		if !seen {
			prev = ActionNoAction
		}
		if d.Action != prev {
			res.Alerts = append(res.Alerts, Alert{
				TrackID:   t.ID,
				From:      prev,
				To:        d.Action,
				Message:   d.Justification,
				Timestamp: now,
			})
		}
		e.active[t.ID] = d.Action

		if d.Action != ActionNoAction {
			res.Decisions = append(res.Decisions, d)
		}
		if severityRank[d.Action] > severityRank[res.Aggregate.Action] {
			res.Aggregate = d
		}
	}

	// Forget hysteresis state for tracks that no longer exist.
	for id := range e.active {
		if !live[id] {
			delete(e.active, id)
		}
	}

	return res
}

// decide applies the priority policy to one track, first match wins.
func (e *Engine) decide(t *fusion.Track, vs VehicleState, cond Conditions, now time.Time) Decision {
	d := Decision{TrackID: t.ID, Timestamp: now}
	pedProb := t.Prob(fusion.ClassPedestrian)
	closing := t.ClosingSpeed()
	ttc := timeToCollision(t.RangeM(), closing)

	// Hysteresis hold: an active emergency stop releases only below
	// threshold minus margin.
	if e.active[t.ID] == ActionEmergencyStop {
		if pedProb >= e.cfg.PedestrianThreshold-e.cfg.HysteresisMargin {
			d.Action = ActionEmergencyStop
			d.Justification = fmt.Sprintf("emergency stop held: pedestrian probability %.2f above release threshold %.2f",
				pedProb, e.cfg.PedestrianThreshold-e.cfg.HysteresisMargin)
			return d
		}
	}

	// Rule 1: pedestrian on collision course. A non-closing track is
	// never eligible.
	if pedProb >= e.cfg.PedestrianThreshold && closing > 0 && ttc < e.cfg.TTCSafetyMarginS {
		d.Action = ActionEmergencyStop
		d.Justification = fmt.Sprintf("pedestrian probability %.2f >= %.2f, time-to-collision %.1fs < %.1fs",
			pedProb, e.cfg.PedestrianThreshold, ttc, e.cfg.TTCSafetyMarginS)
		return d
	}

	// Rule 2: animal in low light.
	if animalProb := t.Prob(fusion.ClassAnimal); animalProb >= e.cfg.AnimalThreshold && cond.LowLight {
		d.Action = ActionSlowAndAlert
		d.Justification = fmt.Sprintf("animal probability %.2f >= %.2f in low light", animalProb, e.cfg.AnimalThreshold)
		return d
	}

	// Rule 3: static object off the collision course.
	if staticProb := t.Prob(fusion.ClassStatic); staticProb >= e.cfg.StaticConfidence &&
		!e.onCollisionCourse(t, vs) {
		d.Action = ActionNavigateAround
		d.Justification = fmt.Sprintf("static object probability %.2f >= %.2f, no collision course", staticProb, e.cfg.StaticConfidence)
		return d
	}

	d.Action = ActionNoAction
	d.Justification = "no policy rule matched"
	return d
}

// onCollisionCourse projects the track's lateral offset at the moment the
// vehicle reaches it. A stopped vehicle is not on a collision course with
// anything ahead of it.
func (e *Engine) onCollisionCourse(t *fusion.Track, vs VehicleState) bool {
	if t.X <= 0 {
		return false // beside or behind the vehicle
	}
	speed := math.Max(vs.SpeedMPS, t.ClosingSpeed())
	if speed <= 0 {
		return false
	}
	tta := t.X / speed
	lateral := math.Abs(t.Y + t.VY*tta)
	return lateral < e.cfg.LateralClearanceM
}

// timeToCollision returns range over closing speed, or +Inf when the track
// is not closing.
func timeToCollision(rangeM, closingMPS float64) float64 {
	if closingMPS <= 0 {
		return math.Inf(1)
	}
	return rangeM / closingMPS
}
