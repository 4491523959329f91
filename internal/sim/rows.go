// Row types written by the telemetry sinks, with greptime table names.
package sim

import (
	"os"
	"time"

	"drivepilot-sim/internal/fusion"
	"drivepilot-sim/internal/policy"
)

// TrackRow is one fused track state at a tick, flattened for sinks.
type TrackRow struct {
	RunID     string    `json:"run_id"`   // TAG
	TrackID   string    `json:"track_id"` // TAG
	Tick      int       `json:"tick"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	VX        float64   `json:"vx"`
	VY        float64   `json:"vy"`
	RangeM    float64   `json:"range_m"`
	Class     string    `json:"class"`
	ClassProb float64   `json:"class_prob"`
	Age       int       `json:"age"`
	Degraded  bool      `json:"degraded"`
	Timestamp time.Time `json:"ts"` // TIME INDEX
}

// DecisionRow is one policy decision, per track or aggregate.
type DecisionRow struct {
	RunID         string    `json:"run_id"`   // TAG
	TrackID       string    `json:"track_id"` // TAG
	Action        string    `json:"action"`
	Justification string    `json:"justification"`
	Aggregate     bool      `json:"aggregate"`
	Timestamp     time.Time `json:"ts"` // TIME INDEX
}

// AlertRow is one per-track action transition.
type AlertRow struct {
	RunID     string    `json:"run_id"`
	TrackID   string    `json:"track_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"ts"`
}

// Table names used by the GreptimeDB writer, overridable via environment.
var (
	TrackTableName    = tableName("DP_TRACK_TABLE", "obstacle_tracks")
	DecisionTableName = tableName("DP_DECISION_TABLE", "control_decisions")
)

func tableName(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// NewTrackRow flattens a fused track for writing.
func NewTrackRow(runID string, tick int, t *fusion.Track, ts time.Time) TrackRow {
	class, prob := t.Best()
	return TrackRow{
		RunID:     runID,
		TrackID:   t.ID,
		Tick:      tick,
		X:         t.X,
		Y:         t.Y,
		VX:        t.VX,
		VY:        t.VY,
		RangeM:    t.RangeM(),
		Class:     string(class),
		ClassProb: prob,
		Age:       t.Age,
		Degraded:  t.Degraded,
		Timestamp: ts,
	}
}

// NewDecisionRow flattens a policy decision for writing.
func NewDecisionRow(runID string, d policy.Decision, aggregate bool) DecisionRow {
	return DecisionRow{
		RunID:         runID,
		TrackID:       d.TrackID,
		Action:        string(d.Action),
		Justification: d.Justification,
		Aggregate:     aggregate,
		Timestamp:     d.Timestamp,
	}
}

// NewAlertRow flattens a policy transition alert for writing.
func NewAlertRow(runID string, a policy.Alert) AlertRow {
	return AlertRow{
		RunID:     runID,
		TrackID:   a.TrackID,
		From:      string(a.From),
		To:        string(a.To),
		Message:   a.Message,
		Timestamp: a.Timestamp,
	}
}
