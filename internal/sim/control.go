package sim

import (
	"context"
	"log/slog"
)

// ControlSink applies an aggregate decision to simulated vehicle actuation.
// A non-nil error means the decision was not acknowledged.
type ControlSink interface {
	Apply(ctx context.Context, d DecisionRow) error
}

// SlogControlSink acknowledges every decision and logs it.
type SlogControlSink struct {
	Log *slog.Logger
}

// Apply implements ControlSink.
func (s *SlogControlSink) Apply(ctx context.Context, d DecisionRow) error {
	if s.Log != nil {
		s.Log.Info("vehicle control", "action", d.Action, "track_id", d.TrackID, "why", d.Justification)
	}
	return nil
}
