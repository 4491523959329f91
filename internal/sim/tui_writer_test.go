package sim

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// mockProgram records sent messages without a running TUI.
type mockProgram struct {
	msgs []tea.Msg
}

func (p *mockProgram) Send(msg tea.Msg) { p.msgs = append(p.msgs, msg) }

func testTUIWriter() (*TUIWriter, *mockProgram) {
	p := &mockProgram{}
	return &TUIWriter{program: p}, p
}

func TestTUIWriter_WriteTrackSendsMsg(t *testing.T) {
	w, p := testTUIWriter()
	row := TrackRow{RunID: "r1", TrackID: "track-12345678", Class: "pedestrian", ClassProb: 0.8, Degraded: true, Timestamp: time.Now()}
	if err := w.WriteTrack(row); err != nil {
		t.Fatal(err)
	}
	if len(p.msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(p.msgs))
	}
	msg, ok := p.msgs[0].(trackMsg)
	if !ok {
		t.Fatalf("message type %T, want trackMsg", p.msgs[0])
	}
	if !strings.Contains(msg.line, "pedestrian") || !strings.Contains(msg.line, "degraded") {
		t.Errorf("log line missing fields: %q", msg.line)
	}
	if msg.row.TrackID != row.TrackID {
		t.Error("row not carried with message")
	}
}

func TestTUIWriter_WriteDecisionLabels(t *testing.T) {
	w, p := testTUIWriter()
	w.WriteDecision(DecisionRow{Action: "emergency_stop", Aggregate: true, Timestamp: time.Now()})
	w.WriteDecision(DecisionRow{Action: "no_action", Timestamp: time.Now()})

	agg := p.msgs[0].(decisionMsg)
	if !strings.Contains(agg.line, "CONTROL") {
		t.Errorf("aggregate decision not labelled CONTROL: %q", agg.line)
	}
	per := p.msgs[1].(decisionMsg)
	if !strings.Contains(per.line, "DECISION") {
		t.Errorf("per-track decision not labelled DECISION: %q", per.line)
	}
}

func TestTUIWriter_WriteAlertSendsMsg(t *testing.T) {
	w, p := testTUIWriter()
	w.WriteAlert(AlertRow{TrackID: "t1", From: "no_action", To: "slow_and_alert", Timestamp: time.Now()})
	msg, ok := p.msgs[0].(alertMsg)
	if !ok {
		t.Fatalf("message type %T, want alertMsg", p.msgs[0])
	}
	if !strings.Contains(msg.line, "slow_and_alert") {
		t.Errorf("alert line missing action: %q", msg.line)
	}
}

func TestParseSpawnInput(t *testing.T) {
	typ, rangeM, bearing, speed, heading, err := parseSpawnInput("pedestrian,40,10,1.5,180")
	if err != nil {
		t.Fatal(err)
	}
	if typ != "pedestrian" || rangeM != 40 || bearing != 10 || speed != 1.5 || heading != 180 {
		t.Errorf("parsed %s/%.1f/%.1f/%.1f/%.1f", typ, rangeM, bearing, speed, heading)
	}

	// Speed and heading optional.
	typ, rangeM, _, speed, _, err = parseSpawnInput("static_object, 60, -5")
	if err != nil {
		t.Fatal(err)
	}
	if typ != "static_object" || rangeM != 60 || speed != 0 {
		t.Errorf("parsed %s/%.1f/%.1f", typ, rangeM, speed)
	}

	if _, _, _, _, _, err := parseSpawnInput("pedestrian,40"); err == nil {
		t.Error("expected error for missing bearing")
	}
	if _, _, _, _, _, err := parseSpawnInput("pedestrian,forty,10"); err == nil {
		t.Error("expected error for non-numeric range")
	}
}
