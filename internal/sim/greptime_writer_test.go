package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
)

// mockGreptimeClient captures written tables.
type mockGreptimeClient struct {
	tables []*table.Table
	err    error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, nil
}

func testGreptimeWriter(client greptimeClient) *GreptimeDBWriter {
	return &GreptimeDBWriter{client: client, trackTable: "obstacle_tracks", decisionTable: "control_decisions"}
}

func TestGreptimeDBWriter_WriteTracks(t *testing.T) {
	client := &mockGreptimeClient{}
	w := testGreptimeWriter(client)

	rows := []TrackRow{
		{RunID: "r1", TrackID: "t1", Tick: 3, X: 12, Y: -1, Class: "pedestrian", ClassProb: 0.8, Timestamp: time.Now()},
		{RunID: "r1", TrackID: "t2", Tick: 3, X: 40, Y: 5, Class: "static_object", ClassProb: 0.7, Timestamp: time.Now()},
	}
	if err := w.WriteTracks(rows); err != nil {
		t.Fatal(err)
	}
	if len(client.tables) != 1 {
		t.Fatalf("wrote %d tables, want 1 batched table", len(client.tables))
	}
}

func TestGreptimeDBWriter_WriteDecision(t *testing.T) {
	client := &mockGreptimeClient{}
	w := testGreptimeWriter(client)

	d := DecisionRow{RunID: "r1", TrackID: "t1", Action: "emergency_stop", Justification: "ttc below margin", Aggregate: true, Timestamp: time.Now()}
	if err := w.WriteDecision(d); err != nil {
		t.Fatal(err)
	}
	if len(client.tables) != 1 {
		t.Fatalf("wrote %d tables, want 1", len(client.tables))
	}
}

func TestGreptimeDBWriter_EmptyBatchSkipsWrite(t *testing.T) {
	client := &mockGreptimeClient{}
	w := testGreptimeWriter(client)
	if err := w.WriteTracks(nil); err != nil {
		t.Fatal(err)
	}
	if len(client.tables) != 0 {
		t.Error("empty batch should not hit the client")
	}
}

func TestGreptimeDBWriter_PropagatesError(t *testing.T) {
	client := &mockGreptimeClient{err: errors.New("connection refused")}
	w := testGreptimeWriter(client)
	if err := w.WriteTrack(TrackRow{RunID: "r1", TrackID: "t1", Timestamp: time.Now()}); err == nil {
		t.Error("client error should propagate")
	}
}
