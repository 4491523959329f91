package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"drivepilot-sim/internal/audit"
	"drivepilot-sim/internal/config"
	"drivepilot-sim/internal/sim"
)

type nullTrackWriter struct{}

func (nullTrackWriter) WriteTrack(sim.TrackRow) error { return nil }

type nullDecisionWriter struct{}

func (nullDecisionWriter) WriteDecision(sim.DecisionRow) error { return nil }

func testServer() *Server {
	cfg := &config.SimulationConfig{
		Vehicle:     config.Vehicle{SpeedMPS: 10},
		Environment: config.Environment{ProviderTimeoutMS: 100},
	}
	simulator := sim.NewSimulator("run-admin", cfg, audit.New(nil), nullTrackWriter{}, nullDecisionWriter{}, nil, nil, time.Second)
	return NewServer(simulator)
}

func TestHandleHealth(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var h sim.Health
	if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !h.DetectionEnabled {
		t.Error("detection should default to enabled")
	}
}

func TestHandleToggleDetection(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleToggleDetection(rec, httptest.NewRequest(http.MethodPost, "/toggle-detection", nil))

	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["detection"] {
		t.Error("first toggle should disable detection")
	}
}

func TestHandleSpawnAndTracks(t *testing.T) {
	s := testServer()

	rec := httptest.NewRecorder()
	s.handleSpawn(rec, httptest.NewRequest(http.MethodPost, "/spawn?type=pedestrian&range_m=20&bearing_deg=5", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("spawn status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleTracks(rec, httptest.NewRequest(http.MethodGet, "/tracks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("tracks status = %d", rec.Code)
	}
	var rows []sim.TrackRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode tracks: %v", err)
	}
	// No tick has run yet, so the spawned obstacle has no track.
	if len(rows) != 0 {
		t.Errorf("expected no tracks before the first tick, got %d", len(rows))
	}
}

func TestHandleIndexRenders(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "DrivePilot") {
		t.Error("index page did not render")
	}
}
