package world

import (
	"math"
	"testing"
	"time"
)

func TestEngine_SpawnPlacesObstacle(t *testing.T) {
	e := NewEngine(nil)
	ob := e.Spawn(ObstaclePedestrian, 50, 30, 1.5, -90, "small")

	if ob.ID == "" {
		t.Error("spawned obstacle has no ID")
	}
	wantX := 50 * math.Cos(30*math.Pi/180)
	wantY := 50 * math.Sin(30*math.Pi/180)
	if math.Abs(ob.X-wantX) > 1e-9 || math.Abs(ob.Y-wantY) > 1e-9 {
		t.Errorf("position = (%.2f, %.2f), want (%.2f, %.2f)", ob.X, ob.Y, wantX, wantY)
	}
	if math.Abs(ob.VY - -1.5) > 1e-9 {
		t.Errorf("heading -90 should move along -y, got vy=%.2f", ob.VY)
	}
	if len(e.Obstacles) != 1 {
		t.Errorf("engine holds %d obstacles, want 1", len(e.Obstacles))
	}
}

func TestEngine_StepAddsVehicleClosing(t *testing.T) {
	e := NewEngine(nil)
	ob := e.Spawn(ObstacleStatic, 100, 0, 0, 0, "large")

	e.Step(time.Second, 10)
	if math.Abs(ob.X-90) > 1e-9 {
		t.Errorf("static obstacle should close at vehicle speed: x=%.2f, want 90", ob.X)
	}
}

func TestEngine_StepDropsOutOfRange(t *testing.T) {
	e := NewEngine(nil)
	e.Spawn(ObstacleVehicle, 215, 0, 20, 0, "large") // moving away
	e.Spawn(ObstaclePedestrian, 30, 0, 0, 0, "small")

	e.Step(time.Second, 0)
	if len(e.Obstacles) != 2 {
		t.Fatalf("both obstacles should survive, have %d", len(e.Obstacles))
	}
	e.Step(time.Second, 0)
	if len(e.Obstacles) != 1 {
		t.Errorf("obstacle past 250m should be dropped, have %d", len(e.Obstacles))
	}
}

func TestEngine_UniqueIDs(t *testing.T) {
	e := NewEngine(nil)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		ob := e.Spawn(ObstacleAnimal, 50, 0, 0, 0, "medium")
		if seen[ob.ID] {
			t.Fatalf("duplicate obstacle ID %s", ob.ID)
		}
		seen[ob.ID] = true
	}
}
