package world

import "time"

// ObstacleType classifies a simulated physical object.
type ObstacleType string

const (
	ObstaclePedestrian ObstacleType = "pedestrian"
	ObstacleAnimal     ObstacleType = "animal"
	ObstacleVehicle    ObstacleType = "vehicle"
	ObstacleStatic     ObstacleType = "static_object"
)

// Obstacle is one ground-truth object in the vehicle frame
// (x forward, y left, metres; velocities relative to the vehicle).
type Obstacle struct {
	ID      string
	Type    ObstacleType
	X, Y    float64
	VX, VY  float64
	Size    string // small|medium|large
	Spawned time.Time
}
