package bench

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"ecs-bench/internal/ecs"
)

// positionVelocity is the classic game-loop write pattern: read velocity,
// integrate position.
type positionVelocity struct {
	world *ecs.World
	rng   *rand.Rand
}

func newPositionVelocity(world *ecs.World) *positionVelocity {
	return &positionVelocity{
		world: world,
		rng:   rand.New(rand.NewSource(3)),
	}
}

func (w *positionVelocity) Name() string        { return "Position/Velocity Update" }
func (w *positionVelocity) Key() string         { return "position_velocity" }
func (w *positionVelocity) Description() string { return "Classic game loop: position += velocity" }

func (w *positionVelocity) Spawn(count int) error {
	if count < 0 {
		return fmt.Errorf("spawn count cannot be negative: %d", count)
	}
	mask := ecs.CompPosition | ecs.CompVelocity
	w.world.SpawnBatch(mask, count)
	for _, table := range w.world.Query(mask) {
		for i := range table.Positions {
			table.Positions[i] = randomVec3(w.rng)
			table.Velocities[i] = ecs.Velocity(randomVec3(w.rng))
		}
	}
	return nil
}

func (w *positionVelocity) Update(dt time.Duration) error {
	step := float32(dt.Seconds())
	mask := ecs.CompPosition | ecs.CompVelocity
	for _, table := range w.world.Query(mask) {
		for i := range table.Positions {
			p, v := &table.Positions[i], &table.Velocities[i]
			p.X = wrapCoord(p.X + v.X*step)
			p.Y = wrapCoord(p.Y + v.Y*step)
			p.Z = wrapCoord(p.Z + v.Z*step)
		}
	}
	return nil
}

func (w *positionVelocity) Cleanup() error {
	w.world.DespawnAll()
	return nil
}

// wrapCoord keeps coordinates in [-1000, 1000) so values stay finite over
// arbitrarily long runs.
func wrapCoord(v float32) float32 {
	m := float32(math.Mod(float64(v)+1000, 2000))
	if m < 0 {
		m += 2000
	}
	return m - 1000
}
