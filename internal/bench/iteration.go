package bench

import (
	"fmt"
	"math/rand"
	"time"

	"ecs-bench/internal/ecs"
)

// Sinks defeat dead-code elimination of the read-only loops. Package-level
// so the compiler cannot prove the sums unused.
var (
	sinkU64 uint64
	sinkF32 float32
)

// simpleIteration reads a single component per entity: the raw cost of
// walking one archetype column.
type simpleIteration struct {
	world *ecs.World
	rng   *rand.Rand
}

func newSimpleIteration(world *ecs.World) *simpleIteration {
	return &simpleIteration{
		world: world,
		rng:   rand.New(rand.NewSource(1)),
	}
}

func (w *simpleIteration) Name() string        { return "Simple Iteration" }
func (w *simpleIteration) Key() string         { return "simple_iteration" }
func (w *simpleIteration) Description() string { return "Read-only iteration over single component" }

func (w *simpleIteration) Spawn(count int) error {
	if count < 0 {
		return fmt.Errorf("spawn count cannot be negative: %d", count)
	}
	w.world.SpawnBatch(ecs.CompCounter, count)
	for _, table := range w.world.Query(ecs.CompCounter) {
		for i := range table.Counters {
			table.Counters[i].Value = w.rng.Uint64()
		}
	}
	return nil
}

func (w *simpleIteration) Update(dt time.Duration) error {
	var sum uint64
	for _, table := range w.world.Query(ecs.CompCounter) {
		for i := range table.Counters {
			sum += table.Counters[i].Value
		}
	}
	sinkU64 = sum
	return nil
}

func (w *simpleIteration) Cleanup() error {
	w.world.DespawnAll()
	return nil
}

// multiComponentRead reads three components per entity, stressing cache
// behavior with wider rows.
type multiComponentRead struct {
	world *ecs.World
	rng   *rand.Rand
}

func newMultiComponentRead(world *ecs.World) *multiComponentRead {
	return &multiComponentRead{
		world: world,
		rng:   rand.New(rand.NewSource(2)),
	}
}

func (w *multiComponentRead) Name() string        { return "Multi-Component Read" }
func (w *multiComponentRead) Key() string         { return "multi_component_read" }
func (w *multiComponentRead) Description() string { return "Read 3 components per entity" }

func (w *multiComponentRead) Spawn(count int) error {
	if count < 0 {
		return fmt.Errorf("spawn count cannot be negative: %d", count)
	}
	mask := ecs.CompPosition | ecs.CompVelocity | ecs.CompAcceleration
	w.world.SpawnBatch(mask, count)
	for _, table := range w.world.Query(mask) {
		for i := range table.Positions {
			table.Positions[i] = randomVec3(w.rng)
			table.Velocities[i] = ecs.Velocity(randomVec3(w.rng))
			table.Accelerations[i] = ecs.Acceleration(randomVec3(w.rng))
		}
	}
	return nil
}

func (w *multiComponentRead) Update(dt time.Duration) error {
	var sum float32
	mask := ecs.CompPosition | ecs.CompVelocity | ecs.CompAcceleration
	for _, table := range w.world.Query(mask) {
		for i := range table.Positions {
			p, v, a := &table.Positions[i], &table.Velocities[i], &table.Accelerations[i]
			sum += p.X + v.X + a.X
			sum += p.Y + v.Y + a.Y
			sum += p.Z + v.Z + a.Z
		}
	}
	sinkF32 = sum
	return nil
}

func (w *multiComponentRead) Cleanup() error {
	w.world.DespawnAll()
	return nil
}

// randomVec3 generates coordinates in [-1000, 1000).
func randomVec3(rng *rand.Rand) ecs.Position {
	return ecs.Position{
		X: rng.Float32()*2000 - 1000,
		Y: rng.Float32()*2000 - 1000,
		Z: rng.Float32()*2000 - 1000,
	}
}
