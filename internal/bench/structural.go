package bench

import (
	"fmt"
	"math/rand"
	"time"

	"ecs-bench/internal/ecs"
)

// minChurn is the per-frame floor on structural operations, so small
// populations still exercise the churn path.
const minChurn = 10

// spawnDespawn continuously destroys and recreates a fraction of its
// entities each frame, stressing entity allocation and table compaction.
type spawnDespawn struct {
	world     *ecs.World
	rng       *rand.Rand
	churnRate float64

	entities []ecs.Entity
	cursor   int
}

func newSpawnDespawn(world *ecs.World, churnRate float64) *spawnDespawn {
	return &spawnDespawn{
		world:     world,
		rng:       rand.New(rand.NewSource(4)),
		churnRate: churnRate,
	}
}

func (w *spawnDespawn) Name() string        { return "Spawn/Despawn Churn" }
func (w *spawnDespawn) Key() string         { return "spawn_despawn" }
func (w *spawnDespawn) Description() string { return "Spawn and despawn entities each frame" }

func (w *spawnDespawn) Spawn(count int) error {
	if count < 0 {
		return fmt.Errorf("spawn count cannot be negative: %d", count)
	}
	mask := ecs.CompPosition | ecs.CompVelocity
	w.entities = w.world.SpawnBatch(mask, count)
	w.cursor = 0
	for _, table := range w.world.Query(mask) {
		for i := range table.Positions {
			table.Positions[i] = randomVec3(w.rng)
			table.Velocities[i] = ecs.Velocity(randomVec3(w.rng))
		}
	}
	return nil
}

func (w *spawnDespawn) Update(dt time.Duration) error {
	n := len(w.entities)
	if n == 0 {
		return nil
	}

	churn := int(float64(n) * w.churnRate)
	if churn < minChurn {
		churn = minChurn
	}
	if churn > n {
		churn = n
	}

	mask := ecs.CompPosition | ecs.CompVelocity
	for i := 0; i < churn; i++ {
		idx := (w.cursor + i) % n
		if !w.world.Despawn(w.entities[idx]) {
			return fmt.Errorf("churn despawn failed for entity %v", w.entities[idx])
		}
		e := w.world.Spawn(mask)
		*w.world.Position(e) = randomVec3(w.rng)
		*w.world.Velocity(e) = ecs.Velocity(randomVec3(w.rng))
		w.entities[idx] = e
	}
	w.cursor = (w.cursor + churn) % n
	return nil
}

func (w *spawnDespawn) Cleanup() error {
	w.world.DespawnAll()
	w.entities = nil
	w.cursor = 0
	return nil
}

// componentAddRemove toggles a marker component on a rotating subset,
// forcing archetype migration every frame.
type componentAddRemove struct {
	world     *ecs.World
	rng       *rand.Rand
	churnRate float64

	entities []ecs.Entity
	cursor   int
}

func newComponentAddRemove(world *ecs.World, churnRate float64) *componentAddRemove {
	return &componentAddRemove{
		world:     world,
		rng:       rand.New(rand.NewSource(5)),
		churnRate: churnRate,
	}
}

func (w *componentAddRemove) Name() string { return "Component Add/Remove" }
func (w *componentAddRemove) Key() string  { return "component_add_remove" }
func (w *componentAddRemove) Description() string {
	return "Add/remove components on existing entities"
}

// Spawn creates half the entities with the toggle marker and half without,
// so both archetypes exist before migration traffic starts.
func (w *componentAddRemove) Spawn(count int) error {
	if count < 0 {
		return fmt.Errorf("spawn count cannot be negative: %d", count)
	}
	base := ecs.CompCounter | ecs.CompPosition
	half := count / 2
	w.entities = make([]ecs.Entity, 0, count)
	w.entities = append(w.entities, w.world.SpawnBatch(base, half)...)
	w.entities = append(w.entities, w.world.SpawnBatch(base|ecs.CompToggle, count-half)...)
	w.cursor = 0
	for _, table := range w.world.Query(base) {
		for i := range table.Positions {
			table.Positions[i] = randomVec3(w.rng)
		}
	}
	return nil
}

func (w *componentAddRemove) Update(dt time.Duration) error {
	n := len(w.entities)
	if n == 0 {
		return nil
	}

	churn := int(float64(n) * w.churnRate)
	if churn < minChurn {
		churn = minChurn
	}
	if churn > n {
		churn = n
	}

	for i := 0; i < churn; i++ {
		e := w.entities[(w.cursor+i)%n]
		mask, ok := w.world.MaskOf(e)
		if !ok {
			return fmt.Errorf("toggle target %v is not alive", e)
		}
		var err error
		if mask&ecs.CompToggle != 0 {
			err = w.world.RemoveComponent(e, ecs.CompToggle)
		} else {
			err = w.world.AddComponent(e, ecs.CompToggle)
		}
		if err != nil {
			return err
		}
	}
	w.cursor = (w.cursor + churn) % n
	return nil
}

func (w *componentAddRemove) Cleanup() error {
	w.world.DespawnAll()
	w.entities = nil
	w.cursor = 0
	return nil
}
