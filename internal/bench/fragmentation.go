package bench

import (
	"fmt"
	"math/rand"
	"time"

	"ecs-bench/internal/ecs"
)

// variantCombos mirrors the marker combinations used to fragment the
// store: four single markers, then four pairs.
var variantCombos = []ecs.Mask{
	ecs.CompVariantA,
	ecs.CompVariantB,
	ecs.CompVariantC,
	ecs.CompVariantD,
	ecs.CompVariantA | ecs.CompVariantB,
	ecs.CompVariantC | ecs.CompVariantD,
	ecs.CompVariantE | ecs.CompVariantF,
	ecs.CompVariantG | ecs.CompVariantH,
}

// fragmentedArchetypes spreads entities across many small archetypes so a
// single query has to hop between tables, defeating cache locality.
type fragmentedArchetypes struct {
	world    *ecs.World
	rng      *rand.Rand
	variants int
}

func newFragmentedArchetypes(world *ecs.World, variants int) *fragmentedArchetypes {
	if variants <= 0 || variants > len(variantCombos) {
		variants = len(variantCombos)
	}
	return &fragmentedArchetypes{
		world:    world,
		rng:      rand.New(rand.NewSource(6)),
		variants: variants,
	}
}

func (w *fragmentedArchetypes) Name() string { return "Fragmented Archetypes" }
func (w *fragmentedArchetypes) Key() string  { return "fragmented_archetypes" }
func (w *fragmentedArchetypes) Description() string {
	return "Entities spread across many archetypes"
}

// Spawn round-robins entities across the variant archetypes, one batch per
// archetype so each table still gets a contiguous fill.
func (w *fragmentedArchetypes) Spawn(count int) error {
	if count < 0 {
		return fmt.Errorf("spawn count cannot be negative: %d", count)
	}
	base := ecs.CompPosition | ecs.CompVelocity
	per := count / w.variants
	remainder := count % w.variants
	for v := 0; v < w.variants; v++ {
		n := per
		if v < remainder {
			n++
		}
		w.world.SpawnBatch(base|variantCombos[v], n)
	}
	for _, table := range w.world.Query(base) {
		for i := range table.Positions {
			table.Positions[i] = randomVec3(w.rng)
			table.Velocities[i] = ecs.Velocity(randomVec3(w.rng))
		}
	}
	return nil
}

func (w *fragmentedArchetypes) Update(dt time.Duration) error {
	var sum float32
	for _, table := range w.world.Query(ecs.CompPosition | ecs.CompVelocity) {
		for i := range table.Positions {
			p, v := &table.Positions[i], &table.Velocities[i]
			sum += p.X*v.X + p.Y*v.Y + p.Z*v.Z
		}
	}
	sinkF32 = sum
	return nil
}

func (w *fragmentedArchetypes) Cleanup() error {
	w.world.DespawnAll()
	return nil
}
