// Package bench implements the benchmark engine: the workload catalog, the
// phase state machine driving warm-up/measurement/scaling, the breakdown
// search, and report aggregation.
package bench

import (
	"fmt"
	"time"

	"ecs-bench/internal/config"
	"ecs-bench/internal/ecs"
)

// Workload is one fixed access pattern exercised against the store.
// Implementations are stateless apart from the entities they own in the
// world; all three operations are safe to call with zero live entities.
type Workload interface {
	Name() string
	Description() string
	Key() string

	// Spawn creates exactly count entities with the components this
	// workload's access pattern needs.
	Spawn(count int) error

	// Update executes one frame's worth of the characteristic access
	// pattern. dt is the elapsed time since the previous frame.
	Update(dt time.Duration) error

	// Cleanup removes every entity this workload created. Idempotent.
	Cleanup() error
}

// Registry is the fixed, ordered catalog of workloads.
type Registry struct {
	workloads []Workload
	byKey     map[string]int
}

// NewRegistry builds the standard six-workload catalog over one world.
func NewRegistry(world *ecs.World, cfg config.BenchmarkConfig) *Registry {
	r := &Registry{byKey: make(map[string]int)}
	r.register(newSimpleIteration(world))
	r.register(newMultiComponentRead(world))
	r.register(newPositionVelocity(world))
	r.register(newSpawnDespawn(world, cfg.ChurnRate))
	r.register(newComponentAddRemove(world, cfg.ChurnRate))
	r.register(newFragmentedArchetypes(world, cfg.ArchetypeVariants))
	return r
}

func (r *Registry) register(w Workload) {
	r.byKey[w.Key()] = len(r.workloads)
	r.workloads = append(r.workloads, w)
}

// Len returns the number of registered workloads.
func (r *Registry) Len() int {
	return len(r.workloads)
}

// ByIndex returns the workload at position i in registration order.
func (r *Registry) ByIndex(i int) (Workload, error) {
	if i < 0 || i >= len(r.workloads) {
		return nil, fmt.Errorf("workload index %d out of range [0, %d)", i, len(r.workloads))
	}
	return r.workloads[i], nil
}

// ByKey looks a workload up by its stable key.
func (r *Registry) ByKey(key string) (Workload, error) {
	i, ok := r.byKey[key]
	if !ok {
		return nil, fmt.Errorf("unknown workload: %q", key)
	}
	return r.workloads[i], nil
}

// All returns the workloads in registration order.
func (r *Registry) All() []Workload {
	out := make([]Workload, len(r.workloads))
	copy(out, r.workloads)
	return out
}
