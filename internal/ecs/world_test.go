package ecs

import (
	"testing"
)

func TestSpawnAndLen(t *testing.T) {
	w := NewWorld()

	if w.Len() != 0 {
		t.Errorf("new world should be empty, got %d", w.Len())
	}

	e := w.Spawn(CompCounter | CompPosition)
	if w.Len() != 1 {
		t.Errorf("expected 1 entity, got %d", w.Len())
	}
	if !w.Alive(e) {
		t.Error("spawned entity should be alive")
	}

	mask, ok := w.MaskOf(e)
	if !ok || mask != CompCounter|CompPosition {
		t.Errorf("unexpected mask %b", mask)
	}
}

func TestSpawnBatch(t *testing.T) {
	w := NewWorld()

	entities := w.SpawnBatch(CompPosition|CompVelocity, 1000)
	if len(entities) != 1000 {
		t.Fatalf("expected 1000 entities, got %d", len(entities))
	}
	if w.Len() != 1000 {
		t.Errorf("expected Len 1000, got %d", w.Len())
	}
	for _, e := range entities {
		if !w.Alive(e) {
			t.Fatalf("entity %v should be alive", e)
		}
	}

	if got := w.SpawnBatch(CompPosition, 0); got != nil {
		t.Errorf("SpawnBatch(0) should return nil, got %v", got)
	}
}

func TestDespawn(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(CompCounter)

	if !w.Despawn(e) {
		t.Error("despawn of live entity should succeed")
	}
	if w.Len() != 0 {
		t.Errorf("expected empty world, got %d", w.Len())
	}
	if w.Alive(e) {
		t.Error("despawned entity should not be alive")
	}
	// Second despawn with the stale handle is a no-op
	if w.Despawn(e) {
		t.Error("despawn of stale handle should fail")
	}
}

func TestStaleHandleAfterReuse(t *testing.T) {
	w := NewWorld()
	e1 := w.Spawn(CompCounter)
	w.Despawn(e1)

	// The ID is recycled with a bumped generation
	e2 := w.Spawn(CompCounter)
	if e2.ID != e1.ID {
		t.Fatalf("expected recycled ID %d, got %d", e1.ID, e2.ID)
	}
	if e2.Gen == e1.Gen {
		t.Error("recycled entity should have a new generation")
	}
	if w.Alive(e1) {
		t.Error("stale handle should not be alive")
	}
	if !w.Alive(e2) {
		t.Error("new handle should be alive")
	}
}

func TestDespawnAll(t *testing.T) {
	w := NewWorld()
	w.SpawnBatch(CompCounter, 500)
	w.SpawnBatch(CompPosition|CompVelocity, 500)

	w.DespawnAll()
	if w.Len() != 0 {
		t.Errorf("expected empty world, got %d", w.Len())
	}

	// Idempotent: a second DespawnAll leaves the store unchanged
	w.DespawnAll()
	if w.Len() != 0 {
		t.Errorf("expected empty world after second DespawnAll, got %d", w.Len())
	}

	// The store remains usable
	entities := w.SpawnBatch(CompCounter, 10)
	if w.Len() != 10 || len(entities) != 10 {
		t.Errorf("expected 10 entities after respawn, got %d", w.Len())
	}
}

func TestQuery(t *testing.T) {
	w := NewWorld()
	w.SpawnBatch(CompCounter, 100)
	w.SpawnBatch(CompCounter|CompPosition, 200)
	w.SpawnBatch(CompPosition|CompVelocity, 300)

	tests := []struct {
		name    string
		include Mask
		want    int
	}{
		{"counter only", CompCounter, 300},
		{"position only", CompPosition, 500},
		{"position and velocity", CompPosition | CompVelocity, 300},
		{"acceleration", CompAcceleration, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := 0
			for _, table := range w.Query(tt.include) {
				total += len(table.Entities)
			}
			if total != tt.want {
				t.Errorf("Query(%b) matched %d entities, want %d", tt.include, total, tt.want)
			}
		})
	}
}

func TestQueryWritesReachStore(t *testing.T) {
	w := NewWorld()
	entities := w.SpawnBatch(CompCounter, 10)

	for _, table := range w.Query(CompCounter) {
		for i := range table.Counters {
			table.Counters[i].Value = 42
		}
	}

	for _, e := range entities {
		c := w.Counter(e)
		if c == nil || c.Value != 42 {
			t.Fatalf("write through table did not reach store for %v", e)
		}
	}
}

func TestAddRemoveComponent(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(CompCounter | CompPosition)

	w.Position(e).X = 7

	if err := w.AddComponent(e, CompToggle); err != nil {
		t.Fatalf("AddComponent error: %v", err)
	}
	mask, _ := w.MaskOf(e)
	if mask != CompCounter|CompPosition|CompToggle {
		t.Errorf("unexpected mask after add: %b", mask)
	}
	// Data survives the migration
	if got := w.Position(e).X; got != 7 {
		t.Errorf("position lost in migration: got %f", got)
	}

	if err := w.RemoveComponent(e, CompToggle); err != nil {
		t.Fatalf("RemoveComponent error: %v", err)
	}
	mask, _ = w.MaskOf(e)
	if mask != CompCounter|CompPosition {
		t.Errorf("unexpected mask after remove: %b", mask)
	}
	if got := w.Position(e).X; got != 7 {
		t.Errorf("position lost in second migration: got %f", got)
	}

	// Adding an already-present component is a no-op
	if err := w.AddComponent(e, CompCounter); err != nil {
		t.Errorf("adding existing component should be a no-op, got %v", err)
	}

	// Dead entities are rejected
	w.Despawn(e)
	if err := w.AddComponent(e, CompToggle); err == nil {
		t.Error("AddComponent on dead entity should fail")
	}
	if err := w.RemoveComponent(e, CompToggle); err == nil {
		t.Error("RemoveComponent on dead entity should fail")
	}
}

func TestArchetypeCount(t *testing.T) {
	w := NewWorld()
	if w.ArchetypeCount() != 0 {
		t.Errorf("empty world has %d archetypes", w.ArchetypeCount())
	}

	for i, variant := range VariantMasks {
		w.SpawnBatch(CompPosition|CompVelocity|variant, 10)
		if got := w.ArchetypeCount(); got != i+1 {
			t.Errorf("expected %d archetypes, got %d", i+1, got)
		}
	}

	w.DespawnAll()
	if w.ArchetypeCount() != 0 {
		t.Errorf("empty archetypes should not be counted, got %d", w.ArchetypeCount())
	}
}

func TestSwapRemoveKeepsIndexConsistent(t *testing.T) {
	w := NewWorld()
	entities := w.SpawnBatch(CompCounter, 100)

	// Give each entity a distinguishable value
	for i, e := range entities {
		w.Counter(e).Value = uint64(i)
	}

	// Remove from the middle; the swapped-in entity must stay addressable
	w.Despawn(entities[50])

	for i, e := range entities {
		if i == 50 {
			continue
		}
		c := w.Counter(e)
		if c == nil {
			t.Fatalf("entity %d lost after swap-remove", i)
		}
		if c.Value != uint64(i) {
			t.Errorf("entity %d has value %d after swap-remove", i, c.Value)
		}
	}
}
