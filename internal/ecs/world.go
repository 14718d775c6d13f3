// Package ecs implements the archetype-based entity-component store the
// benchmark workloads exercise. Entities are rows in columnar archetype
// tables; adding or removing a component migrates the row between tables.
package ecs

import "fmt"

// Entity identifies one row in the store. The generation guards against
// stale handles after despawn.
type Entity struct {
	ID  uint32
	Gen uint32
}

type entityMeta struct {
	gen   uint32
	alive bool
	arch  *archetype
	row   int
}

// archetype holds every entity sharing one exact component mask, stored
// column-wise. Columns for components outside the mask stay nil.
type archetype struct {
	mask          Mask
	entities      []Entity
	counters      []Counter
	positions     []Position
	velocities    []Velocity
	accelerations []Acceleration
	payloads      []DataPayload
}

// Table is the view over a single archetype returned by Query. Column
// slices alias the archetype's storage, so writes through them are writes
// to the store. Only columns for components in Mask are non-nil.
type Table struct {
	Mask          Mask
	Entities      []Entity
	Counters      []Counter
	Positions     []Position
	Velocities    []Velocity
	Accelerations []Acceleration
	Payloads      []DataPayload
}

// World is the entity store. It is single-owner: no internal locking,
// callers must not use it from multiple goroutines.
type World struct {
	archetypes map[Mask]*archetype
	order      []*archetype
	meta       []entityMeta
	free       []uint32
	size       int
}

func NewWorld() *World {
	return &World{
		archetypes: make(map[Mask]*archetype),
	}
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.size
}

// ArchetypeCount returns the number of distinct non-empty archetypes.
func (w *World) ArchetypeCount() int {
	count := 0
	for _, a := range w.order {
		if len(a.entities) > 0 {
			count++
		}
	}
	return count
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	if int(e.ID) >= len(w.meta) {
		return false
	}
	m := &w.meta[e.ID]
	return m.alive && m.gen == e.Gen
}

// MaskOf returns the component mask of a live entity.
func (w *World) MaskOf(e Entity) (Mask, bool) {
	if !w.Alive(e) {
		return 0, false
	}
	return w.meta[e.ID].arch.mask, true
}

// Spawn creates one entity with zero-valued components for mask.
func (w *World) Spawn(mask Mask) Entity {
	arch := w.archetype(mask)
	e := w.allocEntity()
	row := arch.appendRow(e)
	m := &w.meta[e.ID]
	m.arch = arch
	m.row = row
	w.size++
	return e
}

// SpawnBatch creates count entities sharing one archetype. The archetype's
// columns are grown once up front, matching batch spawn in the workloads'
// hot path.
func (w *World) SpawnBatch(mask Mask, count int) []Entity {
	if count <= 0 {
		return nil
	}
	arch := w.archetype(mask)
	arch.grow(count)
	entities := make([]Entity, count)
	for i := range entities {
		e := w.allocEntity()
		row := arch.appendRow(e)
		m := &w.meta[e.ID]
		m.arch = arch
		m.row = row
		entities[i] = e
	}
	w.size += count
	return entities
}

// Despawn removes a live entity. Returns false for dead or stale handles.
func (w *World) Despawn(e Entity) bool {
	if !w.Alive(e) {
		return false
	}
	m := &w.meta[e.ID]
	w.removeRow(m.arch, m.row)
	m.alive = false
	m.gen++
	m.arch = nil
	w.free = append(w.free, e.ID)
	w.size--
	return true
}

// DespawnAll removes every live entity. Archetype tables are kept (empty)
// so repopulating the same shapes does not re-fragment the store.
func (w *World) DespawnAll() {
	for _, arch := range w.order {
		for _, e := range arch.entities {
			m := &w.meta[e.ID]
			m.alive = false
			m.gen++
			m.arch = nil
			w.free = append(w.free, e.ID)
		}
		arch.truncate()
	}
	w.size = 0
}

// AddComponent moves the entity into the archetype that additionally
// carries bits. Existing component values are preserved; new data
// components start zero-valued. No-op if the entity already has bits.
func (w *World) AddComponent(e Entity, bits Mask) error {
	if !w.Alive(e) {
		return fmt.Errorf("add component: entity %d is not alive", e.ID)
	}
	m := &w.meta[e.ID]
	old := m.arch.mask
	next := old | bits
	if next == old {
		return nil
	}
	w.migrate(e, next)
	return nil
}

// RemoveComponent moves the entity into the archetype without bits.
// No-op if the entity does not have bits.
func (w *World) RemoveComponent(e Entity, bits Mask) error {
	if !w.Alive(e) {
		return fmt.Errorf("remove component: entity %d is not alive", e.ID)
	}
	m := &w.meta[e.ID]
	old := m.arch.mask
	next := old &^ bits
	if next == old {
		return nil
	}
	w.migrate(e, next)
	return nil
}

// Query returns a table view for every archetype whose mask contains all
// bits of include. Tables alias the underlying storage; they are invalidated
// by the next structural change (spawn, despawn, add/remove component).
func (w *World) Query(include Mask) []Table {
	var tables []Table
	for _, arch := range w.order {
		if len(arch.entities) == 0 || !arch.mask.Contains(include) {
			continue
		}
		tables = append(tables, Table{
			Mask:          arch.mask,
			Entities:      arch.entities,
			Counters:      arch.counters,
			Positions:     arch.positions,
			Velocities:    arch.velocities,
			Accelerations: arch.accelerations,
			Payloads:      arch.payloads,
		})
	}
	return tables
}

// Counter returns a pointer to the entity's counter component, or nil.
func (w *World) Counter(e Entity) *Counter {
	arch, row, ok := w.locate(e, CompCounter)
	if !ok {
		return nil
	}
	return &arch.counters[row]
}

// Position returns a pointer to the entity's position component, or nil.
func (w *World) Position(e Entity) *Position {
	arch, row, ok := w.locate(e, CompPosition)
	if !ok {
		return nil
	}
	return &arch.positions[row]
}

// Velocity returns a pointer to the entity's velocity component, or nil.
func (w *World) Velocity(e Entity) *Velocity {
	arch, row, ok := w.locate(e, CompVelocity)
	if !ok {
		return nil
	}
	return &arch.velocities[row]
}

func (w *World) locate(e Entity, need Mask) (*archetype, int, bool) {
	if !w.Alive(e) {
		return nil, 0, false
	}
	m := &w.meta[e.ID]
	if !m.arch.mask.Contains(need) {
		return nil, 0, false
	}
	return m.arch, m.row, true
}

func (w *World) allocEntity() Entity {
	if n := len(w.free); n > 0 {
		id := w.free[n-1]
		w.free = w.free[:n-1]
		m := &w.meta[id]
		m.alive = true
		return Entity{ID: id, Gen: m.gen}
	}
	id := uint32(len(w.meta))
	w.meta = append(w.meta, entityMeta{alive: true})
	return Entity{ID: id}
}

func (w *World) archetype(mask Mask) *archetype {
	if arch, ok := w.archetypes[mask]; ok {
		return arch
	}
	arch := &archetype{mask: mask}
	w.archetypes[mask] = arch
	w.order = append(w.order, arch)
	return arch
}

// migrate moves a live entity into the archetype for next, carrying over
// the data components both masks share.
func (w *World) migrate(e Entity, next Mask) {
	m := &w.meta[e.ID]
	src := m.arch
	row := m.row

	dst := w.archetype(next)
	dstRow := dst.appendRow(e)

	shared := src.mask & next & dataMask
	if shared&CompCounter != 0 {
		dst.counters[dstRow] = src.counters[row]
	}
	if shared&CompPosition != 0 {
		dst.positions[dstRow] = src.positions[row]
	}
	if shared&CompVelocity != 0 {
		dst.velocities[dstRow] = src.velocities[row]
	}
	if shared&CompAcceleration != 0 {
		dst.accelerations[dstRow] = src.accelerations[row]
	}
	if shared&CompPayload != 0 {
		dst.payloads[dstRow] = src.payloads[row]
	}

	w.removeRow(src, row)
	m.arch = dst
	m.row = dstRow
}

// removeRow swap-removes a row and fixes up the moved entity's index.
func (w *World) removeRow(arch *archetype, row int) {
	last := len(arch.entities) - 1
	if row != last {
		moved := arch.entities[last]
		arch.swap(row, last)
		w.meta[moved.ID].row = row
	}
	arch.shrink()
}

func (a *archetype) appendRow(e Entity) int {
	a.entities = append(a.entities, e)
	if a.mask&CompCounter != 0 {
		a.counters = append(a.counters, Counter{})
	}
	if a.mask&CompPosition != 0 {
		a.positions = append(a.positions, Position{})
	}
	if a.mask&CompVelocity != 0 {
		a.velocities = append(a.velocities, Velocity{})
	}
	if a.mask&CompAcceleration != 0 {
		a.accelerations = append(a.accelerations, Acceleration{})
	}
	if a.mask&CompPayload != 0 {
		a.payloads = append(a.payloads, DataPayload{})
	}
	return len(a.entities) - 1
}

// grow reserves capacity for count additional rows.
func (a *archetype) grow(count int) {
	need := len(a.entities) + count
	if cap(a.entities) >= need {
		return
	}
	a.entities = append(make([]Entity, 0, need), a.entities...)
	if a.mask&CompCounter != 0 {
		a.counters = append(make([]Counter, 0, need), a.counters...)
	}
	if a.mask&CompPosition != 0 {
		a.positions = append(make([]Position, 0, need), a.positions...)
	}
	if a.mask&CompVelocity != 0 {
		a.velocities = append(make([]Velocity, 0, need), a.velocities...)
	}
	if a.mask&CompAcceleration != 0 {
		a.accelerations = append(make([]Acceleration, 0, need), a.accelerations...)
	}
	if a.mask&CompPayload != 0 {
		a.payloads = append(make([]DataPayload, 0, need), a.payloads...)
	}
}

func (a *archetype) swap(i, j int) {
	a.entities[i], a.entities[j] = a.entities[j], a.entities[i]
	if a.mask&CompCounter != 0 {
		a.counters[i], a.counters[j] = a.counters[j], a.counters[i]
	}
	if a.mask&CompPosition != 0 {
		a.positions[i], a.positions[j] = a.positions[j], a.positions[i]
	}
	if a.mask&CompVelocity != 0 {
		a.velocities[i], a.velocities[j] = a.velocities[j], a.velocities[i]
	}
	if a.mask&CompAcceleration != 0 {
		a.accelerations[i], a.accelerations[j] = a.accelerations[j], a.accelerations[i]
	}
	if a.mask&CompPayload != 0 {
		a.payloads[i], a.payloads[j] = a.payloads[j], a.payloads[i]
	}
}

func (a *archetype) shrink() {
	last := len(a.entities) - 1
	a.entities = a.entities[:last]
	if a.mask&CompCounter != 0 {
		a.counters = a.counters[:last]
	}
	if a.mask&CompPosition != 0 {
		a.positions = a.positions[:last]
	}
	if a.mask&CompVelocity != 0 {
		a.velocities = a.velocities[:last]
	}
	if a.mask&CompAcceleration != 0 {
		a.accelerations = a.accelerations[:last]
	}
	if a.mask&CompPayload != 0 {
		a.payloads = a.payloads[:last]
	}
}

func (a *archetype) truncate() {
	a.entities = a.entities[:0]
	if a.mask&CompCounter != 0 {
		a.counters = a.counters[:0]
	}
	if a.mask&CompPosition != 0 {
		a.positions = a.positions[:0]
	}
	if a.mask&CompVelocity != 0 {
		a.velocities = a.velocities[:0]
	}
	if a.mask&CompAcceleration != 0 {
		a.accelerations = a.accelerations[:0]
	}
	if a.mask&CompPayload != 0 {
		a.payloads = a.payloads[:0]
	}
}
