package world

import (
	"errors"
	"log"
	"sort"
	"sync"
)

// ErrCapacity is returned when the store has no free slot left.
var ErrCapacity = errors.New("entity store capacity exceeded")

// Store is the arena of entities and their component tables. Systems own
// tables per tick through the scheduler; only allocation and the change
// journal are guarded by the mutex.
type Store struct {
	mu       sync.Mutex
	gens     []uint32
	alive    []bool
	free     []uint32
	live     int
	capacity int

	created  map[Entity]struct{}
	touched  map[Entity]struct{}
	removing map[Entity]struct{}

	Archetypes  Table[Archetype]
	Transforms  Table[Transform]
	Velocities  Table[Velocity]
	Inputs      Table[Input]
	Weapons     Table[Weapon]
	Bounds      Table[BoundingCircle]
	Healths     Table[Health]
	Players     Table[Player]
	Projectiles Table[Projectile]
	Lifespans   Table[Lifespan]
	Deads       Table[Dead]
	Quarantined Table[string]
}

func NewStore(capacity int) *Store {
	return &Store{
		capacity: capacity,
		created:  make(map[Entity]struct{}),
		touched:  make(map[Entity]struct{}),
		removing: make(map[Entity]struct{}),
	}
}

// Create allocates an entity. Callers attach components afterwards.
func (s *Store) Create() (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacity > 0 && s.live >= s.capacity {
		return Entity{}, ErrCapacity
	}

	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = uint32(len(s.gens))
		s.gens = append(s.gens, 0)
		s.alive = append(s.alive, false)
	}
	s.gens[index]++
	s.alive[index] = true
	s.live++

	e := Entity{Index: index, Gen: s.gens[index]}
	s.created[e] = struct{}{}
	return e, nil
}

func (s *Store) Alive(e Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliveLocked(e)
}

func (s *Store) aliveLocked(e Entity) bool {
	return e.Index < uint32(len(s.gens)) && s.alive[e.Index] && s.gens[e.Index] == e.Gen
}

// Delete marks e for removal at the end of the tick. Deleting an entity
// twice, or one that is already gone, does nothing.
func (s *Store) Delete(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aliveLocked(e) {
		return
	}
	s.removing[e] = struct{}{}
}

func (s *Store) Removing(e Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.removing[e]
	return ok
}

// Active reports whether systems may act on e: alive, not being removed
// and not quarantined.
func (s *Store) Active(e Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aliveLocked(e) {
		return false
	}
	if _, ok := s.removing[e]; ok {
		return false
	}
	return !s.Quarantined.Has(e)
}

// Quarantine excludes e from every further system run. It is used when an
// invariant is found broken; the entity stays visible but inert.
func (s *Store) Quarantine(e Entity, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aliveLocked(e) || s.Quarantined.Has(e) {
		return
	}
	log.Printf("quarantining entity %v: %s", e, reason)
	s.Quarantined.Insert(e, reason)
}

// Touch records that a component of e changed this tick.
func (s *Store) Touch(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aliveLocked(e) {
		s.touched[e] = struct{}{}
	}
}

// Changes is the per-tick journal. Removed takes priority: an entity that
// is both removed and created or updated only shows up in Removed.
type Changes struct {
	Created []Entity
	Updated []Entity
	Removed []Entity
}

func sortedKeys(m map[Entity]struct{}, skip map[Entity]struct{}) []Entity {
	out := make([]Entity, 0, len(m))
	for e := range m {
		if _, ok := skip[e]; ok {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (s *Store) Changes() Changes {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := make(map[Entity]struct{}, len(s.touched))
	for e := range s.touched {
		if _, ok := s.created[e]; !ok {
			updated[e] = struct{}{}
		}
	}
	return Changes{
		Created: sortedKeys(s.created, s.removing),
		Updated: sortedKeys(updated, s.removing),
		Removed: sortedKeys(s.removing, nil),
	}
}

// Maintain commits pending removals, frees their slots and resets the
// journal. It returns the removed entities.
func (s *Store) Maintain() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := sortedKeys(s.removing, nil)
	for _, e := range removed {
		s.Archetypes.Remove(e)
		s.Transforms.Remove(e)
		s.Velocities.Remove(e)
		s.Inputs.Remove(e)
		s.Weapons.Remove(e)
		s.Bounds.Remove(e)
		s.Healths.Remove(e)
		s.Players.Remove(e)
		s.Projectiles.Remove(e)
		s.Lifespans.Remove(e)
		s.Deads.Remove(e)
		s.Quarantined.Remove(e)
		s.alive[e.Index] = false
		s.free = append(s.free, e.Index)
		s.live--
	}
	s.created = make(map[Entity]struct{})
	s.touched = make(map[Entity]struct{})
	s.removing = make(map[Entity]struct{})
	return removed
}

// Len is the number of live entities, including ones pending removal.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

func (s *Store) Capacity() int {
	return s.capacity
}

// Room reports whether n more entities fit.
func (s *Store) Room(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity <= 0 || s.live+n <= s.capacity
}

// Entities lists live entities that are not pending removal, in slot order.
func (s *Store) Entities() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entity, 0, s.live)
	for i, alive := range s.alive {
		if !alive {
			continue
		}
		e := Entity{Index: uint32(i), Gen: s.gens[i]}
		if _, ok := s.removing[e]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}
