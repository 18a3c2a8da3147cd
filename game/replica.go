package game

import (
	"sort"

	"westiny/sim"
	"westiny/world"
)

// Replica is the client's mirror of the authoritative world. Only the
// local player is predicted; everything else is as the server last said.
type Replica struct {
	entities map[world.ID]world.EntityState
	self     world.ID
	tick     uint64

	// Local intentions used for prediction.
	Moves  world.MoveSet
	Aim    world.Vector
	HasAim bool
}

func NewReplica() *Replica {
	return &Replica{entities: make(map[world.ID]world.EntityState)}
}

func (r *Replica) Apply(msg world.Message) {
	switch m := msg.(type) {
	case world.Handshake:
		r.ApplyHandshake(m)
	case world.StateUpdate:
		r.ApplyState(m)
	case world.Deletion:
		r.ApplyDelete(m)
	}
}

// ApplyHandshake replaces the whole mirror with the server's snapshot.
func (r *Replica) ApplyHandshake(h world.Handshake) {
	r.entities = make(map[world.ID]world.EntityState, len(h.Snapshot))
	for _, s := range h.Snapshot {
		r.entities[s.ID] = s
	}
	r.self = h.Entity
	r.tick = h.Tick
}

func (r *Replica) ApplyState(u world.StateUpdate) {
	for _, s := range u.Entities {
		r.entities[s.ID] = s
	}
	if u.Tick > r.tick {
		r.tick = u.Tick
	}
}

func (r *Replica) ApplyDelete(d world.Deletion) {
	for _, id := range d.IDs {
		delete(r.entities, id)
	}
	if d.Tick > r.tick {
		r.tick = d.Tick
	}
}

// Predict advances the local player by dt with the same rules the server
// uses, until the next authoritative state overwrites it.
func (r *Replica) Predict(dt, speed float64) {
	s, ok := r.entities[r.self]
	if !ok || s.Dead {
		return
	}
	if r.HasAim {
		s.Rotation = sim.FacingAngle(s.Position, r.Aim, s.Rotation)
	}
	s.Velocity = sim.Steer(r.Moves, s.Rotation, speed)
	s.Position = s.Position.Add(s.Velocity.Scale(dt))
	r.entities[r.self] = s
}

func (r *Replica) Self() (world.EntityState, bool) {
	s, ok := r.entities[r.self]
	return s, ok
}

func (r *Replica) Tick() uint64 {
	return r.tick
}

func (r *Replica) Len() int {
	return len(r.entities)
}

// Each visits entities in id order so drawing is stable between frames.
func (r *Replica) Each(fn func(world.EntityState)) {
	ids := make([]world.ID, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(r.entities[id])
	}
}
