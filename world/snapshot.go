package world

// EntityState is the component snapshot sent to clients and read by the
// presentation layer.
type EntityState struct {
	ID        ID
	Archetype Archetype
	Name      string
	Position  Vector
	Rotation  float64
	Velocity  Vector
	Radius    float64
	Health    float64
	MaxHealth float64
	Ammo      int
	Magazine  int
	Reloading bool
	Dead      bool
	Owner     ID
}

// Snapshot reads e's components. Entities being removed have no snapshot.
func (s *Store) Snapshot(e Entity) (EntityState, bool) {
	if !s.Alive(e) || s.Removing(e) {
		return EntityState{}, false
	}
	state := EntityState{ID: e.ID()}
	if a, ok := s.Archetypes.Get(e); ok {
		state.Archetype = *a
	}
	if p, ok := s.Players.Get(e); ok {
		state.Name = p.Name
	}
	if t, ok := s.Transforms.Get(e); ok {
		state.Position = t.Position
		state.Rotation = t.Rotation
	}
	if v, ok := s.Velocities.Get(e); ok {
		state.Velocity = v.Vector
	}
	if b, ok := s.Bounds.Get(e); ok {
		state.Radius = b.Radius
	}
	if h, ok := s.Healths.Get(e); ok {
		state.Health = h.Current
		state.MaxHealth = h.Max
	}
	if w, ok := s.Weapons.Get(e); ok {
		state.Ammo = w.Ammo
		state.Magazine = w.Details.MagazineSize
		state.Reloading = w.State == WeaponReloading
	}
	if p, ok := s.Projectiles.Get(e); ok {
		state.Owner = p.Owner.ID()
	}
	state.Dead = s.Deads.Has(e)
	return state, true
}

// Each is the read-only view for presentation: every live entity in slot
// order.
func (s *Store) Each(fn func(EntityState)) {
	for _, e := range s.Entities() {
		if state, ok := s.Snapshot(e); ok {
			fn(state)
		}
	}
}

// SnapshotAll collects Each into a slice.
func (s *Store) SnapshotAll() []EntityState {
	var out []EntityState
	s.Each(func(state EntityState) {
		out = append(out, state)
	})
	return out
}
