package sim

import (
	"math"

	"westiny/world"
)

// Spawner materializes entities with their full component set.
type Spawner struct {
	cfg    Config
	store  *world.Store
	spawns []world.Vector
}

func NewSpawner(cfg Config, store *world.Store, spawns []world.Vector) *Spawner {
	return &Spawner{cfg: cfg, store: store, spawns: spawns}
}

// SpawnPlayer creates a player at the spawn point farthest from everyone
// else.
func (s *Spawner) SpawnPlayer(name string) (world.Entity, error) {
	e, err := s.store.Create()
	if err != nil {
		return world.Entity{}, err
	}
	s.store.Archetypes.Insert(e, world.ArchetypePlayer)
	s.store.Players.Insert(e, world.Player{Name: name})
	s.store.Transforms.Insert(e, world.Transform{Position: s.SpawnPoint(e)})
	s.store.Velocities.Insert(e, world.Velocity{})
	s.store.Inputs.Insert(e, world.Input{})
	s.store.Weapons.Insert(e, world.NewWeapon(s.cfg.Weapon))
	s.store.Bounds.Insert(e, world.BoundingCircle{Radius: s.cfg.PlayerRadius})
	s.store.Healths.Insert(e, world.Health{Current: s.cfg.MaxHealth, Max: s.cfg.MaxHealth})
	return e, nil
}

// Respawn resets every mutable component of a dead player in place. The
// entity handle and the last applied command sequence survive.
func (s *Spawner) Respawn(e world.Entity) {
	if t, ok := s.store.Transforms.Get(e); ok {
		*t = world.Transform{Position: s.SpawnPoint(e)}
	}
	if v, ok := s.store.Velocities.Get(e); ok {
		*v = world.Velocity{}
	}
	if in, ok := s.store.Inputs.Get(e); ok {
		in.ResetIntentions()
	}
	if w, ok := s.store.Weapons.Get(e); ok {
		w.Reset()
	}
	if h, ok := s.store.Healths.Get(e); ok {
		h.Current = h.Max
	}
	s.store.Deads.Remove(e)
	s.store.Touch(e)
}

// SpawnProjectile fires a projectile from owner along heading.
func (s *Spawner) SpawnProjectile(owner world.Entity, from world.Vector, angle float64, details world.WeaponDetails) (world.Entity, error) {
	e, err := s.store.Create()
	if err != nil {
		return world.Entity{}, err
	}
	dir := Heading(angle)
	s.store.Archetypes.Insert(e, world.ArchetypeProjectile)
	s.store.Transforms.Insert(e, world.Transform{Position: from, Rotation: angle})
	s.store.Velocities.Insert(e, world.Velocity{Vector: dir.Scale(details.BulletSpeed)})
	s.store.Bounds.Insert(e, world.BoundingCircle{Radius: s.cfg.ProjectileRadius})
	s.store.Projectiles.Insert(e, world.Projectile{Owner: owner, Damage: details.Damage})
	s.store.Lifespans.Insert(e, world.Lifespan{Ticks: ProjectileLifespan(details, s.cfg.Dt())})
	return e, nil
}

// SpawnObstacle places a static obstacle covering one map tile.
func (s *Spawner) SpawnObstacle(at world.Vector) (world.Entity, error) {
	e, err := s.store.Create()
	if err != nil {
		return world.Entity{}, err
	}
	s.store.Archetypes.Insert(e, world.ArchetypeObstacle)
	s.store.Transforms.Insert(e, world.Transform{Position: at})
	s.store.Bounds.Insert(e, world.BoundingCircle{Radius: world.TileSize / 2})
	return e, nil
}

// SpawnPoint picks the spawn point whose nearest living player, other
// than self, is farthest away. Ties keep the first point.
func (s *Spawner) SpawnPoint(self world.Entity) world.Vector {
	if len(s.spawns) == 0 {
		return world.Vector{}
	}
	var others []world.Vector
	s.store.Players.Each(func(e world.Entity, _ *world.Player) {
		if e == self || s.store.Deads.Has(e) || !s.store.Alive(e) {
			return
		}
		if t, ok := s.store.Transforms.Get(e); ok {
			others = append(others, t.Position)
		}
	})

	best, bestDist := s.spawns[0], -1.0
	for _, p := range s.spawns {
		nearest := math.Inf(1)
		for _, o := range others {
			nearest = math.Min(nearest, p.Sub(o).Len())
		}
		if nearest > bestDist {
			best, bestDist = p, nearest
		}
	}
	return best
}

// ProjectileLifespan converts the weapon range into whole ticks.
func ProjectileLifespan(details world.WeaponDetails, dt float64) int {
	ticks := int(math.Ceil(details.Distance/details.BulletSpeed/dt - timerEpsilon))
	if ticks < 1 {
		return 1
	}
	return ticks
}

const timerEpsilon = 1e-9
