package sim

import (
	"errors"
	"log"
	"math"
	"math/rand"

	"westiny/world"
)

// ShooterSystem advances weapon timers and turns fire intentions into
// projectiles.
type ShooterSystem struct {
	cfg     Config
	spawner *Spawner
	rng     *rand.Rand
}

func NewShooterSystem(cfg Config, spawner *Spawner, rng *rand.Rand) *ShooterSystem {
	return &ShooterSystem{cfg: cfg, spawner: spawner, rng: rng}
}

func (*ShooterSystem) Name() string { return "shooter" }

func (*ShooterSystem) Access() Access {
	// Spawning projectiles inserts into most tables.
	return Access{
		Reads:  KindRemovals,
		Writes: KindComponents | KindSpawns,
	}
}

func (s *ShooterSystem) Run(ctx *Context) {
	store := ctx.Store
	store.Weapons.Each(func(e world.Entity, w *world.Weapon) {
		if store.Deads.Has(e) || !store.Active(e) {
			return
		}
		changed := w.Advance(ctx.Dt)
		in, ok := store.Inputs.Get(e)
		if !ok {
			if changed {
				store.Touch(e)
			}
			return
		}
		if in.Reload {
			in.Reload = false
			if w.StartReload() {
				changed = true
			}
		}
		if in.Fire && s.fire(store, ctx.Tick, e, w) {
			changed = true
		}
		if changed {
			store.Touch(e)
		}
	})
}

// fire spends one round and releases the weapon's pellets. When the store
// cannot hold every pellet, the round is kept.
func (s *ShooterSystem) fire(store *world.Store, tick uint64, e world.Entity, w *world.Weapon) bool {
	if !w.CanFire() {
		return false
	}
	pellets := w.Details.Shot.Pellets
	if pellets < 1 {
		pellets = 1
	}
	if !store.Room(pellets) {
		return false
	}
	t, ok := store.Transforms.Get(e)
	if !ok {
		return false
	}
	muzzle := t.Position
	if b, ok := store.Bounds.Get(e); ok {
		muzzle = muzzle.Add(Heading(t.Rotation).Scale(b.Radius))
	}

	w.Fire()
	for _, offset := range s.spread(w.Details.Spread, pellets) {
		angle := t.Rotation + offset*math.Pi/180
		p, err := s.spawner.SpawnProjectile(e, muzzle, angle, w.Details)
		if err != nil {
			if !errors.Is(err, world.ErrCapacity) {
				log.Printf("spawning projectile for %v: %v", e, err)
			}
			break
		}
		if l, ok := store.Lifespans.Get(p); ok {
			l.Since = tick
		}
	}
	return true
}

// spread returns the angular offsets in degrees. A single pellet deviates
// randomly within the spread; several pellets fan out evenly across it.
func (s *ShooterSystem) spread(spread float64, pellets int) []float64 {
	if pellets == 1 {
		if spread == 0 {
			return []float64{0}
		}
		return []float64{(s.rng.Float64() - 0.5) * spread}
	}
	offsets := make([]float64, pellets)
	step := spread / float64(pellets-1)
	for i := range offsets {
		offsets[i] = -spread/2 + float64(i)*step
	}
	return offsets
}
