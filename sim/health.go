package sim

import (
	"log"

	"westiny/metrics"
	"westiny/world"
)

// HealthSystem applies the damage queued by collision and kills players
// whose health runs out.
type HealthSystem struct {
	cfg     Config
	metrics *metrics.Metrics
}

func NewHealthSystem(cfg Config, m *metrics.Metrics) *HealthSystem {
	return &HealthSystem{cfg: cfg, metrics: m}
}

func (*HealthSystem) Name() string { return "health" }

func (*HealthSystem) Access() Access {
	return Access{
		Reads:  KindRemovals,
		Writes: KindHealth | KindDead | KindVelocity | KindInput | KindDamage,
	}
}

func (s *HealthSystem) Run(ctx *Context) {
	store := ctx.Store
	for _, d := range ctx.Damage {
		if store.Deads.Has(d.Target) || !store.Active(d.Target) {
			continue
		}
		h, ok := store.Healths.Get(d.Target)
		if !ok {
			continue
		}
		h.Current -= d.Amount
		store.Touch(d.Target)
		if h.Current <= 0 {
			s.Kill(store, d.Target)
		}
	}
	ctx.Damage = ctx.Damage[:0]
}

// Kill moves e into the dead state and reports whether it was alive
// before. Killing a dead entity changes nothing.
func (s *HealthSystem) Kill(store *world.Store, e world.Entity) bool {
	if store.Deads.Has(e) {
		return false
	}
	if h, ok := store.Healths.Get(e); ok && h.Current > 0 {
		h.Current = 0
	}
	store.Deads.Insert(e, world.Dead{RespawnIn: s.cfg.RespawnTime})
	if v, ok := store.Velocities.Get(e); ok {
		v.Vector = world.Vector{}
	}
	if in, ok := store.Inputs.Get(e); ok {
		in.ResetIntentions()
	}
	store.Touch(e)
	s.metrics.Deaths.Inc()
	log.Printf("entity %v died", e)
	return true
}

// RespawnSystem counts down dead players and brings them back.
type RespawnSystem struct {
	spawner *Spawner
}

func NewRespawnSystem(spawner *Spawner) *RespawnSystem {
	return &RespawnSystem{spawner: spawner}
}

func (*RespawnSystem) Name() string { return "respawn" }

func (*RespawnSystem) Access() Access {
	return Access{
		Reads:  KindPlayer,
		Writes: KindDead | KindTransform | KindVelocity | KindInput | KindWeapon | KindHealth,
	}
}

func (s *RespawnSystem) Run(ctx *Context) {
	var ready []world.Entity
	ctx.Store.Deads.Each(func(e world.Entity, d *world.Dead) {
		d.RespawnIn -= ctx.Dt
		if d.RespawnIn <= timerEpsilon {
			ready = append(ready, e)
		}
	})
	for _, e := range ready {
		s.spawner.Respawn(e)
		log.Printf("entity %v respawned", e)
	}
}

// LifespanSystem expires entities whose tick budget ran out.
type LifespanSystem struct{}

func (LifespanSystem) Name() string { return "lifespan" }

func (LifespanSystem) Access() Access {
	return Access{Writes: KindLifespan | KindRemovals}
}

func (LifespanSystem) Run(ctx *Context) {
	store := ctx.Store
	store.Lifespans.Each(func(e world.Entity, l *world.Lifespan) {
		if !store.Active(e) || (l.Since != 0 && l.Since == ctx.Tick) {
			return
		}
		l.Ticks--
		if l.Ticks <= 0 {
			store.Delete(e)
		}
	})
}
