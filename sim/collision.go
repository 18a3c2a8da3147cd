package sim

import (
	"log"

	"westiny/world"
)

// CollisionSystem tests every pair of bounding circles and dispatches on
// the archetypes involved.
type CollisionSystem struct{}

func (CollisionSystem) Name() string { return "collision" }

func (CollisionSystem) Access() Access {
	return Access{
		Reads:  KindArchetype | KindBounds | KindProjectile | KindDead,
		Writes: KindTransform | KindRemovals | KindDamage,
	}
}

type collider struct {
	entity    world.Entity
	archetype world.Archetype
	radius    float64
}

type pairKey struct {
	a, b world.ID
}

func newPairKey(a, b world.Entity) pairKey {
	if a.ID() > b.ID() {
		a, b = b, a
	}
	return pairKey{a: a.ID(), b: b.ID()}
}

func (s CollisionSystem) Run(ctx *Context) {
	store := ctx.Store
	var colliders []collider
	store.Bounds.Each(func(e world.Entity, b *world.BoundingCircle) {
		if store.Deads.Has(e) || !store.Active(e) || !store.Transforms.Has(e) {
			return
		}
		a, ok := store.Archetypes.Get(e)
		if !ok {
			return
		}
		colliders = append(colliders, collider{entity: e, archetype: *a, radius: b.Radius})
	})

	handled := make(map[pairKey]struct{})
	consumed := make(map[world.Entity]struct{})
	for i := range colliders {
		for j := i + 1; j < len(colliders); j++ {
			a, b := colliders[i], colliders[j]
			if a.archetype == world.ArchetypeObstacle && b.archetype == world.ArchetypeObstacle {
				continue
			}
			if _, ok := consumed[a.entity]; ok {
				break
			}
			if _, ok := consumed[b.entity]; ok {
				continue
			}
			key := newPairKey(a.entity, b.entity)
			if _, ok := handled[key]; ok {
				continue
			}
			if !s.overlap(store, a, b) {
				continue
			}
			handled[key] = struct{}{}
			s.dispatch(ctx, a, b, consumed)
		}
	}
}

func (CollisionSystem) overlap(store *world.Store, a, b collider) bool {
	ta, _ := store.Transforms.Get(a.entity)
	tb, _ := store.Transforms.Get(b.entity)
	return ta.Position.Sub(tb.Position).Len() < a.radius+b.radius
}

func (s CollisionSystem) dispatch(ctx *Context, a, b collider, consumed map[world.Entity]struct{}) {
	if a.archetype > b.archetype {
		a, b = b, a
	}
	store := ctx.Store
	switch a.archetype {
	case world.ArchetypePlayer:
		switch b.archetype {
		case world.ArchetypePlayer:
		case world.ArchetypeProjectile:
			p, ok := store.Projectiles.Get(b.entity)
			if !ok || p.Owner == a.entity {
				return
			}
			ctx.Damage = append(ctx.Damage, Damage{Target: a.entity, Source: p.Owner, Amount: p.Damage})
			store.Delete(b.entity)
			consumed[b.entity] = struct{}{}
		case world.ArchetypeObstacle:
			s.pushOut(store, a, b)
		default:
			log.Printf("no collision handler for %v and %v", a.archetype, b.archetype)
		}
	case world.ArchetypeProjectile:
		switch b.archetype {
		case world.ArchetypeProjectile:
		case world.ArchetypeObstacle:
			store.Delete(a.entity)
			consumed[a.entity] = struct{}{}
		default:
			log.Printf("no collision handler for %v and %v", a.archetype, b.archetype)
		}
	case world.ArchetypeObstacle:
	default:
		log.Printf("no collision handler for %v and %v", a.archetype, b.archetype)
	}
}

// pushOut moves the player out of the obstacle along the line between
// their centres.
func (CollisionSystem) pushOut(store *world.Store, player, obstacle collider) {
	tp, _ := store.Transforms.Get(player.entity)
	to, _ := store.Transforms.Get(obstacle.entity)
	d := tp.Position.Sub(to.Position)
	dist := d.Len()
	if dist == 0 {
		d, dist = up, 1
	}
	depth := player.radius + obstacle.radius - dist
	tp.Position = tp.Position.Add(d.Scale(depth / dist))
	store.Touch(player.entity)
}
