package sim

import (
	"math"

	"westiny/world"
)

// up is the facing reference in the y-up frame facing is measured in.
var up = world.Vector{X: 0, Y: -1}

// FacingAngle is the rotation of an entity at pos looking at aim, in
// [0, 2π). World coordinates grow downwards, so the offset is flipped into
// a y-up frame first. A zero offset keeps prev.
func FacingAngle(pos, aim world.Vector, prev float64) float64 {
	d := world.Vector{X: aim.X - pos.X, Y: pos.Y - aim.Y}
	if d.IsZero() {
		return prev
	}
	theta := up.Angle(d)
	if d.X < 0 {
		theta = 2*math.Pi - theta
	}
	return theta
}

// Heading is the world-space unit vector an entity with the given
// rotation faces.
func Heading(theta float64) world.Vector {
	return toWorld(up.Rotate(theta))
}

func toWorld(v world.Vector) world.Vector {
	return world.Vector{X: v.X, Y: -v.Y}
}

// localMove is the y-up, facing-relative vector of one direction.
func localMove(d world.MoveDirection, speed float64) world.Vector {
	switch d {
	case world.MoveForward:
		return world.Vector{X: 0, Y: -speed}
	case world.MoveBackward:
		return world.Vector{X: 0, Y: speed / 2}
	case world.StrafeLeft:
		return world.Vector{X: speed / 2, Y: 0}
	case world.StrafeRight:
		return world.Vector{X: -speed / 2, Y: 0}
	}
	return world.Vector{}
}

// LocalVelocity averages the vectors of the held directions component-wise.
func LocalVelocity(moves world.MoveSet, speed float64) world.Vector {
	var sum world.Vector
	n := 0
	for d := world.MoveForward; d < world.NumMoveDirections; d++ {
		if !moves.Has(d) {
			continue
		}
		sum = sum.Add(localMove(d, speed))
		n++
	}
	if n == 0 {
		return world.Vector{}
	}
	return sum.Scale(1 / float64(n))
}

// Steer turns held directions into a world-space velocity for an entity
// facing theta. The client runs it too, to predict its own movement.
func Steer(moves world.MoveSet, theta, speed float64) world.Vector {
	local := LocalVelocity(moves, speed)
	if local.IsZero() {
		return world.Vector{}
	}
	return toWorld(local.Rotate(theta)).ClampLen(speed)
}

// MovementSystem turns player intentions into facing and velocity.
type MovementSystem struct {
	cfg Config
}

func NewMovementSystem(cfg Config) *MovementSystem {
	return &MovementSystem{cfg: cfg}
}

func (*MovementSystem) Name() string { return "movement" }

func (*MovementSystem) Access() Access {
	return Access{
		Reads:  KindInput | KindPlayer | KindDead | KindWeapon | KindBounds,
		Writes: KindTransform | KindVelocity | KindRemovals,
	}
}

func (s *MovementSystem) Run(ctx *Context) {
	store := ctx.Store
	store.Players.Each(func(e world.Entity, _ *world.Player) {
		if !store.Active(e) {
			return
		}
		in, okIn := store.Inputs.Get(e)
		t, okT := store.Transforms.Get(e)
		v, okV := store.Velocities.Get(e)
		if !okIn || !okT || !okV || !store.Weapons.Has(e) || !store.Bounds.Has(e) {
			store.Quarantine(e, "player is missing a baseline component")
			return
		}
		if store.Deads.Has(e) {
			if !v.IsZero() {
				store.Quarantine(e, "dead player still moving")
			}
			return
		}

		rotation := t.Rotation
		if in.HasAim {
			rotation = FacingAngle(t.Position, in.Aim, t.Rotation)
		}
		velocity := Steer(in.Moves, rotation, s.cfg.MaxWalkSpeed)
		if rotation != t.Rotation || velocity != v.Vector {
			t.Rotation = rotation
			v.Vector = velocity
			store.Touch(e)
		}
	})
}

// PhysicsSystem integrates velocity into position for every mover.
type PhysicsSystem struct{}

func (PhysicsSystem) Name() string { return "physics" }

func (PhysicsSystem) Access() Access {
	return Access{
		Reads:  KindVelocity | KindDead | KindRemovals,
		Writes: KindTransform,
	}
}

func (PhysicsSystem) Run(ctx *Context) {
	store := ctx.Store
	store.Velocities.Each(func(e world.Entity, v *world.Velocity) {
		if v.IsZero() || store.Deads.Has(e) || !store.Active(e) {
			return
		}
		t, ok := store.Transforms.Get(e)
		if !ok {
			return
		}
		t.Position = t.Position.Add(v.Scale(ctx.Dt))
		store.Touch(e)
	})
}
