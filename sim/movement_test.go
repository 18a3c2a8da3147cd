package sim

import (
	"math"
	"testing"

	"westiny/world"
)

const epsilon = 1e-9

// sameAngle compares rotations modulo 2π.
func sameAngle(a, b float64) bool {
	return almostEqual(math.Sin(a), math.Sin(b), epsilon) &&
		almostEqual(math.Cos(a), math.Cos(b), epsilon)
}

func TestFacingAngle(t *testing.T) {
	pos := world.Vector{X: 3, Y: 3}
	cases := []struct {
		name string
		aim  world.Vector
		want float64
	}{
		{name: "up", aim: world.Vector{X: 3, Y: 2}, want: math.Pi},
		{name: "down", aim: world.Vector{X: 3, Y: 4}, want: 0},
		{name: "right", aim: world.Vector{X: 4, Y: 3}, want: math.Pi / 2},
		{name: "left", aim: world.Vector{X: 2, Y: 3}, want: -math.Pi / 2},
		{name: "up-right", aim: world.Vector{X: 4, Y: 2}, want: 3 * math.Pi / 4},
	}
	for _, c := range cases {
		got := FacingAngle(pos, c.aim, 0)
		if !sameAngle(got, c.want) {
			t.Errorf(`%s: FacingAngle(%v, %v) = %v, want %v`, c.name, pos, c.aim, got, c.want)
		}
		if got < 0 || got >= 2*math.Pi {
			t.Errorf(`%s: FacingAngle() = %v, outside [0, 2π)`, c.name, got)
		}
	}
}

func TestFacingAngleKeepsRotationOnZeroOffset(t *testing.T) {
	pos := world.Vector{X: 3, Y: 3}
	if got := FacingAngle(pos, pos, 1.25); got != 1.25 {
		t.Fatalf(`FacingAngle() = %v, want previous rotation`, got)
	}
}

func TestLocalVelocity(t *testing.T) {
	const speed = 64
	moves := func(ds ...world.MoveDirection) world.MoveSet {
		var m world.MoveSet
		for _, d := range ds {
			m.Set(d)
		}
		return m
	}
	cases := []struct {
		name  string
		moves world.MoveSet
		want  world.Vector
	}{
		{name: "none", moves: moves(), want: world.Vector{}},
		{name: "forward", moves: moves(world.MoveForward), want: world.Vector{Y: -speed}},
		{name: "backward", moves: moves(world.MoveBackward), want: world.Vector{Y: speed / 2}},
		{name: "strafe left", moves: moves(world.StrafeLeft), want: world.Vector{X: speed / 2}},
		{name: "strafe right", moves: moves(world.StrafeRight), want: world.Vector{X: -speed / 2}},
		{name: "forward and back", moves: moves(world.MoveForward, world.MoveBackward), want: world.Vector{Y: -speed / 4}},
		{name: "strafes cancel", moves: moves(world.StrafeLeft, world.StrafeRight), want: world.Vector{}},
		{
			name:  "forward and strafe left",
			moves: moves(world.MoveForward, world.StrafeLeft),
			want:  world.Vector{X: speed / 4, Y: -speed / 2},
		},
		{
			name:  "all",
			moves: moves(world.MoveForward, world.MoveBackward, world.StrafeLeft, world.StrafeRight),
			want:  world.Vector{Y: -speed / 8},
		},
	}
	for _, c := range cases {
		got := LocalVelocity(c.moves, speed)
		if !almostEqual(got.X, c.want.X, epsilon) || !almostEqual(got.Y, c.want.Y, epsilon) {
			t.Errorf(`%s: LocalVelocity() = %v, want %v`, c.name, got, c.want)
		}
	}
	if got := LocalVelocity(moves(), speed); got != (world.Vector{}) {
		t.Errorf(`LocalVelocity() with no moves = %v, want exactly zero`, got)
	}
}

func TestSteerFollowsFacing(t *testing.T) {
	const speed = 64
	var forward world.MoveSet
	forward.Set(world.MoveForward)
	cases := []struct {
		name  string
		theta float64
		want  world.Vector
	}{
		{name: "facing up", theta: math.Pi, want: world.Vector{Y: -speed}},
		{name: "facing down", theta: 0, want: world.Vector{Y: speed}},
		{name: "facing right", theta: math.Pi / 2, want: world.Vector{X: speed}},
		{name: "facing left", theta: 3 * math.Pi / 2, want: world.Vector{X: -speed}},
	}
	for _, c := range cases {
		got := Steer(forward, c.theta, speed)
		if !almostEqual(got.X, c.want.X, 1e-6) || !almostEqual(got.Y, c.want.Y, 1e-6) {
			t.Errorf(`%s: Steer() = %v, want %v`, c.name, got, c.want)
		}
		heading := Heading(c.theta).Scale(speed)
		if !almostEqual(heading.X, c.want.X, 1e-6) || !almostEqual(heading.Y, c.want.Y, 1e-6) {
			t.Errorf(`%s: Heading() = %v, want direction of %v`, c.name, heading, c.want)
		}
	}
}

func TestMovementIntegratesPosition(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	e := h.join(t, "a")[0]
	store := h.sim.Store()
	start := transformOf(t, store, e).Position

	h.sim.Submit(world.Command{
		Sender:  "a",
		Seq:     1,
		Actions: []world.Action{{Direction: world.MoveForward, Pressed: true}},
		Aim:     start.Add(world.Vector{X: 10}),
		HasAim:  true,
	})
	h.sim.Step()

	tr := transformOf(t, store, e)
	if !sameAngle(tr.Rotation, math.Pi/2) {
		t.Fatalf(`rotation = %v, want π/2`, tr.Rotation)
	}
	wantX := start.X + 64.0/60
	if !almostEqual(tr.Position.X, wantX, 1e-6) || !almostEqual(tr.Position.Y, start.Y, 1e-6) {
		t.Fatalf(`position = %v, want (%v, %v)`, tr.Position, wantX, start.Y)
	}
}

func TestMovementQuarantinesIncompletePlayer(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	e := h.join(t, "a")[0]
	store := h.sim.Store()
	store.Weapons.Remove(e)
	h.sim.Step()
	if !store.Quarantined.Has(e) {
		t.Fatalf(`player without a weapon was not quarantined`)
	}
	if store.Active(e) {
		t.Fatalf(`quarantined player is still active`)
	}
}
