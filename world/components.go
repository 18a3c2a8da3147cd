package world

import "fmt"

type Transform struct {
	Position Vector
	Rotation float64
}

type Velocity struct {
	Vector
}

// MoveDirection is a movement relative to the entity's facing.
type MoveDirection uint8

const (
	MoveForward MoveDirection = iota
	MoveBackward
	StrafeLeft
	StrafeRight

	NumMoveDirections
)

func (d MoveDirection) Valid() bool {
	return d < NumMoveDirections
}

func (d MoveDirection) String() string {
	switch d {
	case MoveForward:
		return "forward"
	case MoveBackward:
		return "backward"
	case StrafeLeft:
		return "strafe_left"
	case StrafeRight:
		return "strafe_right"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// MoveDirectionFromAction maps an input action name to a direction.
func MoveDirectionFromAction(action string) (MoveDirection, bool) {
	for d := MoveForward; d < NumMoveDirections; d++ {
		if d.String() == action {
			return d, true
		}
	}
	return 0, false
}

// MoveSet is the set of currently held movement directions.
type MoveSet uint8

func (m MoveSet) Has(d MoveDirection) bool {
	return m&(1<<d) != 0
}

func (m *MoveSet) Set(d MoveDirection) {
	*m |= 1 << d
}

func (m *MoveSet) Clear(d MoveDirection) {
	*m &^= 1 << d
}

func (m MoveSet) Empty() bool {
	return m == 0
}

// Input is the intention of a controlled entity.
type Input struct {
	Moves   MoveSet
	Aim     Vector
	HasAim  bool
	Fire    bool
	Reload  bool
	LastSeq uint64
}

// ResetIntentions clears everything but the last applied sequence number,
// so replayed commands stay rejected.
func (in *Input) ResetIntentions() {
	*in = Input{LastSeq: in.LastSeq}
}

type BoundingCircle struct {
	Radius float64
}

type Health struct {
	Current float64
	Max     float64
}

// Player marks an entity as controlled by a client.
type Player struct {
	Name string
}

type Projectile struct {
	Owner  Entity
	Damage float64
}

// Lifespan counts down the ticks an entity has left. The tick it was
// spawned on, if any, does not count.
type Lifespan struct {
	Ticks int
	Since uint64
}

// Dead excludes a player from movement, shooting and collision until
// RespawnIn seconds have passed.
type Dead struct {
	RespawnIn float64
}
