package world

import "fmt"

// Entity is a handle into a Store. Index addresses a slot and Gen tells
// apart successive occupants of that slot. The zero Entity is never alive.
type Entity struct {
	Index uint32
	Gen   uint32
}

// ID is the wire form of an Entity.
type ID uint64

func (e Entity) ID() ID {
	return ID(uint64(e.Gen)<<32 | uint64(e.Index))
}

func (e Entity) String() string {
	return fmt.Sprintf("%d:%d", e.Index, e.Gen)
}

func (id ID) Entity() Entity {
	return Entity{Index: uint32(id), Gen: uint32(id >> 32)}
}

// Archetype tags what kind of simulated object an entity is.
type Archetype uint8

const (
	ArchetypePlayer Archetype = iota
	ArchetypeProjectile
	ArchetypeObstacle
)

func (a Archetype) String() string {
	switch a {
	case ArchetypePlayer:
		return "player"
	case ArchetypeProjectile:
		return "projectile"
	case ArchetypeObstacle:
		return "obstacle"
	}
	return fmt.Sprintf("archetype(%d)", uint8(a))
}
