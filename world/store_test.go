package world

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStoreReusesSlotsWithNewGeneration(t *testing.T) {
	s := NewStore(0)
	a, _ := s.Create()
	s.Transforms.Insert(a, Transform{Position: Vector{X: 1}})
	s.Delete(a)
	s.Maintain()

	if s.Alive(a) {
		t.Fatalf(`%v still alive after Maintain`, a)
	}
	b, _ := s.Create()
	if b.Index != a.Index || b.Gen == a.Gen {
		t.Fatalf(`Create() = %v, want slot %d with a new generation`, b, a.Index)
	}
	if _, ok := s.Transforms.Get(a); ok {
		t.Fatalf(`stale handle %v still reads a Transform`, a)
	}
	if _, ok := s.Transforms.Get(b); ok {
		t.Fatalf(`new entity %v inherited a Transform`, b)
	}
}

func TestStoreCapacity(t *testing.T) {
	s := NewStore(1)
	if _, err := s.Create(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(); !errors.Is(err, ErrCapacity) {
		t.Fatalf(`Create() err = %v, want %v`, err, ErrCapacity)
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	s := NewStore(0)
	e, _ := s.Create()
	s.Maintain()

	s.Delete(e)
	s.Delete(e)
	if got := s.Changes().Removed; !cmp.Equal(got, []Entity{e}) {
		t.Fatalf(`Removed = %v, want [%v]`, got, e)
	}
	s.Maintain()

	s.Delete(e)
	if got := s.Changes().Removed; len(got) != 0 {
		t.Fatalf(`deleting a removed entity produced %v`, got)
	}
}

func TestChangesPreferRemoval(t *testing.T) {
	s := NewStore(0)
	kept, _ := s.Create()
	s.Maintain()

	born, _ := s.Create()
	s.Touch(kept)
	gone, _ := s.Create()
	s.Delete(gone)

	want := Changes{
		Created: []Entity{born},
		Updated: []Entity{kept},
		Removed: []Entity{gone},
	}
	if diff := cmp.Diff(want, s.Changes()); diff != "" {
		t.Fatalf(`Changes() mismatch (-want +got):\n%s`, diff)
	}
}

func TestQuarantineExcludesFromActive(t *testing.T) {
	s := NewStore(0)
	e, _ := s.Create()
	if !s.Active(e) {
		t.Fatalf(`%v should be active`, e)
	}
	s.Quarantine(e, "test")
	if s.Active(e) {
		t.Fatalf(`quarantined %v still active`, e)
	}
	if !s.Alive(e) {
		t.Fatalf(`quarantined %v should stay alive`, e)
	}
}

func TestSnapshotReadsComponents(t *testing.T) {
	s := NewStore(0)
	e, _ := s.Create()
	s.Archetypes.Insert(e, ArchetypePlayer)
	s.Players.Insert(e, Player{Name: "kid"})
	s.Transforms.Insert(e, Transform{Position: Vector{X: 3, Y: 4}, Rotation: 1})
	s.Healths.Insert(e, Health{Current: 50, Max: 100})
	s.Weapons.Insert(e, NewWeapon(WeaponDetails{MagazineSize: 6, FireRate: 1}))
	s.Bounds.Insert(e, BoundingCircle{Radius: 8})

	got, ok := s.Snapshot(e)
	if !ok {
		t.Fatalf(`Snapshot(%v) missing`, e)
	}
	want := EntityState{
		ID:        e.ID(),
		Archetype: ArchetypePlayer,
		Name:      "kid",
		Position:  Vector{X: 3, Y: 4},
		Rotation:  1,
		Radius:    8,
		Health:    50,
		MaxHealth: 100,
		Ammo:      6,
		Magazine:  6,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf(`Snapshot mismatch (-want +got):\n%s`, diff)
	}

	s.Delete(e)
	if _, ok := s.Snapshot(e); ok {
		t.Fatalf(`entity being removed still has a snapshot`)
	}
}

func TestEntityIDRoundTrip(t *testing.T) {
	e := Entity{Index: 7, Gen: 3}
	if got := e.ID().Entity(); got != e {
		t.Fatalf(`ID().Entity() = %v, want %v`, got, e)
	}
}
