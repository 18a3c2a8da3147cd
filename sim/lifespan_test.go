package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"westiny/world"
)

func TestProjectileRemovedOnTickN(t *testing.T) {
	const n = 4
	h := newHarness(t, testConfig(), openMap)
	h.join(t, "a")
	store := h.sim.Store()

	far := world.Vector{X: 1000, Y: 1000}
	p, err := h.sim.Spawner().SpawnProjectile(world.Entity{}, far, 0, testWeapon)
	if err != nil {
		t.Fatal(err)
	}
	l, _ := store.Lifespans.Get(p)
	l.Ticks = n

	for i := 1; i <= n; i++ {
		tick := h.sim.Step()
		dels := deletionsFor(h.sim.Outbox().Drain(), "a")
		if i < n {
			if len(dels) != 0 {
				t.Fatalf(`deletion sent after %d ticks, want %d`, i, n)
			}
			if !store.Alive(p) {
				t.Fatalf(`projectile removed after %d ticks, want %d`, i, n)
			}
			continue
		}
		if len(dels) != 1 || dels[0].Tick != tick {
			t.Fatalf(`deletions on tick %d = %+v, want one for this tick`, tick, dels)
		}
		if diff := cmp.Diff([]world.ID{p.ID()}, dels[0].IDs); diff != "" {
			t.Fatalf(`deleted ids mismatch (-want +got):\n%s`, diff)
		}
	}
	if store.Alive(p) {
		t.Fatalf(`projectile still alive after %d ticks`, n)
	}
}

// A projectile fired during a tick starts counting on the next one, so it
// moves once per lifespan tick and covers the weapon's whole distance.
func TestFiredProjectileLivesFullLifespan(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	e := h.join(t, "a")[0]
	store := h.sim.Store()
	pos := transformOf(t, store, e).Position
	n := ProjectileLifespan(testWeapon, testConfig().Dt())

	h.sim.Submit(world.Command{Sender: "a", Seq: 1, Aim: pos.Add(world.Vector{X: 50}), HasAim: true, Fire: true})
	fired := h.sim.Step()
	h.sim.Outbox().Drain()
	var p world.Entity
	store.Projectiles.Each(func(q world.Entity, _ *world.Projectile) { p = q })
	if !store.Alive(p) {
		t.Fatal(`no projectile after firing`)
	}
	muzzle := transformOf(t, store, p).Position
	h.sim.Submit(world.Command{Sender: "a", Seq: 2, Fire: false})

	step := testWeapon.BulletSpeed * testConfig().Dt()
	for i := 1; i <= n; i++ {
		tick := h.sim.Step()
		dels := deletionsFor(h.sim.Outbox().Drain(), "a")
		if i < n {
			if len(dels) != 0 || !store.Alive(p) {
				t.Fatalf(`projectile removed %d ticks after tick %d, want %d`, i, fired, n)
			}
			got := transformOf(t, store, p).Position.Sub(muzzle).Len()
			if !almostEqual(got, float64(i)*step, 1e-6) {
				t.Fatalf(`travelled %v after %d ticks, want %v`, got, i, float64(i)*step)
			}
			continue
		}
		if len(dels) != 1 || dels[0].Tick != fired+uint64(n) || dels[0].Tick != tick {
			t.Fatalf(`deletions on tick %d = %+v, want one for tick %d`, tick, dels, fired+uint64(n))
		}
	}
	if store.Alive(p) {
		t.Fatalf(`projectile still alive %d ticks after firing`, n)
	}
	// The last tick moves it once more before removal.
	if float64(n)*step < testWeapon.Distance-1e-6 {
		t.Fatalf(`covers %v in %d moves, want at least %v`, float64(n)*step, n, testWeapon.Distance)
	}
}

func TestDeleteTwiceBroadcastOnce(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	h.join(t, "a")
	store := h.sim.Store()

	p, _ := h.sim.Spawner().SpawnProjectile(world.Entity{}, world.Vector{X: 1000, Y: 1000}, 0, testWeapon)
	h.sim.Step()
	h.sim.Outbox().Drain()

	store.Delete(p)
	store.Delete(p)
	h.sim.Step()

	dels := deletionsFor(h.sim.Outbox().Drain(), "a")
	if len(dels) != 1 {
		t.Fatalf(`got %d deletion messages, want 1`, len(dels))
	}
	if diff := cmp.Diff([]world.ID{p.ID()}, dels[0].IDs); diff != "" {
		t.Fatalf(`deleted ids mismatch (-want +got):\n%s`, diff)
	}
}

func TestCreatedAndRemovedInOneTickOnlyReportedRemoved(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	h.join(t, "a")
	store := h.sim.Store()

	p, _ := h.sim.Spawner().SpawnProjectile(world.Entity{}, world.Vector{X: 1000, Y: 1000}, 0, testWeapon)
	store.Delete(p)
	h.sim.Step()
	out := h.sim.Outbox().Drain()

	for _, up := range updatesFor(out, "a") {
		for _, state := range up.Entities {
			if state.ID == p.ID() {
				t.Fatalf(`removed projectile appeared in a state update`)
			}
		}
	}
	dels := deletionsFor(out, "a")
	if len(dels) != 1 || len(dels[0].IDs) != 1 || dels[0].IDs[0] != p.ID() {
		t.Fatalf(`deletions = %+v, want only %v`, dels, p.ID())
	}
}

func TestProjectileLifespan(t *testing.T) {
	cases := []struct {
		distance, speed, dt float64
		want                int
	}{
		{distance: 120, speed: 200, dt: 1.0 / 60, want: 36},
		{distance: 100, speed: 200, dt: 0.1, want: 5},
		{distance: 1, speed: 200, dt: 0.1, want: 1},
		{distance: 0, speed: 200, dt: 0.1, want: 1},
	}
	for _, c := range cases {
		got := ProjectileLifespan(world.WeaponDetails{Distance: c.distance, BulletSpeed: c.speed}, c.dt)
		if got != c.want {
			t.Errorf(`ProjectileLifespan(%v, %v, %v) = %d, want %d`, c.distance, c.speed, c.dt, got, c.want)
		}
	}
}
