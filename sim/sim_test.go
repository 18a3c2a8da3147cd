package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"westiny/event"
	"westiny/metrics"
	"westiny/world"
)

var testWeapon = world.WeaponDetails{
	Damage:       5,
	Distance:     120,
	FireRate:     7.2,
	MagazineSize: 6,
	ReloadTime:   1,
	Spread:       2,
	Shot:         world.SingleShot,
	BulletSpeed:  200,
}

func testConfig() Config {
	return Config{
		TickRate:         60,
		MaxWalkSpeed:     64,
		PlayerRadius:     8,
		ProjectileRadius: 2,
		MaxHealth:        20,
		RespawnTime:      0.5,
		Weapon:           testWeapon,
		InboxSize:        64,
		OutboxSize:       256,
	}
}

// Two spawn points on an open floor, 96 units apart.
const openMap = "4\n1\nS..S\n"

type harness struct {
	sim     *Simulation
	events  *event.Channel[event.AppEvent]
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, cfg Config, layout string) *harness {
	t.Helper()
	m, err := world.LoadMap(layout)
	if err != nil {
		t.Fatal(err)
	}
	events := event.NewChannel[event.AppEvent]()
	mt := metrics.New(prometheus.NewRegistry())
	s, err := New(cfg, m, events, mt, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	return &harness{sim: s, events: events, metrics: mt}
}

func (h *harness) connect(identities ...string) {
	for _, identity := range identities {
		h.events.Write(event.AppEvent{
			Kind:     event.Connected,
			Identity: identity,
			Initial:  event.ClientInitialData{Identity: identity, Name: identity},
		})
	}
}

func (h *harness) disconnect(identity string) {
	h.events.Write(event.AppEvent{Kind: event.Disconnected, Identity: identity})
}

// join connects identities, runs a tick and discards the outbox.
func (h *harness) join(t *testing.T, identities ...string) []world.Entity {
	t.Helper()
	h.connect(identities...)
	h.sim.Step()
	h.sim.Outbox().Drain()
	var out []world.Entity
	for _, identity := range identities {
		e, ok := h.sim.Sessions().Lookup(identity)
		if !ok {
			t.Fatalf(`no session for %q`, identity)
		}
		out = append(out, e)
	}
	return out
}

func deletionsFor(out []world.Outbound, to string) []world.Deletion {
	var dels []world.Deletion
	for _, o := range out {
		if d, ok := o.Message.(world.Deletion); ok && o.To == to {
			dels = append(dels, d)
		}
	}
	return dels
}

func updatesFor(out []world.Outbound, to string) []world.StateUpdate {
	var ups []world.StateUpdate
	for _, o := range out {
		if u, ok := o.Message.(world.StateUpdate); ok && o.To == to {
			ups = append(ups, u)
		}
	}
	return ups
}

func almostEqual(a, b, threshold float64) bool {
	return math.Abs(a-b) <= threshold
}

func transformOf(t *testing.T, store *world.Store, e world.Entity) world.Transform {
	t.Helper()
	tr, ok := store.Transforms.Get(e)
	if !ok {
		t.Fatalf(`%v has no transform`, e)
	}
	return *tr
}
