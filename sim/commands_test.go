package sim

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"westiny/metrics"
	"westiny/world"
)

func inputOf(t *testing.T, store *world.Store, e world.Entity) world.Input {
	t.Helper()
	in, ok := store.Inputs.Get(e)
	if !ok {
		t.Fatalf(`%v has no input`, e)
	}
	return *in
}

func TestStaleCommandRejected(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	e := h.join(t, "a")[0]
	store := h.sim.Store()

	h.sim.Submit(world.Command{
		Sender:  "a",
		Seq:     5,
		Actions: []world.Action{{Direction: world.MoveForward, Pressed: true}},
	})
	h.sim.Step()
	in := inputOf(t, store, e)
	if in.LastSeq != 5 || !in.Moves.Has(world.MoveForward) {
		t.Fatalf(`input = %+v, want forward held at seq 5`, in)
	}

	h.sim.Submit(world.Command{
		Sender:  "a",
		Seq:     3,
		Actions: []world.Action{{Direction: world.MoveForward, Pressed: false}},
		Fire:    true,
	})
	h.sim.Step()
	got := inputOf(t, store, e)
	if got != in {
		t.Fatalf(`stale command changed input: %+v -> %+v`, in, got)
	}
	if n := testutil.ToFloat64(h.metrics.CommandsDropped.WithLabelValues(metrics.ReasonStale)); n != 1 {
		t.Fatalf(`stale drops = %v, want 1`, n)
	}
}

func TestMalformedCommandCounted(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	e := h.join(t, "a")[0]

	h.sim.Submit(world.Command{
		Sender:  "a",
		Seq:     1,
		Actions: []world.Action{{Direction: world.NumMoveDirections + 3, Pressed: true}},
	})
	h.sim.Step()

	if n := testutil.ToFloat64(h.metrics.CommandsDropped.WithLabelValues(metrics.ReasonMalformed)); n != 1 {
		t.Fatalf(`malformed drops = %v, want 1`, n)
	}
	if in := inputOf(t, h.sim.Store(), e); in.LastSeq != 0 {
		t.Fatalf(`malformed command applied: %+v`, in)
	}
}

func TestCommandFromUnknownSessionDiscarded(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	h.join(t, "a")

	h.sim.Submit(world.Command{Sender: "ghost", Seq: 1, Fire: true})
	h.sim.Step()

	if n := testutil.ToFloat64(h.metrics.CommandsDropped.WithLabelValues(metrics.ReasonUnknownSession)); n != 1 {
		t.Fatalf(`unknown session drops = %v, want 1`, n)
	}
	if n := h.sim.Store().Projectiles.Len(); n != 0 {
		t.Fatalf(`%d projectiles spawned for an unknown sender`, n)
	}
}

func TestInboxOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.InboxSize = 1
	h := newHarness(t, cfg, openMap)

	if !h.sim.Submit(world.Command{Sender: "a", Seq: 1}) {
		t.Fatalf(`first Submit() rejected`)
	}
	if h.sim.Submit(world.Command{Sender: "a", Seq: 2}) {
		t.Fatalf(`Submit() into a full inbox succeeded`)
	}
	if n := testutil.ToFloat64(h.metrics.CommandsDropped.WithLabelValues(metrics.ReasonOverflow)); n != 1 {
		t.Fatalf(`overflow drops = %v, want 1`, n)
	}
}

func TestReleaseClearsDirection(t *testing.T) {
	h := newHarness(t, testConfig(), openMap)
	e := h.join(t, "a")[0]

	h.sim.Submit(world.Command{Sender: "a", Seq: 1, Actions: []world.Action{
		{Direction: world.StrafeLeft, Pressed: true},
		{Direction: world.MoveBackward, Pressed: true},
	}})
	h.sim.Submit(world.Command{Sender: "a", Seq: 2, Actions: []world.Action{
		{Direction: world.StrafeLeft, Pressed: false},
	}})
	h.sim.Step()

	in := inputOf(t, h.sim.Store(), e)
	if in.Moves.Has(world.StrafeLeft) || !in.Moves.Has(world.MoveBackward) {
		t.Fatalf(`moves = %08b, want only backward`, in.Moves)
	}
}
