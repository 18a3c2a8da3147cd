package sim

import (
	"westiny/session"
	"westiny/world"
)

// StateBroadcaster sends every introduced client the entities created or
// changed this tick.
type StateBroadcaster struct {
	sessions *session.Registry
	outbox   *Outbox
}

func NewStateBroadcaster(sessions *session.Registry, outbox *Outbox) *StateBroadcaster {
	return &StateBroadcaster{sessions: sessions, outbox: outbox}
}

func (*StateBroadcaster) Name() string { return "state-broadcaster" }

func (*StateBroadcaster) Access() Access {
	return Access{
		Reads:  KindComponents | KindRemovals | KindSessions,
		Writes: KindOutbox,
	}
}

func (s *StateBroadcaster) Run(ctx *Context) {
	changes := ctx.Store.Changes()
	var states []world.EntityState
	for _, group := range [][]world.Entity{changes.Created, changes.Updated} {
		for _, e := range group {
			if state, ok := ctx.Store.Snapshot(e); ok {
				states = append(states, state)
			}
		}
	}
	if len(states) == 0 {
		return
	}
	for _, identity := range introduced(s.sessions) {
		s.outbox.Push(world.Outbound{
			To:      identity,
			Message: world.StateUpdate{Tick: ctx.Tick, Entities: states},
		})
	}
}

// DeleteBroadcaster sends every introduced client the entities removed this
// tick.
type DeleteBroadcaster struct {
	sessions *session.Registry
	outbox   *Outbox
}

func NewDeleteBroadcaster(sessions *session.Registry, outbox *Outbox) *DeleteBroadcaster {
	return &DeleteBroadcaster{sessions: sessions, outbox: outbox}
}

func (*DeleteBroadcaster) Name() string { return "delete-broadcaster" }

func (*DeleteBroadcaster) Access() Access {
	return Access{
		Reads:  KindRemovals | KindSessions,
		Writes: KindOutbox,
	}
}

func (s *DeleteBroadcaster) Run(ctx *Context) {
	removed := ctx.Store.Changes().Removed
	if len(removed) == 0 {
		return
	}
	ids := make([]world.ID, len(removed))
	for i, e := range removed {
		ids[i] = e.ID()
	}
	for _, identity := range introduced(s.sessions) {
		s.outbox.Push(world.Outbound{
			To:      identity,
			Message: world.Deletion{Tick: ctx.Tick, IDs: ids},
		})
	}
}

func introduced(sessions *session.Registry) []string {
	var out []string
	for _, identity := range sessions.Identities() {
		if st, ok := sessions.Session(identity); ok && st.HandshakeSent {
			out = append(out, identity)
		}
	}
	return out
}
