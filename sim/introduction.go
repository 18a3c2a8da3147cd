package sim

import (
	"errors"
	"log"

	"westiny/event"
	"westiny/session"
	"westiny/world"
)

// IntroductionSystem reacts to connection events: it binds identities to
// player entities and hands new clients their handshake.
type IntroductionSystem struct {
	events   event.Source[event.AppEvent]
	reader   *event.ReaderID
	sessions *session.Registry
	spawner  *Spawner
	outbox   *Outbox

	// pending holds introductions that failed for lack of room.
	pending []event.AppEvent
}

func NewIntroductionSystem(events event.Source[event.AppEvent], sessions *session.Registry, spawner *Spawner, outbox *Outbox) *IntroductionSystem {
	return &IntroductionSystem{
		events:   events,
		reader:   events.Register(),
		sessions: sessions,
		spawner:  spawner,
		outbox:   outbox,
	}
}

func (*IntroductionSystem) Name() string { return "introduction" }

func (*IntroductionSystem) Access() Access {
	return Access{
		Writes: KindComponents | KindSpawns | KindRemovals | KindSessions | KindOutbox | KindAppEvents,
	}
}

func (s *IntroductionSystem) Run(ctx *Context) {
	queued := append(s.pending, s.events.Read(s.reader)...)
	s.pending = nil
	if len(queued) > 0 {
		s.reap(ctx.Store)
	}
	for _, ev := range queued {
		switch ev.Kind {
		case event.Connected:
			if !s.introduce(ctx, ev) {
				s.pending = append(s.pending, ev)
			}
		case event.Disconnected, event.ConnectionFailed:
			s.pending = dropIdentity(s.pending, ev.Identity)
			if ev.Kind == event.ConnectionFailed {
				log.Printf("connection from %s failed: %v", ev.Addr, ev.Err)
			}
			s.disconnect(ctx.Store, ev.Identity)
		}
	}
	s.resendHandshakes(ctx)
}

// reap drops sessions whose entity is gone or on its way out.
func (s *IntroductionSystem) reap(store *world.Store) {
	stale := s.sessions.Reap(func(e world.Entity) bool {
		return store.Alive(e) && !store.Removing(e)
	})
	for _, st := range stale {
		log.Printf("reaped stale session %s (entity %v)", st.Identity, st.Entity)
	}
}

// introduce reports false when the entity could not be spawned yet.
func (s *IntroductionSystem) introduce(ctx *Context, ev event.AppEvent) bool {
	identity := ev.Identity
	if existing, ok := s.sessions.Session(identity); ok && ctx.Store.Alive(existing.Entity) && !ctx.Store.Removing(existing.Entity) {
		// Duplicate or repeated connection: same entity, fresh handshake.
		s.sendHandshake(ctx, identity, existing.Entity)
		return true
	}

	e, err := s.spawner.SpawnPlayer(ev.Initial.Name)
	if err != nil {
		if errors.Is(err, world.ErrCapacity) {
			log.Printf("no room for %s, retrying next tick", identity)
			return false
		}
		log.Printf("spawning player for %s: %v", identity, err)
		return true
	}
	if err := s.sessions.Bind(session.Session{
		Identity: identity,
		Name:     ev.Initial.Name,
		Entity:   e,
		Since:    ctx.Tick,
	}); err != nil {
		ctx.Store.Quarantine(e, err.Error())
		ctx.Store.Delete(e)
		return true
	}
	log.Printf("introduced %s as %v", identity, e)
	s.sendHandshake(ctx, identity, e)
	return true
}

func (s *IntroductionSystem) sendHandshake(ctx *Context, identity string, e world.Entity) {
	ok := s.outbox.Push(world.Outbound{
		To: identity,
		Message: world.Handshake{
			Identity: identity,
			Entity:   e.ID(),
			Tick:     ctx.Tick,
			Snapshot: ctx.Store.SnapshotAll(),
		},
	})
	if ok {
		s.sessions.MarkHandshakeSent(identity)
	}
}

func (s *IntroductionSystem) resendHandshakes(ctx *Context) {
	for _, identity := range s.sessions.Identities() {
		st, ok := s.sessions.Session(identity)
		if ok && !st.HandshakeSent {
			s.sendHandshake(ctx, identity, st.Entity)
		}
	}
}

// disconnect tears down the session. A reconnect queued behind it in the
// same batch spawns a fresh entity.
func (s *IntroductionSystem) disconnect(store *world.Store, identity string) {
	st, ok := s.sessions.Remove(identity)
	if !ok {
		return
	}
	log.Printf("%s disconnected, removing %v", identity, st.Entity)
	store.Delete(st.Entity)
}

func dropIdentity(events []event.AppEvent, identity string) []event.AppEvent {
	out := events[:0]
	for _, ev := range events {
		if ev.Identity != identity {
			out = append(out, ev)
		}
	}
	return out
}
