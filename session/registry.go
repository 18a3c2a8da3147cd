package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"westiny/world"
)

// ErrEntityShared means a second identity tried to bind an entity that a
// live session already controls.
var ErrEntityShared = errors.New("entity already bound to another session")

// Session binds a network identity to the player entity it controls.
type Session struct {
	Identity      string
	Name          string
	Entity        world.Entity
	Since         uint64
	HandshakeSent bool
}

// Registry maps identities to sessions. Every method takes the lock, so a
// lookup never sees a half-inserted session.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[string]*Session
	byEntity   map[world.Entity]string
}

func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[string]*Session),
		byEntity:   make(map[world.Entity]string),
	}
}

// Lookup resolves an identity to its entity.
func (r *Registry) Lookup(identity string) (world.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byIdentity[identity]
	if !ok {
		return world.Entity{}, false
	}
	return s.Entity, true
}

func (r *Registry) Session(identity string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byIdentity[identity]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (r *Registry) IdentityOf(e world.Entity) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.byEntity[e]
	return identity, ok
}

// Bind creates or replaces the session of identity.
func (r *Registry) Bind(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byEntity[s.Entity]; ok && owner != s.Identity {
		return fmt.Errorf("%w: %v belongs to %s", ErrEntityShared, s.Entity, owner)
	}
	if old, ok := r.byIdentity[s.Identity]; ok {
		delete(r.byEntity, old.Entity)
	}
	r.byIdentity[s.Identity] = &s
	r.byEntity[s.Entity] = s.Identity
	return nil
}

func (r *Registry) MarkHandshakeSent(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byIdentity[identity]; ok {
		s.HandshakeSent = true
	}
}

// Remove drops the session of identity and returns it.
func (r *Registry) Remove(identity string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byIdentity[identity]
	if !ok {
		return Session{}, false
	}
	delete(r.byIdentity, identity)
	if r.byEntity[s.Entity] == identity {
		delete(r.byEntity, s.Entity)
	}
	return *s, true
}

// Reap drops sessions whose entity is no longer alive and returns them.
func (r *Registry) Reap(alive func(world.Entity) bool) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []Session
	for identity, s := range r.byIdentity {
		if alive(s.Entity) {
			continue
		}
		stale = append(stale, *s)
		delete(r.byIdentity, identity)
		if r.byEntity[s.Entity] == identity {
			delete(r.byEntity, s.Entity)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].Identity < stale[j].Identity
	})
	return stale
}

// Identities lists every identity with a session, sorted.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byIdentity))
	for identity := range r.byIdentity {
		out = append(out, identity)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity)
}
