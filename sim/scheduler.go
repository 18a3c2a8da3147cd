package sim

import (
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"westiny/metrics"
	"westiny/world"
)

// Kind names a component table or shared resource a system touches.
type Kind uint32

const (
	KindArchetype Kind = 1 << iota
	KindTransform
	KindVelocity
	KindInput
	KindWeapon
	KindBounds
	KindHealth
	KindPlayer
	KindProjectile
	KindLifespan
	KindDead

	// KindSpawns covers entity allocation against the store capacity.
	KindSpawns
	// KindRemovals covers the pending-removal and quarantine sets, which
	// decide whether an entity is still active.
	KindRemovals
	KindDamage
	KindSessions
	KindOutbox
	KindCommands
	KindAppEvents

	KindComponents = KindArchetype | KindTransform | KindVelocity | KindInput |
		KindWeapon | KindBounds | KindHealth | KindPlayer | KindProjectile |
		KindLifespan | KindDead
)

var kindNames = []string{
	"archetype", "transform", "velocity", "input", "weapon", "bounds",
	"health", "player", "projectile", "lifespan", "dead", "spawns",
	"removals", "damage", "sessions", "outbox", "commands", "app-events",
}

func (k Kind) String() string {
	var names []string
	for i, name := range kindNames {
		if k&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Access declares what a system reads and writes during a tick. Store
// journal touches are not declared: they only add to a set under the store
// lock, so their order never matters.
type Access struct {
	Reads  Kind
	Writes Kind
}

func (a Access) conflicts(b Access) bool {
	return a.Writes&(b.Writes|b.Reads) != 0 || b.Writes&a.Reads != 0
}

// Damage is a hit queued by collision for the health system.
type Damage struct {
	Target world.Entity
	Source world.Entity
	Amount float64
}

// Context is the per-tick state handed to every system.
type Context struct {
	Tick   uint64
	Dt     float64
	Store  *world.Store
	Damage []Damage
}

type System interface {
	Name() string
	Access() Access
	Run(ctx *Context)
}

// Scheduler runs systems in the order they were added, grouping
// neighbours without conflicting access into batches that run in parallel.
type Scheduler struct {
	systems []System
	batches [][]System
	metrics *metrics.Metrics
}

func NewScheduler(m *metrics.Metrics) *Scheduler {
	return &Scheduler{metrics: m}
}

func (s *Scheduler) Add(systems ...System) {
	s.systems = append(s.systems, systems...)
	s.batches = nil
}

// Compile resolves the batches once. A system joins the current batch only
// if it conflicts neither with a batch member nor with an earlier system
// that had to wait, so no system ever overtakes one it depends on.
func (s *Scheduler) Compile() {
	var batches [][]System
	remaining := s.systems
	for len(remaining) > 0 {
		var batch, deferred []System
		for _, sys := range remaining {
			if conflictsWithAny(sys, batch) || conflictsWithAny(sys, deferred) {
				deferred = append(deferred, sys)
				continue
			}
			batch = append(batch, sys)
		}
		batches = append(batches, batch)
		remaining = deferred
	}
	s.batches = batches
}

func conflictsWithAny(sys System, others []System) bool {
	for _, other := range others {
		if sys.Access().conflicts(other.Access()) {
			return true
		}
	}
	return false
}

func (s *Scheduler) Batches() [][]System {
	if s.batches == nil {
		s.Compile()
	}
	return s.batches
}

// Run executes one tick. A panicking system is recovered, logged and
// counted; the remaining systems still run and the error is returned.
func (s *Scheduler) Run(ctx *Context) error {
	var firstErr error
	for _, batch := range s.Batches() {
		var g errgroup.Group
		for _, sys := range batch {
			sys := sys
			if len(batch) == 1 {
				if err := s.runSystem(sys, ctx); err != nil && firstErr == nil {
					firstErr = err
				}
				continue
			}
			g.Go(func() error {
				return s.runSystem(sys, ctx)
			})
		}
		if err := g.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Scheduler) runSystem(sys System, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("system %s panicked on tick %d: %v", sys.Name(), ctx.Tick, r)
			if s.metrics != nil {
				s.metrics.SystemPanics.WithLabelValues(sys.Name()).Inc()
			}
			err = fmt.Errorf("system %s: %v", sys.Name(), r)
		}
	}()
	sys.Run(ctx)
	return nil
}
