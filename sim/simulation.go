package sim

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"westiny/event"
	"westiny/metrics"
	"westiny/session"
	"westiny/world"
)

// Simulation is the authoritative world and the pipeline that advances it.
type Simulation struct {
	cfg       Config
	store     *world.Store
	sessions  *session.Registry
	spawner   *Spawner
	scheduler *Scheduler
	health    *HealthSystem
	inbox     chan world.Command
	outbox    *Outbox
	metrics   *metrics.Metrics

	mu     sync.Mutex
	tick   uint64
	damage []Damage
}

// New builds the world from m and wires the systems in pipeline order.
// Connection events are read from events.
func New(cfg Config, m *world.Map, events event.Source[event.AppEvent], mt *metrics.Metrics, rng *rand.Rand) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:      cfg,
		store:    world.NewStore(cfg.MaxEntities),
		sessions: session.NewRegistry(),
		inbox:    make(chan world.Command, cfg.InboxSize),
		outbox:   NewOutbox(cfg.OutboxSize, mt),
		metrics:  mt,
	}
	var spawns []world.Vector
	if m != nil {
		spawns = m.SpawnPoints()
	}
	s.spawner = NewSpawner(cfg, s.store, spawns)
	if m != nil {
		for _, at := range m.Obstacles() {
			if _, err := s.spawner.SpawnObstacle(at); err != nil {
				return nil, fmt.Errorf("placing obstacle at %v: %w", at, err)
			}
		}
	}
	s.health = NewHealthSystem(cfg, mt)

	s.scheduler = NewScheduler(mt)
	s.scheduler.Add(
		NewIntroductionSystem(events, s.sessions, s.spawner, s.outbox),
		NewCommandTransformer(s.inbox, s.sessions, mt),
		NewMovementSystem(cfg),
		PhysicsSystem{},
		NewShooterSystem(cfg, s.spawner, rng),
		CollisionSystem{},
		s.health,
		NewRespawnSystem(s.spawner),
		LifespanSystem{},
		NewStateBroadcaster(s.sessions, s.outbox),
		NewDeleteBroadcaster(s.sessions, s.outbox),
	)
	s.scheduler.Compile()
	return s, nil
}

// Submit queues a decoded command for the next tick. It never blocks; a
// full inbox drops the command.
func (s *Simulation) Submit(cmd world.Command) bool {
	select {
	case s.inbox <- cmd:
		return true
	default:
		s.metrics.CommandsDropped.WithLabelValues(metrics.ReasonOverflow).Inc()
		return false
	}
}

// Step runs one tick and commits its removals.
func (s *Simulation) Step() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	s.tick++
	ctx := &Context{
		Tick:   s.tick,
		Dt:     s.cfg.Dt(),
		Store:  s.store,
		Damage: s.damage[:0],
	}
	if err := s.scheduler.Run(ctx); err != nil {
		log.Printf("tick %d: %v", s.tick, err)
	}
	s.damage = ctx.Damage
	s.store.Maintain()

	s.metrics.TickDuration.Observe(time.Since(start).Seconds())
	s.metrics.Entities.Set(float64(s.store.Len()))
	s.metrics.Sessions.Set(float64(s.sessions.Len()))
	return s.tick
}

func (s *Simulation) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Outbox is where the broadcasters leave messages for the transport.
func (s *Simulation) Outbox() *Outbox {
	return s.outbox
}

// Store is the entity store. Outside a tick it may only be read.
func (s *Simulation) Store() *world.Store {
	return s.store
}

func (s *Simulation) Sessions() *session.Registry {
	return s.sessions
}

func (s *Simulation) Spawner() *Spawner {
	return s.spawner
}

func (s *Simulation) Scheduler() *Scheduler {
	return s.scheduler
}

// Kill moves e into the dead state as if its health had run out.
func (s *Simulation) Kill(e world.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health.Kill(s.store, e)
}
