package sim

import (
	"log"

	"westiny/metrics"
	"westiny/session"
	"westiny/world"
)

// CommandTransformer drains the inbound queue at tick start and writes each
// command onto its sender's Input.
type CommandTransformer struct {
	inbox    chan world.Command
	sessions *session.Registry
	metrics  *metrics.Metrics
}

func NewCommandTransformer(inbox chan world.Command, sessions *session.Registry, m *metrics.Metrics) *CommandTransformer {
	return &CommandTransformer{inbox: inbox, sessions: sessions, metrics: m}
}

func (*CommandTransformer) Name() string { return "commands" }

func (*CommandTransformer) Access() Access {
	return Access{
		Reads:  KindSessions | KindRemovals,
		Writes: KindInput | KindCommands,
	}
}

func (s *CommandTransformer) Run(ctx *Context) {
	// Only what was queued before the tick started belongs to it.
	for n := len(s.inbox); n > 0; n-- {
		s.apply(ctx.Store, <-s.inbox)
	}
}

func (s *CommandTransformer) apply(store *world.Store, cmd world.Command) {
	if err := cmd.Validate(); err != nil {
		log.Printf("dropping command %d from %s: %v", cmd.Seq, cmd.Sender, err)
		s.metrics.CommandsDropped.WithLabelValues(metrics.ReasonMalformed).Inc()
		return
	}
	e, ok := s.sessions.Lookup(cmd.Sender)
	if !ok || !store.Active(e) {
		s.metrics.CommandsDropped.WithLabelValues(metrics.ReasonUnknownSession).Inc()
		return
	}
	in, ok := store.Inputs.Get(e)
	if !ok {
		s.metrics.CommandsDropped.WithLabelValues(metrics.ReasonUnknownSession).Inc()
		return
	}
	if cmd.Seq <= in.LastSeq {
		s.metrics.CommandsDropped.WithLabelValues(metrics.ReasonStale).Inc()
		return
	}

	for _, a := range cmd.Actions {
		if a.Pressed {
			in.Moves.Set(a.Direction)
		} else {
			in.Moves.Clear(a.Direction)
		}
	}
	if cmd.HasAim {
		in.Aim = cmd.Aim
		in.HasAim = true
	}
	in.Fire = cmd.Fire
	in.Reload = in.Reload || cmd.Reload
	in.LastSeq = cmd.Seq
}
