package game

import (
	"log"

	"westiny/event"
	"westiny/wire"
	"westiny/world"
)

// Action names produced by the input layer besides the movement ones.
const (
	ActionFire   = "fire"
	ActionReload = "reload"
	ActionQuit   = "quit"
)

// receive decodes a server push into the replica. It returns the decoded
// message, or nil if the payload was unusable.
func receive(ctx *Context, ev event.AppEvent) world.Message {
	msg, err := wire.DecodeServer(ev.Payload)
	if err != nil {
		log.Printf("dropping server message: %v", err)
		return nil
	}
	ctx.Replica.Apply(msg)
	return msg
}

// ConnectingState says hello once the transport is up and waits for the
// server's handshake.
type ConnectingState struct{}

func NewConnectingState() *ConnectingState {
	return &ConnectingState{}
}

func (s *ConnectingState) OnStart(ctx *Context) {}
func (s *ConnectingState) OnStop(ctx *Context) {}

func (s *ConnectingState) HandleEvent(ctx *Context, ev event.WestinyEvent) Trans {
	switch ev := ev.(type) {
	case event.AppEvent:
		switch ev.Kind {
		case event.Connected:
			ctx.Send(wire.EncodeHello(wire.Hello{
				Identity: ctx.Identity,
				Name:     ctx.Name,
				Version:  wire.ProtocolVersion,
			}))
			log.Printf("connected to %s as %s", ev.Addr, ctx.Identity)
		case event.ConnectionFailed, event.Disconnected:
			log.Printf("connection to %s lost: %v", ev.Addr, ev.Err)
			return Quit()
		case event.ServerPush:
			if _, ok := receive(ctx, ev).(world.Handshake); ok {
				return Switch(NewPlayingState())
			}
		}
	case event.EngineEvent:
		if quits(ev) {
			return Quit()
		}
	}
	return None()
}

func (s *ConnectingState) Update(ctx *Context, dt float64) Trans {
	return None()
}

func quits(ev event.EngineEvent) bool {
	return ev.Kind == event.WindowClosed || (ev.Kind == event.KeyPressed && ev.Action == ActionQuit)
}

// PlayingState turns input into commands. A command is sent at most once
// per update and only when an intention changed.
type PlayingState struct {
	seq     uint64
	pending world.Command
	dirty   bool

	// What the player is holding down. The server forgets intentions when
	// the player dies and again on respawn, so these are pressed anew once
	// self is alive.
	held   world.MoveSet
	firing bool
	dead   bool
}

func NewPlayingState() *PlayingState {
	return &PlayingState{}
}

func (s *PlayingState) OnStart(ctx *Context) {
	if self, ok := ctx.Replica.Self(); ok {
		log.Printf("playing as %s (entity %d)", self.Name, self.ID)
		s.dead = self.Dead
	}
}

func (s *PlayingState) OnStop(ctx *Context) {}

func (s *PlayingState) HandleEvent(ctx *Context, ev event.WestinyEvent) Trans {
	switch ev := ev.(type) {
	case event.AppEvent:
		switch ev.Kind {
		case event.ServerPush:
			receive(ctx, ev)
			s.resync(ctx)
		case event.Disconnected, event.ConnectionFailed:
			log.Printf("disconnected from %s: %v", ev.Addr, ev.Err)
			return Quit()
		}
	case event.EngineEvent:
		if quits(ev) {
			return Quit()
		}
		switch ev.Kind {
		case event.KeyPressed, event.KeyReleased:
			s.key(ctx, ev.Action, ev.Kind == event.KeyPressed)
		case event.CursorMoved:
			s.aim(ctx, world.Vector{X: ev.X, Y: ev.Y})
		case event.FocusChanged:
			if !ev.Focused {
				s.releaseAll(ctx)
				return Push(NewPausedState())
			}
		}
	}
	return None()
}

func (s *PlayingState) key(ctx *Context, action string, pressed bool) {
	if d, ok := world.MoveDirectionFromAction(action); ok {
		if pressed == s.held.Has(d) {
			return
		}
		if pressed {
			s.held.Set(d)
		} else {
			s.held.Clear(d)
		}
		if !s.dead {
			ctx.Replica.Moves = s.held
		}
		s.pending.Actions = append(s.pending.Actions, world.Action{Direction: d, Pressed: pressed})
		s.dirty = true
		return
	}
	switch action {
	case ActionFire:
		if s.firing != pressed {
			s.firing = pressed
			s.pending.Fire = pressed
			s.dirty = true
		}
	case ActionReload:
		if pressed {
			s.pending.Reload = true
			s.dirty = true
		}
	}
}

func (s *PlayingState) aim(ctx *Context, at world.Vector) {
	ctx.Replica.Aim, ctx.Replica.HasAim = at, true
	s.pending.Aim, s.pending.HasAim = at, true
	s.dirty = true
}

// releaseAll lets go of every held intention, so a player does not keep
// running while the window is in the background.
func (s *PlayingState) releaseAll(ctx *Context) {
	for d := world.MoveForward; d < world.NumMoveDirections; d++ {
		if s.held.Has(d) {
			s.pending.Actions = append(s.pending.Actions, world.Action{Direction: d})
			s.dirty = true
		}
	}
	s.held = 0
	ctx.Replica.Moves = 0
	if s.firing {
		s.firing = false
		s.pending.Fire = false
		s.dirty = true
	}
	s.flush(ctx)
}

// resync follows the local player through death and respawn. Prediction
// stops with the server's reset on death. Once alive again, everything
// still held is pressed again so the server and the replica agree.
func (s *PlayingState) resync(ctx *Context) {
	self, ok := ctx.Replica.Self()
	if !ok || self.Dead == s.dead {
		return
	}
	s.dead = self.Dead
	if s.dead {
		ctx.Replica.Moves = 0
		return
	}
	ctx.Replica.Moves = s.held
	for d := world.MoveForward; d < world.NumMoveDirections; d++ {
		if s.held.Has(d) {
			s.pending.Actions = append(s.pending.Actions, world.Action{Direction: d, Pressed: true})
			s.dirty = true
		}
	}
	if s.firing {
		s.pending.Fire = true
		s.dirty = true
	}
}

// flush sends the pending command. Fire is held state and carries over to
// the next command, everything else is an edge.
func (s *PlayingState) flush(ctx *Context) {
	if !s.dirty {
		return
	}
	s.seq++
	s.pending.Seq = s.seq
	ctx.Send(wire.EncodeCommand(s.pending))
	s.pending = world.Command{Fire: s.pending.Fire, Aim: s.pending.Aim, HasAim: s.pending.HasAim}
	s.dirty = false
}

func (s *PlayingState) Update(ctx *Context, dt float64) Trans {
	s.resync(ctx)
	s.flush(ctx)
	ctx.Replica.Predict(dt, ctx.Config.MaxWalkSpeed)
	return None()
}

// PausedState sits on top of PlayingState while the window is unfocused.
// The replica keeps following the server, input is ignored.
type PausedState struct{}

func NewPausedState() *PausedState {
	return &PausedState{}
}

func (s *PausedState) OnStart(ctx *Context) { log.Println("paused") }
func (s *PausedState) OnStop(ctx *Context) { log.Println("resumed") }

func (s *PausedState) HandleEvent(ctx *Context, ev event.WestinyEvent) Trans {
	switch ev := ev.(type) {
	case event.AppEvent:
		switch ev.Kind {
		case event.ServerPush:
			receive(ctx, ev)
		case event.Disconnected, event.ConnectionFailed:
			return Quit()
		}
	case event.EngineEvent:
		if ev.Kind == event.WindowClosed {
			return Quit()
		}
		if ev.Kind == event.FocusChanged && ev.Focused {
			return Pop()
		}
	}
	return None()
}

func (s *PausedState) Update(ctx *Context, dt float64) Trans {
	return None()
}
