// Package game is the client's top-level state machine. States consume the
// merged engine and network event stream.
package game

import (
	"westiny/event"
	"westiny/sim"
)

type TransKind int

const (
	TransNone TransKind = iota
	TransPush
	TransPop
	TransSwitch
	TransQuit
)

// Trans is what a state asks the machine to do next.
type Trans struct {
	Kind  TransKind
	State State
}

func None() Trans { return Trans{} }
func Push(s State) Trans { return Trans{Kind: TransPush, State: s} }
func Pop() Trans { return Trans{Kind: TransPop} }
func Switch(s State) Trans { return Trans{Kind: TransSwitch, State: s} }
func Quit() Trans { return Trans{Kind: TransQuit} }
func (t Trans) IsNone() bool { return t.Kind == TransNone }

type State interface {
	OnStart(ctx *Context)
	OnStop(ctx *Context)
	HandleEvent(ctx *Context, ev event.WestinyEvent) Trans
	Update(ctx *Context, dt float64) Trans
}

// Context is shared by every state.
type Context struct {
	Name     string
	Identity string
	Config   sim.Config
	Replica  *Replica
	// Send hands an encoded client message to the network layer.
	Send func([]byte)
}

// Machine is a stack of states. Only the top one sees events and updates.
type Machine struct {
	ctx    *Context
	events event.Poller
	stack  []State
}

func NewMachine(ctx *Context, events event.Poller, initial State) *Machine {
	m := &Machine{ctx: ctx, events: events}
	m.push(initial)
	return m
}

func (m *Machine) Running() bool {
	return len(m.stack) > 0
}

func (m *Machine) Top() State {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

func (m *Machine) Depth() int {
	return len(m.stack)
}

// Update polls new events, lets the top state handle them and then runs
// its update. It reports whether the machine is still running.
func (m *Machine) Update(dt float64) bool {
	for _, ev := range m.events.Poll() {
		if !m.Running() {
			return false
		}
		m.apply(m.Top().HandleEvent(m.ctx, ev))
	}
	if !m.Running() {
		return false
	}
	m.apply(m.Top().Update(m.ctx, dt))
	return m.Running()
}

func (m *Machine) apply(t Trans) {
	switch t.Kind {
	case TransPush:
		m.push(t.State)
	case TransPop:
		m.pop()
	case TransSwitch:
		m.pop()
		m.push(t.State)
	case TransQuit:
		for m.Running() {
			m.pop()
		}
	}
}

func (m *Machine) push(s State) {
	m.stack = append(m.stack, s)
	s.OnStart(m.ctx)
}

func (m *Machine) pop() {
	if len(m.stack) == 0 {
		return
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	top.OnStop(m.ctx)
}
