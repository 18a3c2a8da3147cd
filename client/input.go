package client

import (
	"sort"

	"github.com/hajimehoshi/ebiten/v2"

	"westiny/event"
	"westiny/game"
)

// Bindings maps keys to action names understood by the game states.
var Bindings = map[ebiten.Key]string{
	ebiten.KeyW:      "forward",
	ebiten.KeyS:      "backward",
	ebiten.KeyA:      "strafe_left",
	ebiten.KeyD:      "strafe_right",
	ebiten.KeyR:      game.ActionReload,
	ebiten.KeyQ:      game.ActionQuit,
	ebiten.KeyEscape: game.ActionQuit,
}

// Frame is the raw input state sampled once per update.
type Frame struct {
	Held    map[string]bool
	CursorX float64
	CursorY float64
	Focused bool
	Closing bool
}

// Sample reads the current ebiten input state.
func Sample() Frame {
	f := Frame{Held: make(map[string]bool), Focused: ebiten.IsFocused(), Closing: ebiten.IsWindowBeingClosed()}
	for key, action := range Bindings {
		if ebiten.IsKeyPressed(key) {
			f.Held[action] = true
		}
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		f.Held[game.ActionFire] = true
	}
	x, y := ebiten.CursorPosition()
	f.CursorX, f.CursorY = float64(x), float64(y)
	return f
}

// Input turns consecutive frames into engine events. Only edges produce
// events, so a held key is reported once.
type Input struct {
	held    map[string]bool
	cursorX float64
	cursorY float64
	focused bool
	closed  bool
	started bool
}

func NewInput() *Input {
	return &Input{held: make(map[string]bool), focused: true}
}

func (in *Input) Diff(f Frame) []event.EngineEvent {
	var out []event.EngineEvent
	if f.Closing && !in.closed {
		in.closed = true
		out = append(out, event.EngineEvent{Kind: event.WindowClosed})
	}
	if f.Focused != in.focused {
		in.focused = f.Focused
		out = append(out, event.EngineEvent{Kind: event.FocusChanged, Focused: f.Focused})
	}

	var released, pressed []string
	for action := range in.held {
		if !f.Held[action] {
			released = append(released, action)
		}
	}
	for action := range f.Held {
		if !in.held[action] {
			pressed = append(pressed, action)
		}
	}
	// Map order is random, keep the events stable.
	sort.Strings(released)
	sort.Strings(pressed)
	for _, action := range released {
		delete(in.held, action)
		out = append(out, event.EngineEvent{Kind: event.KeyReleased, Action: action})
	}
	for _, action := range pressed {
		in.held[action] = true
		out = append(out, event.EngineEvent{Kind: event.KeyPressed, Action: action})
	}

	if !in.started || f.CursorX != in.cursorX || f.CursorY != in.cursorY {
		in.started = true
		in.cursorX, in.cursorY = f.CursorX, f.CursorY
		out = append(out, event.EngineEvent{Kind: event.CursorMoved, X: f.CursorX, Y: f.CursorY})
	}
	return out
}
