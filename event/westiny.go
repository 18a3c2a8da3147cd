package event

import "fmt"

// WestinyEvent is the single event type consumed by the game-state machine.
// It is either an EngineEvent or an AppEvent.
type WestinyEvent interface {
	westinyEvent()
}

type EngineEventKind int

const (
	KeyPressed EngineEventKind = iota
	KeyReleased
	CursorMoved
	FocusChanged
	WindowClosed
)

func (k EngineEventKind) String() string {
	switch k {
	case KeyPressed:
		return "key-pressed"
	case KeyReleased:
		return "key-released"
	case CursorMoved:
		return "cursor-moved"
	case FocusChanged:
		return "focus-changed"
	case WindowClosed:
		return "window-closed"
	}
	return fmt.Sprintf("engine-event(%d)", int(k))
}

// EngineEvent is a window, UI or input event. Keys are already mapped to
// action names by the presentation layer, so nothing here depends on it.
type EngineEvent struct {
	Kind    EngineEventKind
	Action  string
	X, Y    float64
	Focused bool
}

func (EngineEvent) westinyEvent() {}

type AppEventKind int

const (
	// Connected is a successful handshake. Servers see the client's
	// identity and initial data, clients see the server address.
	Connected AppEventKind = iota
	// ConnectionFailed is a handshake that did not complete.
	ConnectionFailed
	// Disconnected is the loss of an established connection.
	Disconnected
	// ServerPush carries an encoded message pushed by the server.
	ServerPush
)

func (k AppEventKind) String() string {
	switch k {
	case Connected:
		return "connected"
	case ConnectionFailed:
		return "connection-failed"
	case Disconnected:
		return "disconnected"
	case ServerPush:
		return "server-push"
	}
	return fmt.Sprintf("app-event(%d)", int(k))
}

// ClientInitialData is what a client announces when it connects.
type ClientInitialData struct {
	Identity string
	Name     string
	Version  string
}

// AppEvent is an application or network notification. It is used by both
// the server and the client.
type AppEvent struct {
	Kind     AppEventKind
	Identity string
	Addr     string
	Initial  ClientInitialData
	Err      error
	Payload  []byte
}

func (AppEvent) westinyEvent() {}

// Poller returns whatever is newly available since its last call.
type Poller interface {
	Poll() []WestinyEvent
}

type sourcePoller[T any] struct {
	src  Source[T]
	id   *ReaderID
	wrap func(T) WestinyEvent
}

func (p *sourcePoller[T]) Poll() []WestinyEvent {
	events := p.src.Read(p.id)
	if len(events) == 0 {
		return nil
	}
	out := make([]WestinyEvent, 0, len(events))
	for _, e := range events {
		out = append(out, p.wrap(e))
	}
	return out
}

// Adapt registers a cursor on src and lifts its events into WestinyEvents.
func Adapt[T WestinyEvent](src Source[T]) Poller {
	return &sourcePoller[T]{
		src:  src,
		id:   src.Register(),
		wrap: func(e T) WestinyEvent { return e },
	}
}

type merged []Poller

func (m merged) Poll() []WestinyEvent {
	var out []WestinyEvent
	for _, p := range m {
		out = append(out, p.Poll()...)
	}
	return out
}

// Merge interleaves pollers. Order is kept within each poller; between
// pollers the earlier argument is drained first.
func Merge(pollers ...Poller) Poller {
	return merged(pollers)
}

// NewWestinyReader gives a consumer its own cursor over both sources.
func NewWestinyReader(engine Source[EngineEvent], app Source[AppEvent]) Poller {
	return Merge(Adapt[EngineEvent](engine), Adapt[AppEvent](app))
}
