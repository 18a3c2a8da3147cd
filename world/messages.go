package world

import (
	"errors"
	"fmt"
)

var ErrMalformedCommand = errors.New("malformed command")

// Action is a movement key edge: a direction being pressed or released.
type Action struct {
	Direction MoveDirection
	Pressed   bool
}

// Command is one decoded client input, tagged with its sender.
type Command struct {
	Sender  string
	Seq     uint64
	Actions []Action
	Aim     Vector
	HasAim  bool
	Fire    bool
	Reload  bool
}

// Validate rejects commands whose actions map to no known intention.
func (c *Command) Validate() error {
	for _, a := range c.Actions {
		if !a.Direction.Valid() {
			return fmt.Errorf("%w: unknown direction %d", ErrMalformedCommand, a.Direction)
		}
	}
	return nil
}

// Message is a server-to-client message.
type Message interface {
	message()
}

// Handshake answers a successful introduction.
type Handshake struct {
	Identity string
	Entity   ID
	Tick     uint64
	Snapshot []EntityState
}

// StateUpdate carries entities created or changed during Tick.
type StateUpdate struct {
	Tick     uint64
	Entities []EntityState
}

// Deletion carries entities removed during Tick.
type Deletion struct {
	Tick uint64
	IDs  []ID
}

func (Handshake) message()   {}
func (StateUpdate) message() {}
func (Deletion) message()    {}

// Outbound addresses a message to one client identity.
type Outbound struct {
	To      string
	Message Message
}
