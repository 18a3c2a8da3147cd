// Package wire encodes the messages exchanged between client and server in
// the protobuf wire format.
package wire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"westiny/world"
)

var (
	ErrUnknownMessage = errors.New("unknown message")
	errWireType       = errors.New("unexpected wire type")
)

// Hello is the first message of every connection.
type Hello struct {
	Identity string
	Name     string
	Version  string
}

// ClientMessage holds exactly one decoded client message.
type ClientMessage struct {
	Hello   *Hello
	Command *world.Command
}

const (
	clientHello   protowire.Number = 1
	clientCommand protowire.Number = 2

	serverHandshake protowire.Number = 1
	serverState     protowire.Number = 2
	serverDelete    protowire.Number = 3
)

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

// walk calls fn for each field of b. fn returns how many bytes of the
// value it consumed, or -1 to skip an unknown field.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m < 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) (int, error) {
	var v uint64
	n, err := consumeVarint(typ, b, &v)
	*dst = protowire.DecodeBool(v)
	return n, err
}

func consumeInt(typ protowire.Type, b []byte, dst *int) (int, error) {
	var v uint64
	n, err := consumeVarint(typ, b, &v)
	*dst = int(v)
	return n, err
}

func consumeFloat(typ protowire.Type, b []byte, dst *float64) (int, error) {
	if typ != protowire.Fixed64Type {
		return 0, errWireType
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = math.Float64frombits(v)
	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, errWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	var v []byte
	n, err := consumeBytes(typ, b, &v)
	*dst = string(v)
	return n, err
}

// EncodeHello frames a Hello as a client message.
func EncodeHello(h Hello) []byte {
	var body []byte
	body = appendString(body, 1, h.Identity)
	body = appendString(body, 2, h.Name)
	body = appendString(body, 3, h.Version)
	return appendMessage(nil, clientHello, body)
}

func decodeHello(b []byte) (*Hello, error) {
	h := &Hello{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &h.Identity)
		case 2:
			return consumeString(typ, b, &h.Name)
		case 3:
			return consumeString(typ, b, &h.Version)
		}
		return -1, nil
	})
	return h, err
}

// EncodeCommand frames a command as a client message. The sender is not
// encoded; the server tags commands with the connection's identity.
func EncodeCommand(c world.Command) []byte {
	var body []byte
	body = appendVarint(body, 1, c.Seq)
	if len(c.Actions) > 0 {
		var packed []byte
		for _, a := range c.Actions {
			packed = protowire.AppendVarint(packed, uint64(a.Direction)<<1|protowire.EncodeBool(a.Pressed))
		}
		body = appendMessage(body, 2, packed)
	}
	body = appendFloat(body, 3, c.Aim.X)
	body = appendFloat(body, 4, c.Aim.Y)
	body = appendBool(body, 5, c.HasAim)
	body = appendBool(body, 6, c.Fire)
	body = appendBool(body, 7, c.Reload)
	return appendMessage(nil, clientCommand, body)
}

func decodeCommand(b []byte) (*world.Command, error) {
	c := &world.Command{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, &c.Seq)
		case 2:
			var packed []byte
			n, err := consumeBytes(typ, b, &packed)
			if err != nil {
				return n, err
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return 0, protowire.ParseError(m)
				}
				packed = packed[m:]
				if v>>1 >= uint64(world.NumMoveDirections) {
					return 0, fmt.Errorf("%w: unknown direction %d", world.ErrMalformedCommand, v>>1)
				}
				c.Actions = append(c.Actions, world.Action{
					Direction: world.MoveDirection(v >> 1),
					Pressed:   v&1 == 1,
				})
			}
			return n, nil
		case 3:
			return consumeFloat(typ, b, &c.Aim.X)
		case 4:
			return consumeFloat(typ, b, &c.Aim.Y)
		case 5:
			return consumeBool(typ, b, &c.HasAim)
		case 6:
			return consumeBool(typ, b, &c.Fire)
		case 7:
			return consumeBool(typ, b, &c.Reload)
		}
		return -1, nil
	})
	return c, err
}

// DecodeClient reads one client message.
func DecodeClient(b []byte) (ClientMessage, error) {
	var msg ClientMessage
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != clientHello && num != clientCommand {
			return -1, nil
		}
		var body []byte
		n, err := consumeBytes(typ, b, &body)
		if err != nil {
			return n, err
		}
		switch num {
		case clientHello:
			msg.Hello, err = decodeHello(body)
		case clientCommand:
			msg.Command, err = decodeCommand(body)
		}
		return n, err
	})
	if err != nil {
		return ClientMessage{}, err
	}
	if msg.Hello == nil && msg.Command == nil {
		return ClientMessage{}, ErrUnknownMessage
	}
	return msg, nil
}

func appendEntity(b []byte, num protowire.Number, s world.EntityState) []byte {
	var body []byte
	body = appendVarint(body, 1, uint64(s.ID))
	body = appendVarint(body, 2, uint64(s.Archetype))
	body = appendString(body, 3, s.Name)
	body = appendFloat(body, 4, s.Position.X)
	body = appendFloat(body, 5, s.Position.Y)
	body = appendFloat(body, 6, s.Rotation)
	body = appendFloat(body, 7, s.Velocity.X)
	body = appendFloat(body, 8, s.Velocity.Y)
	body = appendFloat(body, 9, s.Radius)
	body = appendFloat(body, 10, s.Health)
	body = appendFloat(body, 11, s.MaxHealth)
	body = appendVarint(body, 12, uint64(s.Ammo))
	body = appendVarint(body, 13, uint64(s.Magazine))
	body = appendBool(body, 14, s.Reloading)
	body = appendBool(body, 15, s.Dead)
	body = appendVarint(body, 16, uint64(s.Owner))
	return appendMessage(b, num, body)
}

func decodeEntity(b []byte) (world.EntityState, error) {
	var s world.EntityState
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var v uint64
		switch num {
		case 1:
			n, err := consumeVarint(typ, b, &v)
			s.ID = world.ID(v)
			return n, err
		case 2:
			n, err := consumeVarint(typ, b, &v)
			s.Archetype = world.Archetype(v)
			return n, err
		case 3:
			return consumeString(typ, b, &s.Name)
		case 4:
			return consumeFloat(typ, b, &s.Position.X)
		case 5:
			return consumeFloat(typ, b, &s.Position.Y)
		case 6:
			return consumeFloat(typ, b, &s.Rotation)
		case 7:
			return consumeFloat(typ, b, &s.Velocity.X)
		case 8:
			return consumeFloat(typ, b, &s.Velocity.Y)
		case 9:
			return consumeFloat(typ, b, &s.Radius)
		case 10:
			return consumeFloat(typ, b, &s.Health)
		case 11:
			return consumeFloat(typ, b, &s.MaxHealth)
		case 12:
			return consumeInt(typ, b, &s.Ammo)
		case 13:
			return consumeInt(typ, b, &s.Magazine)
		case 14:
			return consumeBool(typ, b, &s.Reloading)
		case 15:
			return consumeBool(typ, b, &s.Dead)
		case 16:
			n, err := consumeVarint(typ, b, &v)
			s.Owner = world.ID(v)
			return n, err
		}
		return -1, nil
	})
	return s, err
}

// EncodeServer frames a server message.
func EncodeServer(msg world.Message) ([]byte, error) {
	var body []byte
	switch m := msg.(type) {
	case world.Handshake:
		body = appendString(body, 1, m.Identity)
		body = appendVarint(body, 2, uint64(m.Entity))
		body = appendVarint(body, 3, m.Tick)
		for _, s := range m.Snapshot {
			body = appendEntity(body, 4, s)
		}
		return appendMessage(nil, serverHandshake, body), nil
	case world.StateUpdate:
		body = appendVarint(body, 1, m.Tick)
		for _, s := range m.Entities {
			body = appendEntity(body, 2, s)
		}
		return appendMessage(nil, serverState, body), nil
	case world.Deletion:
		body = appendVarint(body, 1, m.Tick)
		if len(m.IDs) > 0 {
			var packed []byte
			for _, id := range m.IDs {
				packed = protowire.AppendVarint(packed, uint64(id))
			}
			body = appendMessage(body, 2, packed)
		}
		return appendMessage(nil, serverDelete, body), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
}

// DecodeServer reads one server message.
func DecodeServer(b []byte) (world.Message, error) {
	var msg world.Message
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num < serverHandshake || num > serverDelete {
			return -1, nil
		}
		var body []byte
		n, err := consumeBytes(typ, b, &body)
		if err != nil {
			return n, err
		}
		switch num {
		case serverHandshake:
			msg, err = decodeHandshake(body)
		case serverState:
			msg, err = decodeState(body)
		case serverDelete:
			msg, err = decodeDeletion(body)
		}
		return n, err
	})
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrUnknownMessage
	}
	return msg, nil
}

func decodeHandshake(b []byte) (world.Handshake, error) {
	var h world.Handshake
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &h.Identity)
		case 2:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			h.Entity = world.ID(v)
			return n, err
		case 3:
			return consumeVarint(typ, b, &h.Tick)
		case 4:
			var body []byte
			n, err := consumeBytes(typ, b, &body)
			if err != nil {
				return n, err
			}
			s, err := decodeEntity(body)
			h.Snapshot = append(h.Snapshot, s)
			return n, err
		}
		return -1, nil
	})
	return h, err
}

func decodeState(b []byte) (world.StateUpdate, error) {
	var u world.StateUpdate
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, &u.Tick)
		case 2:
			var body []byte
			n, err := consumeBytes(typ, b, &body)
			if err != nil {
				return n, err
			}
			s, err := decodeEntity(body)
			u.Entities = append(u.Entities, s)
			return n, err
		}
		return -1, nil
	})
	return u, err
}

func decodeDeletion(b []byte) (world.Deletion, error) {
	var d world.Deletion
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, &d.Tick)
		case 2:
			var packed []byte
			n, err := consumeBytes(typ, b, &packed)
			if err != nil {
				return n, err
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return 0, protowire.ParseError(m)
				}
				packed = packed[m:]
				d.IDs = append(d.IDs, world.ID(v))
			}
			return n, nil
		}
		return -1, nil
	})
	return d, err
}
