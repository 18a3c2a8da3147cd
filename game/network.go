package game

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"westiny/event"
)

// Network owns the websocket to the server. Everything it observes is
// written to the app event channel; outgoing messages go through Send.
type Network struct {
	addr   string
	events *event.Channel[event.AppEvent]
	out    chan []byte
}

func NewNetwork(addr string, events *event.Channel[event.AppEvent]) *Network {
	return &Network{
		addr:   addr,
		events: events,
		out:    make(chan []byte, 1024),
	}
}

// Send queues b for the server. It never blocks the game loop.
func (n *Network) Send(b []byte) {
	select {
	case n.out <- b:
	default:
		log.Printf("dropping outgoing message, queue is full")
	}
}

// Run dials the server and pumps messages until the connection or ctx
// ends.
func (n *Network) Run(ctx context.Context) error {
	c, _, err := websocket.Dial(ctx, "ws://"+n.addr, nil)
	if err != nil {
		n.events.Write(event.AppEvent{Kind: event.ConnectionFailed, Addr: n.addr, Err: err})
		return err
	}
	defer c.Close(websocket.StatusInternalError, "")
	n.events.Write(event.AppEvent{Kind: event.Connected, Addr: n.addr})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			typ, b, err := c.Read(gctx)
			if err != nil {
				return err
			}
			if typ != websocket.MessageBinary || len(b) == 0 {
				continue
			}
			n.events.Write(event.AppEvent{Kind: event.ServerPush, Addr: n.addr, Payload: b})
		}
	})
	g.Go(func() error {
		for {
			select {
			case b := <-n.out:
				if err := c.Write(gctx, websocket.MessageBinary, b); err != nil {
					return err
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	err = g.Wait()
	n.events.Write(event.AppEvent{Kind: event.Disconnected, Addr: n.addr, Err: err})
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
		c.Close(websocket.StatusNormalClosure, "")
		return nil
	}
	return err
}
