package server

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"westiny/utils"
	"westiny/wire"
	"westiny/world"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := NewServer(utils.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

// join says hello as identity and ticks the server until the handshake
// arrives.
func join(t *testing.T, ctx context.Context, srv *Server, ts *httptest.Server, identity string) (*websocket.Conn, world.Handshake) {
	t.Helper()
	c, _, err := websocket.Dial(ctx, ts.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	hello := wire.Hello{Identity: identity, Name: "Tester", Version: wire.ProtocolVersion}
	if err := c.Write(ctx, websocket.MessageBinary, wire.EncodeHello(hello)); err != nil {
		t.Fatal(err)
	}

	type result struct {
		b   []byte
		err error
	}
	read := make(chan result, 1)
	go func() {
		_, b, err := c.Read(ctx)
		read <- result{b, err}
	}()

	for {
		srv.onTick()
		select {
		case r := <-read:
			if r.err != nil {
				t.Fatal(r.err)
			}
			msg, err := wire.DecodeServer(r.b)
			if err != nil {
				t.Fatal(err)
			}
			hs, ok := msg.(world.Handshake)
			if !ok {
				t.Fatalf(`first message = %T, want a handshake`, msg)
			}
			return c, hs
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal(ctx.Err())
		}
	}
}

func TestHandshakeOverWebsocket(t *testing.T) {
	srv, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, hs := join(t, ctx, srv, ts, "tester")
	if hs.Identity != "tester" || hs.Entity == 0 {
		t.Fatalf(`handshake = %+v, want an entity for "tester"`, hs)
	}
	if len(hs.Snapshot) == 0 {
		t.Fatalf(`handshake carries an empty snapshot`)
	}
}

func TestIncompatibleVersionRejected(t *testing.T) {
	_, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, ts.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(websocket.StatusNormalClosure, "")
	hello := wire.Hello{Identity: "old", Version: "0.1.0"}
	if err := c.Write(ctx, websocket.MessageBinary, wire.EncodeHello(hello)); err != nil {
		t.Fatal(err)
	}
	_, _, err = c.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusPolicyViolation {
		t.Fatalf(`close status = %v (%v), want %v`, got, err, websocket.StatusPolicyViolation)
	}
}

func TestRejectedHelloKeepsLiveSession(t *testing.T) {
	srv, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, hs := join(t, ctx, srv, ts, "tester")

	c, _, err := websocket.Dial(ctx, ts.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(websocket.StatusNormalClosure, "")
	hello := wire.Hello{Identity: "tester", Version: "0.1.0"}
	if err := c.Write(ctx, websocket.MessageBinary, wire.EncodeHello(hello)); err != nil {
		t.Fatal(err)
	}
	_, _, err = c.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusPolicyViolation {
		t.Fatalf(`close status = %v (%v), want %v`, got, err, websocket.StatusPolicyViolation)
	}

	for i := 0; i < 3; i++ {
		srv.onTick()
	}
	e, ok := srv.sim.Sessions().Lookup("tester")
	if !ok || e.ID() != hs.Entity {
		t.Fatalf(`Lookup("tester") = %v, %v, want entity %d`, e, ok, hs.Entity)
	}
	if !srv.sim.Store().Active(e) {
		t.Fatalf(`entity %v of the live connection was deleted`, e)
	}
	if !srv.live("tester") {
		t.Fatal(`live connection of "tester" was dropped`)
	}
}
