package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"time"

	_ "embed"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"westiny/event"
	"westiny/metrics"
	"westiny/sim"
	"westiny/utils"
	"westiny/wire"
	"westiny/world"
)

//go:embed maps/arena.map
var arenaMap string

type subscriber struct {
	conn     uuid.UUID
	identity string
	messages chan []byte
	c        *websocket.Conn
}

type Server struct {
	subscribers map[string]*subscriber
	mu          sync.RWMutex
	serveMux    http.ServeMux
	origins     []string
	tickRate    float64

	events  *event.Channel[event.AppEvent]
	monitor *event.ReaderID
	sim     *sim.Simulation
	metrics *metrics.Metrics
}

// NewServer builds the simulation from cfg. The embedded arena is used
// unless cfg names a map file.
func NewServer(cfg *utils.Config) (*Server, error) {
	simCfg, err := cfg.Simulation()
	if err != nil {
		return nil, err
	}
	contents := arenaMap
	if cfg.Server.Map != "" {
		b, err := os.ReadFile(cfg.Server.Map)
		if err != nil {
			return nil, err
		}
		contents = string(b)
	}
	m, err := world.LoadMap(contents)
	if err != nil {
		return nil, fmt.Errorf("loading map: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s := &Server{
		subscribers: make(map[string]*subscriber),
		origins:     cfg.Server.Origins,
		tickRate:    simCfg.TickRate,
		events:      event.NewChannel[event.AppEvent](),
		metrics:     metrics.New(registry),
	}
	s.monitor = s.events.Register()
	s.sim, err = sim.New(simCfg, m, s.events, s.metrics, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return nil, err
	}

	s.serveMux.HandleFunc("/", s.onConnection)
	s.serveMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.serveMux.HandleFunc("/debug/pprof/", pprof.Index)
	s.serveMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	s.serveMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	s.serveMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	s.serveMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return s, nil
}

// Loop runs the simulation at the configured tick rate until ctx ends.
func (s *Server) Loop(ctx context.Context) error {
	tick := time.NewTicker(time.Duration(float64(time.Second) / s.tickRate))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			s.onTick()
		}
	}
}

func (s *Server) onTick() {
	s.sim.Step()
	for _, out := range s.sim.Outbox().Drain() {
		s.publish(out)
	}
	for _, ev := range s.events.Read(s.monitor) {
		s.metrics.Connections.WithLabelValues(ev.Kind.String()).Inc()
	}
}

// publish routes an outbound message to its client. A client that cannot
// keep up is disconnected.
func (s *Server) publish(out world.Outbound) {
	b, err := wire.EncodeServer(out.Message)
	if err != nil {
		log.Println(err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscribers[out.To]
	if !ok {
		return
	}
	select {
	case sub.messages <- b:
	default:
		s.metrics.OutboundDropped.Inc()
		sub.c.Close(websocket.StatusPolicyViolation, "write would block")
	}
}

// addSubscriber makes sub the connection of its identity and returns the
// connection it replaced, if any.
func (s *Server) addSubscriber(sub *subscriber) *subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.subscribers[sub.identity]
	s.subscribers[sub.identity] = sub
	return old
}

// removeSubscriber reports whether sub was still the live connection of
// its identity.
func (s *Server) removeSubscriber(sub *subscriber) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers[sub.identity] != sub {
		return false
	}
	delete(s.subscribers, sub.identity)
	return true
}

func (s *Server) live(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subscribers[identity]
	return ok
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serveMux.ServeHTTP(w, r)
}

func (s *Server) onConnection(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		log.Println(err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "")

	conn := uuid.New()
	err = s.handleConnection(r.Context(), c, conn, r.RemoteAddr)
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
		log.Printf("connection %s from %s closed", conn, r.RemoteAddr)
		return
	}
	log.Printf("connection %s from %s: %v", conn, r.RemoteAddr, err)
}

// hello reads the first message of a connection.
func hello(ctx context.Context, c *websocket.Conn) (*wire.Hello, error) {
	_, b, err := c.Read(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := wire.DecodeClient(b)
	if err != nil {
		return nil, err
	}
	if msg.Hello == nil {
		return nil, errors.New("expected hello")
	}
	return msg.Hello, nil
}

func (s *Server) handleConnection(ctx context.Context, c *websocket.Conn, conn uuid.UUID, addr string) error {
	h, err := hello(ctx, c)
	if err == nil {
		err = wire.CheckVersion(h.Version)
	}
	if err != nil {
		failed := event.AppEvent{Kind: event.ConnectionFailed, Addr: addr, Err: err}
		// A rejected hello must not tear down the session of the live
		// connection it claims to be.
		if h != nil && !s.live(h.Identity) {
			failed.Identity = h.Identity
		}
		s.events.Write(failed)
		c.Close(websocket.StatusPolicyViolation, err.Error())
		return err
	}

	identity := h.Identity
	if identity == "" {
		identity = ksuid.New().String()
	}
	sub := &subscriber{
		conn:     conn,
		identity: identity,
		messages: make(chan []byte, 1024),
		c:        c,
	}
	if old := s.addSubscriber(sub); old != nil {
		log.Printf("%s reconnected, closing connection %s", identity, old.conn)
		old.c.Close(websocket.StatusPolicyViolation, "replaced by a newer connection")
	}
	log.Printf("connection %s from %s is %s (%s)", conn, addr, identity, h.Name)
	s.events.Write(event.AppEvent{
		Kind:     event.Connected,
		Identity: identity,
		Addr:     addr,
		Initial:  event.ClientInitialData{Identity: identity, Name: h.Name, Version: h.Version},
	})
	defer func() {
		if s.removeSubscriber(sub) {
			s.events.Write(event.AppEvent{Kind: event.Disconnected, Identity: identity, Addr: addr})
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.readCommands(ctx, c, identity)
	})
	g.Go(func() error {
		for {
			select {
			case b := <-sub.messages:
				if err := c.Write(ctx, websocket.MessageBinary, b); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	return g.Wait()
}

func (s *Server) readCommands(ctx context.Context, c *websocket.Conn, identity string) error {
	for {
		_, b, err := c.Read(ctx)
		if err != nil {
			return err
		}
		msg, err := wire.DecodeClient(b)
		if err != nil || msg.Command == nil {
			log.Printf("dropping message from %s: %v", identity, err)
			s.metrics.CommandsDropped.WithLabelValues(metrics.ReasonMalformed).Inc()
			continue
		}
		cmd := *msg.Command
		cmd.Sender = identity
		s.sim.Submit(cmd)
	}
}

func Run(args []string) error {
	log.SetFlags(log.LstdFlags | log.Llongfile)
	cfg, err := utils.ReadTOML("config.toml")
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = utils.DefaultConfig(), nil
	}
	if err != nil {
		return err
	}
	if len(args) > 1 {
		cfg.Server.Address = args[1]
	}

	l, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return err
	}
	log.Printf("Listening on http://%v", l.Addr())
	server, err := NewServer(cfg)
	if err != nil {
		return err
	}
	s := &http.Server{
		Handler:      server,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return server.Loop(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Printf("terminating: %v", ctx.Err())
		return s.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
