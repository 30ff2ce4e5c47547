// Package stream serves a running simulation to websocket clients. One
// goroutine owns the simulator; clients receive every broadcast frame and
// may send commands that the loop applies between steps.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/magsim/internal/dynamo"
)

// BodyFrame is one body in a broadcast frame.
type BodyFrame struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
}

// Message is what every client receives after each broadcast tick.
type Message struct {
	Type          string             `json:"type"`
	Scene         string             `json:"scene"`
	T             float64            `json:"t"`
	Bodies        []BodyFrame        `json:"bodies"`
	Joints        int                `json:"joints"`
	PeakForce     float64            `json:"peakForce"`
	KineticEnergy float64            `json:"kineticEnergy"`
	Params        map[string]float64 `json:"params"`
	Paused        bool               `json:"paused"`
	Error         string             `json:"error,omitempty"`
}

// Command is a client request. Param/Value tunes a solver parameter; Paused
// toggles stepping.
type Command struct {
	Param  string  `json:"param,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Paused *bool   `json:"paused,omitempty"`
	Step   bool    `json:"step,omitempty"`

	conn *client
}

type Options struct {
	Interval     time.Duration // wall time between broadcasts
	StepsPerTick int
	Logger       *log.Logger
}

func DefaultOptions() Options {
	return Options{Interval: 50 * time.Millisecond, StepsPerTick: 2}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Server broadcasts frames from one simulator.
type Server struct {
	scene string
	sim   *dynamo.Simulator
	dt    float64
	opts  Options
	log   *log.Logger

	upgrader websocket.Upgrader
	commands chan Command

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
	latest  Message
	paused  bool
}

func New(scene string, sim *dynamo.Simulator, dt float64, opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.StepsPerTick <= 0 {
		opts.StepsPerTick = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		scene:    scene,
		sim:      sim,
		dt:       dt,
		opts:     opts,
		log:      logger,
		commands: make(chan Command, 16),
		clients:  make(map[*websocket.Conn]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.latest = s.snapshot()
	return s
}

// Handler exposes /ws for streaming and /state for the latest frame as JSON.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/state", s.handleState)
	return mux
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Latest returns the most recent broadcast.
func (s *Server) Latest() Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	msg := s.Latest()
	data, err := json.Marshal(&msg)
	if err != nil {
		s.log.Printf("stream: state encode: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("stream: upgrade: %v", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[conn] = c
	first := s.latest
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	if err := c.send(&first); err != nil {
		return
	}

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Printf("stream: read: %v", err)
			}
			return
		}
		cmd.conn = c
		select {
		case s.commands <- cmd:
		case <-r.Context().Done():
			return
		}
	}
}

// Run steps the simulator on a ticker and broadcasts after each tick until
// ctx ends or the world becomes invalid.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-s.commands:
			if err := s.apply(cmd); err != nil {
				return err
			}
		case <-ticker.C:
			s.mu.RLock()
			paused := s.paused
			s.mu.RUnlock()
			if !paused {
				for range s.opts.StepsPerTick {
					s.sim.Step(s.dt)
				}
			}
			msg := s.snapshot()
			err := s.validate(&msg)
			s.broadcast(&msg)
			if err != nil {
				return err
			}
		}
	}
}

func (s *Server) apply(cmd Command) error {
	var errMsg string
	switch {
	case cmd.Param != "":
		if err := s.sim.Solver().SetParam(cmd.Param, cmd.Value); err != nil {
			errMsg = err.Error()
		} else {
			s.log.Printf("stream: %s = %g", cmd.Param, cmd.Value)
		}
	case cmd.Paused != nil:
		s.mu.Lock()
		s.paused = *cmd.Paused
		s.mu.Unlock()
	case cmd.Step:
		s.sim.Step(s.dt)
	}

	msg := s.snapshot()
	if err := s.validate(&msg); err != nil {
		s.broadcast(&msg)
		return err
	}
	if errMsg != "" {
		msg.Type = "error"
		msg.Error = errMsg
		if cmd.conn != nil {
			_ = cmd.conn.send(&msg)
		}
		return nil
	}
	s.broadcast(&msg)
	return nil
}

// validate replaces a frame holding a non-finite body with a bare error
// message, which JSON can always encode.
func (s *Server) validate(msg *Message) error {
	for _, b := range msg.Bodies {
		if !finite(b.Position) || !finite(b.Velocity) {
			err := fmt.Errorf("%w: body %s at t=%.3f", dynamo.ErrInvalidState, b.Name, msg.T)
			*msg = Message{
				Type:   "error",
				Scene:  msg.Scene,
				T:      msg.T,
				Joints: msg.Joints,
				Params: msg.Params,
				Paused: msg.Paused,
				Error:  err.Error(),
			}
			return err
		}
	}
	return nil
}

func finite(v [3]float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (s *Server) snapshot() Message {
	f := s.sim.Frame()
	msg := Message{
		Type:          "frame",
		Scene:         s.scene,
		T:             f.T,
		Bodies:        make([]BodyFrame, len(f.Bodies)),
		Joints:        f.Joints,
		PeakForce:     f.PeakForce,
		KineticEnergy: f.KineticEnergy,
		Params:        s.sim.Solver().GetParams(),
	}
	for i, b := range f.Bodies {
		msg.Bodies[i] = BodyFrame{Name: b.Name, Position: b.Position, Velocity: b.Velocity}
	}
	s.mu.RLock()
	msg.Paused = s.paused
	s.mu.RUnlock()
	return msg
}

// broadcast records msg as the latest frame and sends it to every client.
// Writes happen outside the lock.
func (s *Server) broadcast(msg *Message) {
	s.mu.Lock()
	s.latest = *msg
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	var dead []*client
	for _, c := range clients {
		if err := c.send(msg); err != nil {
			s.log.Printf("stream: write: %v", err)
			c.conn.Close()
			dead = append(dead, c)
		}
	}
	if len(dead) == 0 {
		return
	}
	s.mu.Lock()
	for _, c := range dead {
		delete(s.clients, c.conn)
	}
	s.mu.Unlock()
}

// ListenAndServe runs the simulation loop and HTTP server until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- s.Run(ctx)
		cancel()
	}()
	go func() {
		<-ctx.Done()
		shutdown, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdown)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-loopErr
		return err
	}
	return <-loopErr
}
