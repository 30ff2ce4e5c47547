package stream

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/gomega"
	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/experiment"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.GetPreset("pair", "close")
	if cfg == nil {
		t.Fatal("missing preset pair.close")
	}
	sim, err := experiment.Build(cfg, experiment.NewRegistry(), nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return New("pair.close", sim, cfg.Dt, Options{Interval: 5 * time.Millisecond, StepsPerTick: 1})
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var msg Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestServer_InitialFrame(t *testing.T) {
	g := NewWithT(t)
	s := newServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dial(t, ts)
	msg := read(t, conn)
	g.Expect(msg.Type).To(Equal("frame"))
	g.Expect(msg.Scene).To(Equal("pair.close"))
	g.Expect(msg.T).To(BeZero())
	g.Expect(msg.Bodies).To(HaveLen(2))
	g.Expect(msg.Params).To(HaveKey("k"))
}

func TestServer_StreamsAdvancingFrames(t *testing.T) {
	g := NewWithT(t)
	s := newServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	conn := dial(t, ts)
	read(t, conn)
	var last Message
	for range 5 {
		last = read(t, conn)
	}
	g.Expect(last.T).To(BeNumerically(">", 0))

	cancel()
	g.Eventually(done).Should(Receive(BeNil()))
}

func TestServer_Commands(t *testing.T) {
	g := NewWithT(t)
	s := newServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	conn := dial(t, ts)
	read(t, conn)

	g.Expect(conn.WriteJSON(Command{Param: "k", Value: 7})).To(Succeed())
	g.Eventually(func() float64 { return s.Latest().Params["k"] }, time.Second).Should(Equal(7.0))

	paused := true
	g.Expect(conn.WriteJSON(Command{Paused: &paused})).To(Succeed())
	g.Eventually(func() bool { return s.Latest().Paused }, time.Second).Should(BeTrue())
	held := s.Latest().T
	time.Sleep(30 * time.Millisecond)
	g.Expect(s.Latest().T).To(Equal(held))

	g.Expect(conn.WriteJSON(Command{Param: "nope", Value: 1})).To(Succeed())
	g.Eventually(func() string {
		msg := read(t, conn)
		return msg.Error
	}, time.Second).ShouldNot(BeEmpty())
}

func TestServer_State(t *testing.T) {
	g := NewWithT(t)
	s := newServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/state")
	g.Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var msg Message
	g.Expect(json.NewDecoder(resp.Body).Decode(&msg)).To(Succeed())
	g.Expect(msg.Bodies).To(HaveLen(2))
	g.Expect(s.Clients()).To(BeZero())
}

func TestServer_NonFiniteBodyEndsWithError(t *testing.T) {
	g := NewWithT(t)
	s := newServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dial(t, ts)
	read(t, conn)

	id, ok := s.sim.World().FindBody("north")
	g.Expect(ok).To(BeTrue())
	b, _ := s.sim.World().Body(id)
	b.Position[0] = math.NaN()

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	var msg Message
	for msg.Type != "error" {
		msg = read(t, conn)
	}
	g.Expect(msg.Error).To(ContainSubstring("north"))
	g.Expect(msg.Bodies).To(BeEmpty())

	var err error
	g.Eventually(done, time.Second).Should(Receive(&err))
	g.Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue(), "got %v", err)

	resp, err := http.Get(ts.URL + "/state")
	g.Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))
	var state Message
	g.Expect(json.NewDecoder(resp.Body).Decode(&state)).To(Succeed())
	g.Expect(state.Type).To(Equal("error"))
}

func TestServer_SlowClientDoesNotBlockReaders(t *testing.T) {
	g := NewWithT(t)
	s := newServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dial(t, ts)
	read(t, conn)
	g.Eventually(s.Clients).Should(Equal(1))

	s.mu.RLock()
	var stalled *client
	for _, c := range s.clients {
		stalled = c
	}
	s.mu.RUnlock()

	stalled.mu.Lock()
	msg := s.snapshot()
	msg.T = 42
	sent := make(chan struct{})
	go func() {
		s.broadcast(&msg)
		close(sent)
	}()

	polled := make(chan int, 1)
	go func() {
		for s.Latest().T != 42 {
			time.Sleep(time.Millisecond)
		}
		polled <- s.Clients()
	}()
	g.Eventually(polled, time.Second).Should(Receive(Equal(1)))
	g.Consistently(sent, 20*time.Millisecond).ShouldNot(BeClosed())

	stalled.mu.Unlock()
	g.Eventually(sent, time.Second).Should(BeClosed())
	g.Expect(read(t, conn).T).To(Equal(42.0))
}
