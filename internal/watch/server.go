package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeusync/enemyai/internal/core/npc"
	"github.com/zeusync/enemyai/internal/core/observability/log"
	"github.com/zeusync/enemyai/internal/core/world"
)

const writeWait = 5 * time.Second

// Frame is the JSON document pushed to watchers after every tick.
type Frame struct {
	Tick       uint64              `json:"tick"`
	DurationMS float64             `json:"duration_ms"`
	Evaluated  int                 `json:"evaluated"`
	States     map[string]int      `json:"states"`
	Published  int                 `json:"published"`
	World      world.Snapshot      `json:"world"`
	Trees      []TreeState         `json:"trees,omitempty"`
	Damage     []world.DamageEvent `json:"damage,omitempty"`
}

// TreeState is the root result of one entity's tree.
type TreeState struct {
	Entity   npc.EntityID `json:"entity"`
	Template string       `json:"template"`
	State    string       `json:"state"`
}

// NewFrame assembles a frame from a tick report and the world after it.
func NewFrame(report npc.TickReport, snap world.Snapshot, trees []npc.EntityState, damage []world.DamageEvent) Frame {
	states := make(map[string]int, len(report.States))
	for st, n := range report.States {
		states[st.String()] = n
	}
	ts := make([]TreeState, 0, len(trees))
	for _, t := range trees {
		ts = append(ts, TreeState{Entity: t.Entity, Template: t.Template, State: t.State.String()})
	}
	return Frame{
		Tick:       report.Tick,
		DurationMS: float64(report.Duration.Microseconds()) / 1000,
		Evaluated:  report.Evaluated,
		States:     states,
		Published:  report.Published,
		World:      snap,
		Trees:      ts,
		Damage:     damage,
	}
}

// CommandFunc handles a text command sent by a watcher, e.g. "respawn".
type CommandFunc func(cmd string)

type Option func(*Server)

func WithLogger(l log.Log) Option {
	return func(s *Server) { s.logger = l }
}

func WithCommandHandler(fn CommandFunc) Option {
	return func(s *Server) { s.onCommand = fn }
}

// Server streams tick frames to websocket clients on /ws. Extra handlers,
// such as the metrics endpoint, can be mounted with Handle.
type Server struct {
	addr      string
	mux       *http.ServeMux
	hub       *hub
	upgrader  websocket.Upgrader
	logger    log.Log
	onCommand CommandFunc
	srv       *http.Server
}

func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		mux:      http.NewServeMux(),
		hub:      newHub(),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   log.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("/ws", s.serveWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return s
}

// Handle mounts h on pattern.
func (s *Server) Handle(pattern string, h http.Handler) { s.mux.Handle(pattern, h) }

func (s *Server) Handler() http.Handler { return s.mux }

// Clients is the number of connected watchers.
func (s *Server) Clients() int { return s.hub.len() }

// Dropped counts frames skipped because a watcher fell behind.
func (s *Server) Dropped() uint64 {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.hub.dropped
}

// Publish marshals v once and queues it for every watcher.
func (s *Server) Publish(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	s.hub.broadcast(b)
	return nil
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", log.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.hub.add(c)
	s.logger.Debug("watcher connected", log.String("remote", r.RemoteAddr))

	defer func() {
		s.hub.remove(c)
		_ = conn.Close()
		s.logger.Debug("watcher disconnected", log.String("remote", r.RemoteAddr))
	}()

	go s.readCommands(c)

	for b := range c.send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(writeWait))
}

// readCommands consumes client messages until the connection closes.
func (s *Server) readCommands(c *client) {
	defer s.hub.remove(c)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(string(msg))
		if cmd == "" || s.onCommand == nil {
			continue
		}
		s.logger.Info("watcher command", log.String("command", cmd))
		s.onCommand(cmd)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("watch server listening", log.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown watch server: %w", err)
	}
	return nil
}
