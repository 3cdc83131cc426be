// SPDX-License-Identifier: MIT
/*
Package control serves the remote control plane over a websocket.

Clients send JSON requests of the form

	{"id": 7, "action": "set/effect", "data": {"device": "Strip", "effect": "Wave"}}

and receive a response carrying the same id:

	{"type": "response", "id": 7, "ok": true}

Rejected requests have "ok": false, an "error" message and a machine
readable "code". Clients that send "preview/subscribe" also receive
{"type": "preview"} messages with the strips' current colors.
*/
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"ledviz/internal/log"
	"ledviz/internal/visualizer"
)

var logger = log.Named("Control")

const (
	sendQueue       = 64
	writeTimeout    = time.Second
	maxMessageBytes = 64 << 10
	shutdownTimeout = 2 * time.Second
)

// Server is the websocket control plane for one Orchestrator.
type Server struct {
	o        *visualizer.Orchestrator
	addr     string
	upgrader websocket.Upgrader
	dropped  *log.Counter

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	preview atomic.Bool
}

// NewServer creates a control server for o listening on addr. When
// previewEvery is positive, every previewEvery-th frame is broadcast to
// subscribed clients.
func NewServer(o *visualizer.Orchestrator, addr string, previewEvery int) *Server {
	s := &Server{
		o:    o,
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // local control panels are served from other origins
			},
		},
		dropped: log.NewCounter(logger, "dropped preview frame", time.Second),
		clients: make(map[*client]struct{}),
	}
	if previewEvery > 0 {
		o.Observe(previewEvery, s.broadcast)
	}
	return s
}

// Handler returns the HTTP handler serving the websocket at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe serves until ctx is done, then closes every client.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Infof("stopped")
	return nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("upgrade error: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	c := &client{
		conn: conn,
		send: make(chan []byte, sendQueue),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	logger.Infof("client %s connected, total: %d", conn.RemoteAddr(), n)

	go s.writeLoop(c)
	s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer s.remove(c)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("read error: %v", err)
			}
			return
		}

		var resp Response
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			resp = Response{Type: typeResponse, Error: "malformed request: " + err.Error(), Code: "bad_request"}
		} else {
			resp = s.dispatch(c, req)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			logger.Errorf("%s: encoding response: %v", req.Action, err)
			continue
		}
		select {
		case c.send <- out:
		case <-c.done:
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debugf("write error: %v", err)
				s.remove(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) remove(c *client) {
	c.once.Do(func() {
		s.mu.Lock()
		delete(s.clients, c)
		n := len(s.clients)
		s.mu.Unlock()
		close(c.done)
		c.conn.Close()
		logger.Infof("client disconnected, total: %d", n)
	})
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		s.remove(c)
	}
}

// broadcast runs on the frame goroutine, so it never waits on a client.
func (s *Server) broadcast(frames []visualizer.Output) {
	s.mu.Lock()
	var targets []*client
	for c := range s.clients {
		if c.preview.Load() {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	msg, err := json.Marshal(newPreview(frames))
	if err != nil {
		logger.Errorf("encoding preview: %v", err)
		return
	}
	for _, c := range targets {
		select {
		case c.send <- msg:
		default:
			s.dropped.Inc(time.Now())
		}
	}
}
