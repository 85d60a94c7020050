// Package diag streams engine snapshots to WebSocket inspection clients.
// The engine itself owns no network surface; this server only reads
// snapshots through the Snapshotter interface.
package diag

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"partyframes/overlay"
)

const writeWait = 10 * time.Second

// Snapshotter is the read-only view of the engine the server needs.
type Snapshotter interface {
	Snapshot() overlay.Snapshot
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Server broadcasts snapshots to every connected subscriber on an interval
// and whenever Broadcast is called.
type Server struct {
	engine   Snapshotter
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

// NewServer wraps a snapshot source.
func NewServer(engine Snapshotter) *Server {
	return &Server{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Handler returns the HTTP handler that upgrades to a snapshot stream.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("diagnostics upgrade failed: %v", err)
			return
		}
		sub := &subscriber{conn: conn}
		s.mu.Lock()
		s.subscribers[sub] = struct{}{}
		s.mu.Unlock()

		if err := s.send(sub, s.engine.Snapshot()); err != nil {
			s.drop(sub)
			return
		}

		// Reads are discarded; the stream is one-way. The read loop only
		// notices the peer going away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					s.drop(sub)
					return
				}
			}
		}()
	})
}

// Run broadcasts on the interval until the stop channel closes.
func (s *Server) Run(stop <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			s.closeAll()
			return
		case <-ticker.C:
			s.Broadcast()
		}
	}
}

// Broadcast pushes the current snapshot to every subscriber, dropping the
// ones whose connections fail.
func (s *Server) Broadcast() {
	snapshot := s.engine.Snapshot()

	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if err := s.send(sub, snapshot); err != nil {
			log.Printf("diagnostics send failed: %v", err)
			s.drop(sub)
		}
	}
}

// Subscribers reports the number of connected clients.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Server) send(sub *subscriber, snapshot overlay.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sub.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) drop(sub *subscriber) {
	s.mu.Lock()
	_, ok := s.subscribers[sub]
	if ok {
		delete(s.subscribers, sub)
	}
	s.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.subscribers = make(map[*subscriber]struct{})
	s.mu.Unlock()
	for _, sub := range subs {
		sub.conn.Close()
	}
}
