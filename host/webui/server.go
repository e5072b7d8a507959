// Package webui serves a websocket stream of heating telemetry to a
// browser dashboard, the host-side companion to the MCU control loop.
package webui

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Ailikez/rt-soldering-pen/host/mcu"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server broadcasts mcu.Status snapshots to every connected websocket
// client. Feed it from MCU.SetStatusHandler or a simulator loop.
type Server struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewServer constructs an empty broadcast server.
func NewServer() *Server {
	return &Server{clients: make(map[*websocket.Conn]struct{})}
}

// Handler returns the http.HandlerFunc to mount at the websocket endpoint.
func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("webui: upgrade failed: %v", err)
			return
		}

		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()

		// Drain and discard inbound frames; this is a broadcast-only feed.
		go func() {
			defer s.drop(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// Broadcast pushes a status snapshot to every connected client, dropping
// any client whose write fails.
func (s *Server) Broadcast(status mcu.Status) {
	payload, err := json.Marshal(status)
	if err != nil {
		log.Printf("webui: marshal failed: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}
