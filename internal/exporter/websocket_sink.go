package exporter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketSink fans out exported events to every connected live-feed
// client: a reader and a writer goroutine per connection, a per-connection send channel so
// a slow client can't block the others.
type WebSocketSink struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewWebSocketSink(log *slog.Logger) *WebSocketSink {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocketSink{log: log, clients: map[*wsClient]bool{}}
}

// ServeHTTP upgrades the request to a websocket connection and registers
// it as a live-feed subscriber until it disconnects.
func (s *WebSocketSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket sink upgrade failed", "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 256)}
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()

	go s.writePump(c)
	go s.readPump(c)
}

// readPump discards incoming messages but detects disconnects: this is a
// push-only feed, there's no client-to-server protocol.
func (s *WebSocketSink) readPump(c *wsClient) {
	defer s.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *WebSocketSink) writePump(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.remove(c)
			return
		}
	}
}

func (s *WebSocketSink) remove(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

// Write implements Sink by broadcasting the batch to every connected
// client as a single JSON array, dropping clients whose send buffer is
// full rather than blocking the flush loop.
func (s *WebSocketSink) Write(ctx context.Context, events []Event) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- raw:
		default:
			s.log.Warn("websocket client send buffer full, dropping")
			delete(s.clients, c)
			close(c.send)
		}
	}
	return nil
}
