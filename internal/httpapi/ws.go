package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/meetwatch/internal/bus"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 64
)

// wsClient is one connected event-feed consumer. A slow client drops
// events rather than stalling the feed.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan bus.Event
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// handleEvents upgrades to WebSocket and streams bus events as JSON
// frames until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan bus.Event, wsSendBuffer),
	}
	s.registerClient(client)
	defer func() {
		s.unregisterClient(client)
		client.close()
	}()

	go s.writePump(client)

	// Drain reads so control frames are processed; the feed is one-way.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *wsClient) {
	for evt := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteJSON(evt); err != nil {
			slog.Debug("event feed write failed", "client", c.id, "error", err)
			return
		}
	}
}

func (s *Server) registerClient(c *wsClient) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	slog.Info("event feed client connected", "id", c.id)
}

func (s *Server) unregisterClient(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	slog.Info("event feed client disconnected", "id", c.id)
}

// FanOut forwards bus events to all connected clients until ctx is
// done. Run this once from the serve command.
func (s *Server) FanOut(stop <-chan struct{}) {
	ch := s.events.Subscribe()
	defer s.events.Unsubscribe(ch)

	for {
		select {
		case <-stop:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			s.mu.RLock()
			for _, client := range s.clients {
				select {
				case client.send <- evt:
				default: // slow consumer, drop
				}
			}
			s.mu.RUnlock()
		}
	}
}
