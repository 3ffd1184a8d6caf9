package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hsebcm/calendar-sync/internal/dataset"
	"github.com/hsebcm/calendar-sync/internal/metrics"
)

// Message is the envelope written to WebSocket clients.
type Message struct {
	Type string           `json:"type"` // "snapshot"
	Data dataset.Snapshot `json:"data"`
}

// wsClient is one connected WebSocket subscriber.
type wsClient struct {
	cfg    Config
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	gone    chan struct{} // closed when the read side fails
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	updates, unsubscribe := s.holder.Subscribe()
	defer unsubscribe()

	c := &wsClient{
		cfg:    s.cfg,
		conn:   conn,
		logger: s.logger.With("remote", r.RemoteAddr),
		gone:   make(chan struct{}),
	}

	metrics.FeedClients.Inc()
	defer metrics.FeedClients.Dec()

	c.logger.Debug("feed client connected")
	c.serve(s.holder.Current(), updates, s.done)
	c.logger.Debug("feed client disconnected")
}

// serve pushes the initial snapshot and every update until the client goes
// away or the server closes.
func (c *wsClient) serve(initial dataset.Snapshot, updates <-chan dataset.Snapshot, done <-chan struct{}) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})
	go c.readLoop()

	if err := c.send(initial); err != nil {
		c.logger.Debug("failed to send initial snapshot", "err", err)
		return
	}

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			c.writeMu.Lock()
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second),
			)
			c.writeMu.Unlock()
			return
		case <-c.gone:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := c.send(snap); err != nil {
				c.logger.Debug("failed to send snapshot", "err", err)
				return
			}
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "err", err)
				return
			}
		}
	}
}

// send writes one snapshot message.
func (c *wsClient) send(snap dataset.Snapshot) error {
	data, err := json.Marshal(Message{Type: "snapshot", Data: snap})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop drains client frames so control messages are processed, and
// closes gone when the connection fails.
func (c *wsClient) readLoop() {
	defer close(c.gone)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
