package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/broadcast"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// inboundMessage is the small client-to-server protocol: clients may
// watch a match to spectate its events.
type inboundMessage struct {
	Type    string `json:"type"` // "watch" or "unwatch"
	MatchID string `json:"matchId,omitempty"`
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	playerID uuid.UUID
	log      *zap.Logger

	mu       sync.RWMutex
	watching uuid.UUID
	closed   bool
}

func NewClient(hub *Hub, conn *websocket.Conn, playerID uuid.UUID, log *zap.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		playerID: playerID,
		log:      log,
	}
}

// wants decides whether the event reaches this client: targeted events go
// to their listed players, match events also to spectators watching that
// match, and untargeted events to everyone.
func (c *Client) wants(evt broadcast.Event) bool {
	if len(evt.Players) == 0 {
		return true
	}
	for _, id := range evt.Players {
		if id == c.playerID {
			return true
		}
	}
	if evt.MatchID != nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.watching == *evt.MatchID
	}
	return false
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket read error", zap.Error(err))
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *inboundMessage) {
	switch msg.Type {
	case "watch":
		matchID, err := uuid.Parse(msg.MatchID)
		if err != nil {
			return
		}
		c.mu.Lock()
		c.watching = matchID
		c.mu.Unlock()
	case "unwatch":
		c.mu.Lock()
		c.watching = uuid.Nil
		c.mu.Unlock()
	}
}
