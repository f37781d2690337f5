package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	ID       string
	Identity *models.Identity
	Conn     *websocket.Conn
	Hub      *ManagerService
	Send     chan models.Event

	// mu guards closed; acks from readPump and Close from the hub meet here.
	mu     sync.Mutex
	closed bool
}

// NewWebSocketClient wraps conn. identity is nil for anonymous observers.
func NewWebSocketClient(h *ManagerService, conn *websocket.Conn, identity *models.Identity) *WebSocketClient {
	return &WebSocketClient{
		ID:       uuid.NewString(),
		Identity: identity,
		Conn:     conn,
		Hub:      h,
		Send:     make(chan models.Event, config.ClientBufferSize),
	}
}

func (c *WebSocketClient) GetClientID() string                 { return c.ID }
func (c *WebSocketClient) GetIdentity() *models.Identity       { return c.Identity }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump and with it the connection.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ack is written back for every subscription command.
type ack struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Status string `json:"status"`
}

// readPump reads subscription commands until the connection drops.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.Hub.UnregisterCh <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Debug("websocket read failed", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}

		var cmd models.ClientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.Hub.logger.Debug("bad client command", zap.String("client_id", c.ID), zap.Error(err))
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *WebSocketClient) handleCommand(cmd models.ClientCommand) {
	sub := Subscription{Client: c, Topic: cmd.Topic}
	switch cmd.Action {
	case "subscribe":
		if c.Hub.Policy != nil && !c.Hub.Policy.CanSubscribe(context.Background(), c.Identity, cmd.Topic) {
			c.reply(ack{Type: "subscription", Topic: cmd.Topic, Status: "denied"})
			return
		}
	case "unsubscribe":
		sub.Unsubscribe = true
	default:
		c.reply(ack{Type: "subscription", Topic: cmd.Topic, Status: "unknown_action"})
		return
	}

	select {
	case c.Hub.SubscribeCh <- sub:
	case <-c.Hub.Done():
		return
	}
	status := "subscribed"
	if sub.Unsubscribe {
		status = "unsubscribed"
	}
	c.reply(ack{Type: "subscription", Topic: cmd.Topic, Status: status})
}

// reply queues an acknowledgement through the normal event path so only
// writePump writes to the connection.
func (c *WebSocketClient) reply(a ack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- models.Event{Type: models.EventType(a.Type), Payload: a, SentAt: time.Now().UTC()}:
	default:
	}
}

// writePump writes queued events, one JSON message each, and keeps the
// connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
