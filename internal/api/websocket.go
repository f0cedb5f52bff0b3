package api

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket message types
const (
	EventChat  = "chat"
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// wsClient is one connected chat client.
type wsClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server
	mu     sync.Mutex
}

// handleChatSocket upgrades the connection and streams assistant
// replies chunk by chunk.
func (s *Server) handleChatSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &wsClient{
		conn:   conn,
		send:   make(chan WSMessage, 256),
		server: s,
	}

	s.logger.Debug("websocket client connected")

	go client.readPump()
	go client.writePump()
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.mu.Lock()
		err := c.conn.WriteJSON(msg)
		c.mu.Unlock()

		if err != nil {
			c.server.logger.Warn("websocket write failed", "err", err)
			return
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		close(c.send)
		c.conn.Close()
		c.server.logger.Debug("websocket client disconnected")
	}()

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("websocket read failed", "err", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *wsClient) handleMessage(msg *WSMessage) {
	switch msg.Event {
	case EventChat:
		c.handleChatEvent(msg.Data)
	default:
		c.sendError("unknown event: " + msg.Event)
	}
}

func (c *wsClient) handleChatEvent(data map[string]any) {
	if c.server.advisor == nil {
		c.sendError("chat is not configured")
		return
	}

	message, ok := data["message"].(string)
	if !ok || message == "" {
		c.sendError("message is required")
		return
	}

	err := c.server.advisor.AnswerStream(context.Background(), message, func(chunk string) {
		c.send <- WSMessage{Event: EventChunk, Data: map[string]any{"text": chunk}}
	})
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.send <- WSMessage{Event: EventDone, Data: map[string]any{}}
}

func (c *wsClient) sendError(message string) {
	c.send <- WSMessage{
		Event: EventError,
		Data: map[string]any{
			"error": message,
		},
	}
}
