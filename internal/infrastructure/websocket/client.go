package websocket

import (
	"github.com/gorilla/websocket"

	"kinmel/internal/domain/entity"
	"kinmel/pkg/logger"
)

// Session is attached to a connection at handshake time and never changes
// for the connection's lifetime.
type Session struct {
	ConnID string
	UserID string
	Role   entity.Role
}

// Client is one live websocket connection.
type Client struct {
	Session
	Conn *websocket.Conn
	Send chan []byte
}

// ReadPump reads frames off the connection and feeds them to the event
// handler. Returning unregisters the client, which is the disconnect signal.
func (c *Client) ReadPump(m *Manager, handler *EventHandler) {
	defer func() {
		m.Unregister(c)
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket: read error for user %s: %v", c.UserID, err)
			}
			break
		}

		handler.HandleEvent(c, raw)
	}
}

// WritePump drains the send channel onto the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		raw, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			logger.Warn("websocket: write error for user %s: %v", c.UserID, err)
			return
		}
	}
}
