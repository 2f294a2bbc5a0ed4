package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSConn wraps a websocket connection as a registry handle. gorilla
// forbids concurrent writers, so Send serializes on a mutex.
type WSConn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

// NewWSConn wraps an upgraded websocket connection, assigning it a
// fresh handle ID.
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{id: uuid.NewString(), ws: ws}
}

func (c *WSConn) ID() string { return c.id }

func (c *WSConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *WSConn) Close() error {
	return c.ws.Close()
}
