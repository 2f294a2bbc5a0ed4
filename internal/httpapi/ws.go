package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fieldops/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Field clients connect from whatever network they are on.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebsocket upgrades the connection, authenticates the token from
// the query string, and joins the handle to the registry. A bad token
// gets an error payload and an immediate close; the handle never joins.
func (s *Server) handleWebsocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARNING: httpapi: websocket upgrade: %v", err)
		return
	}

	actor, err := s.identity.Authenticate(c.Query("token"))
	if err != nil {
		ws.WriteJSON(gin.H{"type": "error", "message": "invalid or expired token"}) //nolint:errcheck
		ws.Close()
		return
	}

	conn := realtime.NewWSConn(ws)
	s.registry.Add(actor.ID, conn)

	// Reader loop: the protocol is push-only, so inbound frames are
	// discarded; a read error means the peer went away.
	go func() {
		defer func() {
			s.registry.Remove(actor.ID, conn.ID())
			conn.Close()
		}()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
