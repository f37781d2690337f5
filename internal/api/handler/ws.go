package handler

import (
	"net/http"

	"complaintdesk/backend/internal/hub"
	"complaintdesk/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Observers are served cross-origin by the web client.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and registers an observer. A token
// (Bearer header or ?token=) is optional; without one the observer only
// receives the broadcast topic.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString, err := bearerToken(c)
	if err != nil {
		respondUnauthorized(c, err.Error())
		return
	}
	if tokenString == "" {
		tokenString = c.Query("token")
	}

	var identity *models.Identity
	if tokenString != "" {
		identity, err = h.Auth.Parse(tokenString)
		if err != nil {
			respondUnauthorized(c, "invalid token or expired")
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := hub.NewWebSocketClient(h.Hub, conn, identity)
	select {
	case h.Hub.RegisterCh <- client:
	case <-h.Hub.Done():
		conn.Close()
		return
	}
	client.Run()
}
