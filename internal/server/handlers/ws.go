package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/server/mw"
)

type WSHandler struct {
	logger   *zap.Logger
	hub      *events.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler accepts handshakes from the given origins; "*" or an empty list allows any.
func NewWSHandler(logger *zap.Logger, hub *events.Hub, origins []string) *WSHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &WSHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// Subscribe upgrades the request and streams the events addressed to the caller.
func (h *WSHandler) Subscribe(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := events.NewClient(conn, mw.UserID(c), mw.Role(c))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.hub)
}
