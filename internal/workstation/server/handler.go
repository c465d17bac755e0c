package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades local HTTP connections into hub clients.
type Handler struct {
	hub *Hub
	log *logger.Logger
}

// NewHandler builds a Handler serving hub.
func NewHandler(hub *Hub, log *logger.Logger) *Handler {
	return &Handler{hub: hub, log: log.WithFields(zap.String("component", "workstation-server"))}
}

// HandleConnection upgrades r and drives the resulting connection
// until it closes.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn, h.hub, h.log)
	h.hub.addClient(c)

	go c.WritePump()
	c.ReadPump(r.Context())
}
