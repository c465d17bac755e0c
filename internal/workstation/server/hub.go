// Package server exposes the workstation's local control surface: a
// thin WebSocket hub that accepts send/permission/answer/control
// frames from a local UI, drives one session.Driver per conversation,
// and fans out the driver's events back to every connected client.
package server

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/persistence"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/session"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
	"github.com/relaymesh/relaymesh/internal/workstation/toolmap"
)

// Hub owns the set of live local-WS clients and the set of active
// session drivers, one per conversation with an in-flight or
// previously started turn.
type Hub struct {
	store   *store.Store
	adapter adapter.ClaudeAdapter
	tools   *toolmap.Map
	persist *persistence.Persistence
	log     *logger.Logger

	mu       sync.RWMutex
	clients  map[*Client]bool
	sessions map[string]*session.Driver
}

// NewHub builds a Hub. persist may be nil (no write-through).
func NewHub(st *store.Store, ad adapter.ClaudeAdapter, tools *toolmap.Map, persist *persistence.Persistence, log *logger.Logger) *Hub {
	return &Hub{
		store:    st,
		adapter:  ad,
		tools:    tools,
		persist:  persist,
		log:      log.WithFields(zap.String("component", "workstation-hub")),
		clients:  make(map[*Client]bool),
		sessions: make(map[string]*session.Driver),
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast fans frame out to every connected client, best-effort.
func (h *Hub) broadcast(frame Frame) {
	data, err := marshalFrame(frame)
	if err != nil {
		h.log.Error("marshal broadcast frame", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("client send buffer full, dropping frame")
		}
	}
}

// driverFor returns the session driver for entityId, creating one
// against the conversation in the store if it doesn't exist yet.
func (h *Hub) driverFor(entityId string) (*session.Driver, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d, ok := h.sessions[entityId]; ok {
		return d, nil
	}
	conv, err := h.store.Conversation(entityId)
	if err != nil {
		return nil, err
	}
	d := session.NewDriver(conv, h.adapter, h.tools, h.persist, h.publish, h.log)
	h.sessions[entityId] = d
	return d, nil
}

// publish implements session.Publisher: it re-wraps the driver event
// as an outbound "event" frame for every connected client.
func (h *Hub) publish(ev session.Event) {
	frame, err := newFrame(FrameEvent, ev)
	if err != nil {
		h.log.Error("marshal driver event", zap.Error(err))
		return
	}
	h.broadcast(frame)
}

// run starts a backend turn for a conversation in its own goroutine,
// so one conversation's turn never blocks the hub's message loop or
// another conversation's turn.
func (h *Hub) run(ctx context.Context, d *session.Driver, prompt string) {
	go func() {
		if err := d.Run(ctx, prompt); err != nil {
			h.log.Warn("conversation turn ended with error", zap.Error(err))
		}
	}()
}
