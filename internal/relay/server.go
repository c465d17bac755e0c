package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/events/bus"
	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// conn is the I/O layer's live handle to one WebSocket connection.
// ClientState is the reducer-facing view of the same connection,
// tracked separately in Server.clients.
type conn struct {
	id   ClientID
	ws   *websocket.Conn
	send chan []byte
}

// Server is the relay's I/O layer: the sole writer of sockets and
// sole mutator of the client registry and index allocator, driving
// every decision through Reduce/HandleDisconnect.
type Server struct {
	mu      sync.RWMutex
	conns   map[ClientID]*conn
	clients map[ClientID]ClientState

	devices   Devices
	allocator *Allocator
	shares    ShareValidator
	presence  bus.EventBus

	startedAt int64
	log       *logger.Logger
}

// NewServer builds a Server over a static device table and an app/viewer
// index pool of the given size.
func NewServer(devices Devices, poolSize int, shares ShareValidator, log *logger.Logger) *Server {
	return &Server{
		conns:     make(map[ClientID]*conn),
		clients:   make(map[ClientID]ClientState),
		devices:   devices,
		allocator: NewAllocator(poolSize),
		shares:    shares,
		startedAt: time.Now().Unix(),
		log:       log.WithFields(zap.String("component", "relay-server")),
	}
}

// HandleWS upgrades r into a WebSocket connection and drives it until
// it closes.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("upgrade failed", zap.Error(err))
		return
	}

	id := ClientID(uuid.New().String())
	c := &conn{id: id, ws: ws, send: make(chan []byte, 256)}

	s.mu.Lock()
	s.conns[id] = c
	s.clients[id] = ClientState{IP: remoteIP(r), ConnectedAt: time.Now().Unix()}
	s.mu.Unlock()

	go s.writePump(c)
	s.readPump(r.Context(), c)
}

func remoteIP(r *http.Request) string {
	if host := r.Header.Get("X-Forwarded-For"); host != "" {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) readPump(ctx context.Context, c *conn) {
	defer s.disconnect(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure) {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		env, err := wire.Decode(data)
		if err != nil {
			s.log.Debug("dropped malformed frame", zap.Error(err))
			continue
		}
		s.dispatch(c.id, env)
	}
}

func (s *Server) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch runs one inbound envelope through the pure reducer and
// applies whatever actions it returns.
func (s *Server) dispatch(id ClientID, env *wire.Envelope) {
	s.mu.RLock()
	client, ok := s.clients[id]
	clientsSnapshot := cloneClients(s.clients)
	allocSnapshot := s.allocator.Snapshot()
	s.mu.RUnlock()
	if !ok {
		return
	}

	actions := Reduce(id, client, env, clientsSnapshot, s.devices, allocSnapshot, s.shares, time.Now().Unix())
	s.apply(actions)
}

func (s *Server) disconnect(c *conn) {
	s.mu.Lock()
	client, ok := s.clients[c.id]
	clientsSnapshot := cloneClients(s.clients)
	s.mu.Unlock()

	if ok {
		actions := HandleDisconnect(c.id, client, clientsSnapshot, time.Now().Unix())
		s.apply(actions)
		if client.Authenticated {
			s.publishPresence(EventDeviceDisconnected, client)
		}
	}

	s.mu.Lock()
	delete(s.clients, c.id)
	delete(s.conns, c.id)
	s.mu.Unlock()

	close(c.send)
}

// apply interprets the reducer's Action union: the only place the
// registry, allocator, or sockets are mutated.
func (s *Server) apply(actions []Action) {
	for _, a := range actions {
		switch act := a.(type) {
		case SendAction:
			s.sendTo(act.To, act.Env)
		case BroadcastAction:
			for _, to := range act.To {
				s.sendTo(to, act.Env)
			}
		case UpdateClientAction:
			s.mu.Lock()
			cs, ok := s.clients[act.Client]
			var updated ClientState
			if ok {
				updated = act.Updates.Apply(cs)
				s.clients[act.Client] = updated
			}
			s.mu.Unlock()
			if ok && !cs.Authenticated && updated.Authenticated {
				s.publishPresence(EventDeviceConnected, updated)
			}
		case AllocateClientIndexAction:
			if err := s.allocator.Commit(act.Index); err != nil {
				s.log.Error("commit index", zap.Error(err))
			}
		case ReleaseClientIndexAction:
			s.allocator.Release(act.Index)
		}
	}
}

func (s *Server) sendTo(id ClientID, env *wire.Envelope) {
	data, err := env.Encode()
	if err != nil {
		s.log.Error("encode envelope", zap.Error(err))
		return
	}
	s.mu.RLock()
	c, ok := s.conns[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		s.log.Warn("client send buffer full, dropping frame", zap.String("client", string(id)))
	}
}

func cloneClients(in map[ClientID]ClientState) map[ClientID]ClientState {
	out := make(map[ClientID]ClientState, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// HealthStatus is the /healthz response body (supplemented feature).
type HealthStatus struct {
	Status      string `json:"status"`
	UptimeSecs  int64  `json:"uptimeSeconds"`
	Connections int    `json:"connections"`
}

// HandleHealth serves a minimal liveness/connection-count endpoint.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	count := len(s.conns)
	s.mu.RUnlock()

	status := HealthStatus{Status: "ok", UptimeSecs: time.Now().Unix() - s.startedAt, Connections: count}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
