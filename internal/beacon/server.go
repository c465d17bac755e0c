package beacon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/identifier"
	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/toolmap"
)

// requestTimeout is the beacon's nominal per-request timeout. The
// server itself does not apply it: handleConn sets no read deadline,
// so a persistent connection may stay idle indefinitely.
const requestTimeout = 5 * time.Second

// cleanupInterval is the default period of the tool-use-id map's
// scheduled sweep.
const cleanupInterval = 5 * time.Minute

// Config holds the beacon's listen configuration.
type Config struct {
	Port int
}

// DefaultConfig is the default beacon TCP port.
func DefaultConfig() Config { return Config{Port: 9875} }

// Server is the beacon's TCP front end: newline-delimited JSON
// request/response framing over persistent connections, dispatched
// against a Registry and a ClaudeAdapter injected at construction.
type Server struct {
	cfg      Config
	registry *Registry
	tools    *toolmap.Map
	adapter  adapter.ClaudeAdapter
	log      *logger.Logger

	startedAt int64

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// New creates a Server. ad may be nil if query support is not needed
// (e.g. a beacon instance used only for registration/lookup in tests).
func New(cfg Config, registry *Registry, ad adapter.ClaudeAdapter, log *logger.Logger) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		tools:    toolmap.New(toolmap.DefaultMaxAge),
		adapter:  ad,
		log:      log.WithFields(zap.String("component", "beacon-server")),
	}
}

// Start binds the configured port, starts the tool-use-id map's
// scheduled sweep, and serves connections until ctx is cancelled or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("beacon: already running")
	}
	s.mu.Unlock()

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("beacon: listen on %s: %w", addr, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.cfg.Port = tcpAddr.Port
	}

	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.startedAt = time.Now().Unix()
	s.mu.Unlock()

	s.tools.StartCleanup(cleanupInterval)

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	s.log.Info("beacon listening", zap.Int("port", s.cfg.Port))
	go s.acceptLoop(ctx, listener)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				s.log.Warn("accept error", zap.Error(err))
				return
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// Stop closes the listener and the tool-use-id map's sweep goroutine.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.tools.Stop()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(fail("malformed request: " + err.Error()))
			continue
		}
		s.dispatch(ctx, conn, enc, req)
	}
}

func (s *Server) dispatch(ctx context.Context, conn net.Conn, enc *json.Encoder, req Request) {
	switch req.Type {
	case "register":
		s.handleRegister(enc, req)
	case "unregister":
		s.handleUnregister(enc, req)
	case "lookup":
		s.handleLookup(enc, req)
	case "query":
		s.handleQuery(ctx, enc, req)
	case "health":
		s.handleHealth(enc)
	default:
		_ = enc.Encode(fail(fmt.Sprintf("unknown action %q", req.Type)))
	}
}

func (s *Server) handleRegister(enc *json.Encoder, req Request) {
	var p RegisterPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		_ = enc.Encode(fail(err.Error()))
		return
	}
	if err := s.registry.Register(PylonEntry{PylonId: p.PylonId, McpHost: p.McpHost, McpPort: p.McpPort, Env: p.Env}, p.Force); err != nil {
		_ = enc.Encode(fail(err.Error()))
		return
	}
	_ = enc.Encode(ok(nil))
}

func (s *Server) handleUnregister(enc *json.Encoder, req Request) {
	var p UnregisterPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		_ = enc.Encode(fail(err.Error()))
		return
	}
	if err := s.registry.Unregister(p.PylonId); err != nil {
		_ = enc.Encode(fail(err.Error()))
		return
	}
	_ = enc.Encode(ok(nil))
}

func (s *Server) handleLookup(enc *json.Encoder, req Request) {
	var p LookupPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		_ = enc.Encode(fail(err.Error()))
		return
	}
	entry, found := s.tools.Get(p.ToolUseId)
	if !found {
		_ = enc.Encode(fail("not found"))
		return
	}

	var pylonAddress string
	if eid, err := identifier.Parse(entry.EntityId); err == nil {
		if pe, ok := s.registry.Lookup(eid.PylonID()); ok {
			pylonAddress = fmt.Sprintf("%s:%d", pe.McpHost, pe.McpPort)
		}
	}

	_ = enc.Encode(ok(map[string]any{
		"pylonAddress": pylonAddress,
		"entityId":     entry.EntityId,
		"raw":          entry.Raw,
	}))
}

func (s *Server) handleHealth(enc *json.Encoder) {
	_ = enc.Encode(ok(map[string]any{
		"uptimeSeconds":     time.Now().Unix() - s.startedAt,
		"registeredPylons":  s.registry.count(),
		"trackedToolUseIds": s.tools.Len(),
	}))
}
