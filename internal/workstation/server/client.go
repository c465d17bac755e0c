package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Client is one local UI connection to the hub.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
	log  *logger.Logger
}

func newClient(conn *websocket.Conn, hub *Hub, log *logger.Logger) *Client {
	return &Client{conn: conn, hub: hub, send: make(chan []byte, 256), log: log}
}

// ReadPump decodes inbound frames and dispatches them until the
// connection closes.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.hub.removeClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure) {
				c.log.Debug("read error", zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("", "malformed frame: "+err.Error())
			continue
		}
		go c.hub.dispatch(ctx, c, frame)
	}
}

// WritePump drains c.send to the socket, one message per queued frame,
// keeping the connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendFrame(frame Frame) {
	data, err := marshalFrame(frame)
	if err != nil {
		c.log.Error("marshal frame", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("client send buffer full, dropping frame")
	}
}

func (c *Client) sendError(requestType, message string) {
	frame, _ := newFrame(FrameError, map[string]string{"request": requestType, "error": message})
	c.sendFrame(frame)
}

func (c *Client) sendOk(v any) {
	frame, err := newFrame(FrameOk, v)
	if err != nil {
		c.log.Error("marshal ok frame", zap.Error(err))
		return
	}
	c.sendFrame(frame)
}
