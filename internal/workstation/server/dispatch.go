package server

import (
	"context"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
	"github.com/relaymesh/relaymesh/internal/wire"
)

// SetPermissionModeRequest wraps the SetPermissionModePayload with
// the conversationId the local frame transport needs to route it,
// since the wire-level payload itself is scoped by the relay-side
// envelope instead.
type SetPermissionModeRequest struct {
	ConversationId string              `json:"conversationId"`
	Mode           wire.PermissionMode `json:"mode"`
}

// dispatch runs one inbound frame from c against the hub's store and
// session drivers, replying with an "ok" or "error" frame.
func (h *Hub) dispatch(ctx context.Context, c *Client, frame Frame) {
	switch frame.Type {
	case FrameSend:
		h.handleSend(ctx, c, frame)
	case FramePermission:
		h.handlePermission(c, frame)
	case FrameAnswer:
		h.handleAnswer(c, frame)
	case FrameControl:
		h.handleControl(ctx, c, frame)
	case FrameSetPermissionMode:
		h.handleSetPermissionMode(c, frame)
	case FrameListWorkspaces:
		c.sendOk(h.store.Snapshot().Workspaces)
	case FrameListConversations:
		h.handleListConversations(c, frame)
	case FrameGetConversation:
		h.handleGetConversation(c, frame)
	default:
		c.sendError(frame.Type, "unknown frame type")
	}
}

func (h *Hub) handleSend(ctx context.Context, c *Client, frame Frame) {
	var payload wire.ClaudeSendPayload
	if err := decodePayload(frame.Payload, &payload); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	if err := payload.Validate(); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}

	d, err := h.driverFor(payload.ConversationId)
	if err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	h.run(ctx, d, payload.Message)
	c.sendOk(map[string]string{"conversationId": payload.ConversationId, "status": "started"})
}

func (h *Hub) handlePermission(c *Client, frame Frame) {
	var payload wire.ClaudePermissionPayload
	if err := decodePayload(frame.Payload, &payload); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	if err := payload.Validate(); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}

	h.mu.RLock()
	d, ok := h.sessions[payload.ConversationId]
	h.mu.RUnlock()
	if !ok {
		c.sendError(frame.Type, errs.NotFound("no active session for conversation", nil).Error())
		return
	}
	if err := d.ResolvePermission(payload); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	c.sendOk(map[string]string{"conversationId": payload.ConversationId})
}

func (h *Hub) handleAnswer(c *Client, frame Frame) {
	var payload wire.ClaudeAnswerPayload
	if err := decodePayload(frame.Payload, &payload); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	if err := payload.Validate(); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}

	h.mu.RLock()
	d, ok := h.sessions[payload.ConversationId]
	h.mu.RUnlock()
	if !ok {
		c.sendError(frame.Type, errs.NotFound("no active session for conversation", nil).Error())
		return
	}
	if err := d.ResolveAnswer(payload); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	c.sendOk(map[string]string{"conversationId": payload.ConversationId})
}

func (h *Hub) handleControl(ctx context.Context, c *Client, frame Frame) {
	var payload wire.ClaudeControlPayload
	if err := decodePayload(frame.Payload, &payload); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	if err := payload.Validate(); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}

	h.mu.RLock()
	d, ok := h.sessions[payload.ConversationId]
	h.mu.RUnlock()
	if !ok {
		c.sendError(frame.Type, errs.NotFound("no active session for conversation", nil).Error())
		return
	}
	if err := d.Control(ctx, payload.Action); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	c.sendOk(map[string]string{"conversationId": payload.ConversationId})
}

func (h *Hub) handleSetPermissionMode(c *Client, frame Frame) {
	var req SetPermissionModeRequest
	if err := decodePayload(frame.Payload, &req); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}

	h.mu.RLock()
	d, ok := h.sessions[req.ConversationId]
	h.mu.RUnlock()
	if !ok {
		c.sendError(frame.Type, errs.NotFound("no active session for conversation", nil).Error())
		return
	}
	if err := d.SetPermissionMode(req.Mode); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	c.sendOk(map[string]string{"conversationId": req.ConversationId})
}

func (h *Hub) handleListConversations(c *Client, frame Frame) {
	var req struct {
		WorkspaceId string `json:"workspaceId"`
	}
	if err := decodePayload(frame.Payload, &req); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	ws, err := h.store.Workspace(req.WorkspaceId)
	if err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	c.sendOk(ws.Conversations())
}

func (h *Hub) handleGetConversation(c *Client, frame Frame) {
	var req struct {
		EntityId string `json:"entityId"`
	}
	if err := decodePayload(frame.Payload, &req); err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	conv, err := h.store.Conversation(req.EntityId)
	if err != nil {
		c.sendError(frame.Type, err.Error())
		return
	}
	c.sendOk(conv)
}
