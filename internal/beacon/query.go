package beacon

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/identifier"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/toolmap"
)

// handleQuery delegates to the injected ClaudeAdapter and streams each
// backend message back to the caller as {type:"event", ...} frames
// until the backend's sequence ends.
func (s *Server) handleQuery(ctx context.Context, enc *json.Encoder, req Request) {
	var p QueryPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		_ = enc.Encode(fail(err.Error()))
		return
	}

	eid, err := identifier.Parse(p.ConversationId)
	if err != nil {
		_ = enc.Encode(fail("invalid conversationId: " + err.Error()))
		return
	}
	if _, registered := s.registry.Lookup(eid.PylonID()); !registered {
		_ = enc.Encode(fail("pylon not registered"))
		return
	}
	if s.adapter == nil {
		_ = enc.Encode(fail("query not supported by this beacon instance"))
		return
	}

	msgCh, errCh, cancel, err := s.adapter.Query(ctx, adapter.Options{Prompt: p.Options.Prompt, Resume: p.Options.Resume})
	if err != nil {
		_ = enc.Encode(fail(err.Error()))
		return
	}
	defer cancel.Cancel()

	for {
		select {
		case msg, streaming := <-msgCh:
			if !streaming {
				return
			}
			s.recordToolUse(p.ConversationId, msg)
			_ = enc.Encode(map[string]any{
				"type":           "event",
				"conversationId": p.ConversationId,
				"message":        msg,
			})
		case qerr, streaming := <-errCh:
			if streaming && qerr != nil {
				s.log.Warn("query stream error", zap.Error(qerr))
				_ = enc.Encode(map[string]any{"type": "error", "error": qerr.Error()})
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) recordToolUse(entityId string, msg adapter.Message) {
	if msg.Type != adapter.MessageStreamEvent || msg.StreamEvent == nil {
		return
	}
	start := msg.StreamEvent.ContentBlockStart
	if start == nil || start.Type != "tool_use" || start.ToolUse == nil {
		return
	}
	tu := start.ToolUse
	s.tools.Put(tu.Id, entityId, toolmap.RawToolUse{Type: "tool_use", Id: tu.Id, Name: tu.Name, Input: tu.Input})
}
