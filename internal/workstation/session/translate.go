package session

import (
	"time"

	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
)

// handle translates one backend message into log-entry appends and
// status transitions, then forwards the raw
// message to any publisher.
func (d *Driver) handle(msg adapter.Message) {
	switch msg.Type {
	case adapter.MessageSystem:
		d.handleSystem(msg.System)

	case adapter.MessageAssistant:
		d.buffer.flush()
		d.appendLog(store.LogEntry{
			Kind: store.LogText, Role: store.RoleAssistant,
			Timestamp: time.Now().Unix(), Text: msg.Assistant.Text,
		})

	case adapter.MessageUser:
		if msg.User != nil && msg.User.ToolResult != nil {
			d.appendLog(store.LogEntry{
				Kind: store.LogToolComplete, Role: store.RoleAssistant,
				Timestamp: time.Now().Unix(),
				ToolUseId: msg.User.ToolResult.ToolUseId,
				ToolOutput: msg.User.ToolResult.Output,
				Error: toolResultError(msg.User.ToolResult),
			})
		}

	case adapter.MessageStreamEvent:
		d.handleStreamEvent(msg.StreamEvent)

	case adapter.MessageResult:
		d.buffer.flush()
		d.appendLog(store.LogEntry{
			Kind: store.LogResult, Role: store.RoleSystem,
			Timestamp: time.Now().Unix(),
			Result: &store.ResultDetail{
				DurationMs:      msg.Result.DurationMs,
				InputTokens:     msg.Result.InputTokens,
				OutputTokens:    msg.Result.OutputTokens,
				CacheReadTokens: msg.Result.CacheReadTokens,
			},
		})
		d.conv.RealtimeUsage = store.Usage{
			InputTokens:  msg.Result.InputTokens,
			OutputTokens: msg.Result.OutputTokens,
			CacheReadTokens: msg.Result.CacheReadTokens,
		}
	}

	d.emit(msg)
}

func toolResultError(r *adapter.ToolResult) string {
	if r.IsError {
		if s, ok := r.Output.(string); ok {
			return s
		}
		return "tool reported an error"
	}
	return ""
}

const compactingStatus = "compacting"

func (d *Driver) handleSystem(sys *adapter.SystemMessage) {
	if sys == nil {
		return
	}
	if sys.SessionId != "" {
		d.conv.SdkSessionId = sys.SessionId
	}
	switch {
	case sys.Subtype == "status" && sys.Status == compactingStatus:
		d.appendLog(store.LogEntry{
			Kind: store.LogCompactStart, Role: store.RoleSystem,
			Timestamp: time.Now().Unix(),
		})
	case sys.Subtype == "compact_boundary":
		var detail *store.CompactDetail
		if sys.CompactMetadata != nil {
			detail = &store.CompactDetail{
				PreTokens: sys.CompactMetadata.PreTokens,
				Trigger:   sys.CompactMetadata.Trigger,
			}
		}
		d.appendLog(store.LogEntry{
			Kind: store.LogCompactComplete, Role: store.RoleSystem,
			Timestamp: time.Now().Unix(), Compact: detail,
		})
	}
}

// handleStreamEvent accumulates text deltas into the conversation's
// textBuffer, coalescing disk writes via the flush ticker instead of
// persisting on every token.
func (d *Driver) handleStreamEvent(ev *adapter.StreamEvent) {
	if ev == nil {
		return
	}
	if ev.TextDelta != nil {
		d.conv.TextBuffer += *ev.TextDelta
		d.buffer.touch()
		return
	}
	if ev.ContentBlockStart != nil && ev.ContentBlockStart.Type == "tool_use" && ev.ContentBlockStart.ToolUse != nil {
		tu := ev.ContentBlockStart.ToolUse
		d.tools.Put(tu.Id, d.conv.EntityId, toolmapRaw(tu))
		d.appendLog(store.LogEntry{
			Kind: store.LogToolStart, Role: store.RoleAssistant,
			Timestamp: time.Now().Unix(),
			ToolUseId: tu.Id, ToolName: tu.Name, ToolInput: tu.Input,
		})
	}
}
