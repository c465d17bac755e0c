package session

import (
	"context"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
	"github.com/relaymesh/relaymesh/internal/wire"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/permission"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
)

// canUseTool implements adapter.CanUseTool: tools resolved by
// permission.Check's static rules return immediately; anything left
// to "ask" raises a PermissionRequest (or, for the question tool, a
// QuestionRequest) keyed by the backend's own toolUseId, and blocks
// until a caller resolves it.
func (d *Driver) canUseTool(ctx context.Context, toolUseId, toolName string, input any) (adapter.PermissionCallbackResult, error) {
	inputMap, _ := input.(map[string]any)
	decision := permission.Check(toolName, inputMap, d.conv.PermissionMode)

	switch decision {
	case permission.Allow:
		return adapter.PermissionCallbackResult{Behavior: adapter.BehaviorAllow}, nil
	case permission.Deny:
		return adapter.PermissionCallbackResult{Behavior: adapter.BehaviorDeny, Message: "denied by policy"}, nil
	}

	if toolName == askToolName {
		return d.askQuestion(ctx, toolUseId, inputMap)
	}
	return d.askPermission(ctx, toolUseId, toolName, input)
}

func (d *Driver) askPermission(ctx context.Context, toolUseId, toolName string, input any) (adapter.PermissionCallbackResult, error) {
	ch := d.beginAsk(toolUseId)
	d.conv.AddPendingRequest(store.PermissionRequest{ToolUseID: toolUseId, ToolName: toolName, ToolInput: input})
	d.conv.SetStatus(store.StatusPermission)

	res, err := d.awaitAsk(ctx, toolUseId, ch)
	if err != nil {
		return adapter.PermissionCallbackResult{}, err
	}
	d.conv.SetStatus(store.StatusWorking)

	switch res.decision {
	case wire.DecisionDeny:
		return adapter.PermissionCallbackResult{Behavior: adapter.BehaviorDeny, Message: "denied by user"}, nil
	case wire.DecisionAllowAll:
		d.conv.PermissionMode = wire.ModeAcceptEdits
		return adapter.PermissionCallbackResult{Behavior: adapter.BehaviorAllow}, nil
	default:
		return adapter.PermissionCallbackResult{Behavior: adapter.BehaviorAllow}, nil
	}
}

func (d *Driver) askQuestion(ctx context.Context, toolUseId string, input map[string]any) (adapter.PermissionCallbackResult, error) {
	ch := d.beginAsk(toolUseId)
	questions := questionsFrom(input)
	d.conv.AddPendingRequest(store.QuestionRequest{ToolUseID: toolUseId, Questions: questions})
	d.conv.SetStatus(store.StatusPermission)

	res, err := d.awaitAsk(ctx, toolUseId, ch)
	if err != nil {
		return adapter.PermissionCallbackResult{}, err
	}
	d.conv.SetStatus(store.StatusWorking)
	return adapter.PermissionCallbackResult{
		Behavior:     adapter.BehaviorAllow,
		UpdatedInput: map[string]any{"answer": res.answer},
	}, nil
}

func questionsFrom(input map[string]any) []string {
	raw, ok := input["questions"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, q := range raw {
		if s, ok := q.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (d *Driver) beginAsk(toolUseId string) chan resolution {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan resolution, 1)
	d.pending[toolUseId] = ch
	return ch
}

func (d *Driver) awaitAsk(ctx context.Context, toolUseId string, ch chan resolution) (resolution, error) {
	select {
	case res, ok := <-ch:
		d.conv.ResolvePendingRequest(toolUseId)
		if !ok {
			return resolution{}, errs.Internal("ask channel closed before resolution", nil)
		}
		return res, nil
	case <-ctx.Done():
		d.mu.Lock()
		delete(d.pending, toolUseId)
		d.mu.Unlock()
		d.conv.ResolvePendingRequest(toolUseId)
		return resolution{}, ctx.Err()
	}
}

// ResolvePermission fulfils a pending PermissionRequest.
func (d *Driver) ResolvePermission(payload wire.ClaudePermissionPayload) error {
	return d.resolve(payload.ToolUseId, resolution{decision: payload.Decision})
}

// ResolveAnswer fulfils a pending QuestionRequest.
func (d *Driver) ResolveAnswer(payload wire.ClaudeAnswerPayload) error {
	d.conv.AppendLog(store.LogEntry{Kind: store.LogUserResponse, Role: store.RoleUser, ToolUseId: payload.ToolUseId})
	return d.resolve(payload.ToolUseId, resolution{answer: payload.Answer})
}

func (d *Driver) resolve(toolUseId string, res resolution) error {
	d.mu.Lock()
	ch, ok := d.pending[toolUseId]
	if ok {
		delete(d.pending, toolUseId)
	}
	d.mu.Unlock()
	if !ok {
		return errs.NotFound("no pending ask for toolUseId", nil)
	}
	ch <- res
	return nil
}
