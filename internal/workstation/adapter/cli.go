package adapter

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/pkg/claudecode"
)

// CLIAdapter is the concrete ClaudeAdapter: it drives the AI backend
// as a subprocess speaking the stream-json control protocol over
// stdin/stdout, translating that wire format into the adapter's own
// MessageType vocabulary.
type CLIAdapter struct {
	command string
	args    []string
	log     *logger.Logger
}

// NewCLIAdapter creates a CLIAdapter that launches command with args
// for every Query.
func NewCLIAdapter(command string, args []string, log *logger.Logger) *CLIAdapter {
	return &CLIAdapter{command: command, args: args, log: log}
}

type cancelHandle struct {
	cancel context.CancelFunc
	client *claudecode.Client
}

func (h *cancelHandle) Cancel() { h.cancel() }

// Compact sends a compact control request to the running backend
// process. The resulting status/compact_boundary system messages
// arrive on the query's own message channel.
func (h *cancelHandle) Compact() error {
	return h.client.SendCompactRequest()
}

// Query implements ClaudeAdapter.
func (a *CLIAdapter) Query(ctx context.Context, opts Options) (<-chan Message, <-chan error, CancelHandle, error) {
	qctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(qctx, a.command, a.args...)
	cmd.Dir = opts.Cwd

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("adapter: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("adapter: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("adapter: start: %w", err)
	}

	client := claudecode.NewClient(stdin, stdout, a.log)
	msgCh := make(chan Message, 32)
	errCh := make(chan error, 1)

	client.SetMessageHandler(func(msg *claudecode.CLIMessage) {
		if translated, ok := translateMessage(msg); ok {
			select {
			case msgCh <- translated:
			case <-qctx.Done():
			}
		}
	})

	if opts.CanUseTool != nil {
		client.SetRequestHandler(func(requestID string, req *claudecode.ControlRequest) {
			respondToPermissionRequest(qctx, client, requestID, req, opts.CanUseTool)
		})
	}

	ready := client.Start(qctx)

	go func() {
		<-ready
		if err := client.SendUserMessage(opts.Prompt); err != nil {
			select {
			case errCh <- fmt.Errorf("adapter: send prompt: %w", err):
			default:
			}
		}
	}()

	go func() {
		<-qctx.Done()
		client.Stop()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		close(msgCh)
	}()

	return msgCh, errCh, &cancelHandle{cancel: cancel, client: client}, nil
}

func respondToPermissionRequest(ctx context.Context, client *claudecode.Client, requestID string, req *claudecode.ControlRequest, canUseTool CanUseTool) {
	if req.Subtype != "can_use_tool" {
		return
	}
	result, err := canUseTool(ctx, req.ToolUseID, req.ToolName, req.Input)
	response := &claudecode.ControlResponseMessage{
		Type:      "control_response",
		RequestID: requestID,
	}
	if err != nil {
		response.Response = &claudecode.ControlResponse{Subtype: "error", Error: err.Error()}
	} else {
		response.Response = &claudecode.ControlResponse{
			Subtype: "success",
			Result: &claudecode.PermissionResult{
				Behavior:     string(result.Behavior),
				UpdatedInput: result.UpdatedInput,
				Message:      result.Message,
			},
		}
	}
	_ = client.SendControlResponse(response)
}

// translateMessage implements the backend-message-to-event table
// for the subset of messages the transport itself needs to surface;
// finer-grained state mutation (log entries, status) happens in the
// session driver, not here.
func translateMessage(msg *claudecode.CLIMessage) (Message, bool) {
	switch msg.Type {
	case claudecode.MessageTypeSystem:
		sys := &SystemMessage{Subtype: msg.Subtype, SessionId: msg.SessionID, Status: msg.SessionStatus}
		if msg.Subtype == claudecode.SubtypeCompactBoundary {
			sys.CompactMetadata = &CompactMetadata{PreTokens: msg.PreTokens, Trigger: msg.Trigger}
		}
		return Message{Type: MessageSystem, System: sys}, true

	case claudecode.MessageTypeAssistant:
		if msg.Message == nil {
			return Message{}, false
		}
		text := msg.Message.GetContentString()
		if text == "" {
			for _, b := range msg.Message.GetContentBlocks() {
				if b.Type == "text" {
					text += b.Text
				}
			}
		}
		return Message{Type: MessageAssistant, Assistant: &AssistantMessage{Text: text}}, true

	case claudecode.MessageTypeUser:
		if msg.Message == nil {
			return Message{}, false
		}
		for _, b := range msg.Message.GetContentBlocks() {
			if b.Type == "tool_result" {
				return Message{Type: MessageUser, User: &UserMessage{ToolResult: &ToolResult{
					ToolUseId: b.ToolUseID, Output: b.Content, IsError: b.IsError,
				}}}, true
			}
		}
		return Message{}, false

	case claudecode.MessageTypeResult:
		result := &ResultMessage{
			DurationMs:   msg.DurationMS,
			InputTokens:  msg.TotalInputTokens,
			OutputTokens: msg.TotalOutputTokens,
		}
		return Message{Type: MessageResult, Result: result}, true

	default:
		// stream_event partial deltas are not surfaced by this transport;
		// the session driver works off finalized assistant messages.
		return Message{}, false
	}
}
