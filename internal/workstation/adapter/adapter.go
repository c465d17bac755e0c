// Package adapter defines the ClaudeAdapter capability: the
// external AI backend is wrapped behind a narrow interface so the
// workstation core never depends on a concrete CLI, SDK, or transport.
package adapter

import "context"

// SettingSource is one of the locations an adapter may load
// project/user settings from.
type SettingSource string

const (
	SettingSourceUser    SettingSource = "user"
	SettingSourceProject SettingSource = "project"
	SettingSourceLocal   SettingSource = "local"
)

// DefaultSettingSources is used when Options.SettingSources is nil.
var DefaultSettingSources = []SettingSource{SettingSourceUser, SettingSourceProject, SettingSourceLocal}

// PermissionBehavior is the decision a CanUseTool callback returns.
type PermissionBehavior string

const (
	BehaviorAllow PermissionBehavior = "allow"
	BehaviorDeny  PermissionBehavior = "deny"
)

// PermissionCallbackResult is what CanUseTool resolves to.
type PermissionCallbackResult struct {
	Behavior     PermissionBehavior
	UpdatedInput any
	Message      string
}

// CanUseTool is invoked by the adapter for every tool use that is not
// resolved by its own static rules, letting the workstation core apply
// checkPermission and the ask flow. toolUseId is the backend's own
// correlation id for the pending tool_use block, letting the core key
// a PermissionRequest/QuestionRequest by the same id the backend will
// later reference.
type CanUseTool func(ctx context.Context, toolUseId, toolName string, input any) (PermissionCallbackResult, error)

// CancelHandle is an opaque, cancelable handle to one in-flight query.
type CancelHandle interface {
	Cancel()
	// Compact sends a backend-specific control request asking the
	// backend to compact the conversation history now. It returns an
	// error if the backend cannot be reached; the compaction itself
	// is reported asynchronously via a status/compact_boundary
	// SystemMessage on the query's message channel.
	Compact() error
}

// McpServerConfig is one entry of Options.McpServers, validated
// against the MCP SDK's client config shape by the caller.
type McpServerConfig struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// Options configures one Query call.
type Options struct {
	Prompt                 string
	Cwd                    string
	Resume                 string
	McpServers             map[string]McpServerConfig
	SettingSources         []SettingSource
	CanUseTool             CanUseTool
	IncludePartialMessages bool
}

// MessageType is the discriminator of a backend message.
type MessageType string

const (
	MessageSystem      MessageType = "system"
	MessageAssistant   MessageType = "assistant"
	MessageUser        MessageType = "user"
	MessageStreamEvent MessageType = "stream_event"
	MessageResult      MessageType = "result"
)

// Message is one event in the lazy sequence a Query returns. Exactly
// one of the typed payload fields below is populated, matching Type.
type Message struct {
	Type MessageType

	System      *SystemMessage
	Assistant   *AssistantMessage
	User        *UserMessage
	StreamEvent *StreamEvent
	Result      *ResultMessage
}

// SystemMessage carries session lifecycle and status subtypes.
type SystemMessage struct {
	Subtype         string
	SessionId       string
	Status          string
	CompactMetadata *CompactMetadata
}

// CompactMetadata is attached to a compact_boundary system message;
// missing fields surface as absent (nil), not zero values.
type CompactMetadata struct {
	PreTokens *int64
	Trigger   *string
}

// AssistantMessage is a finalized assistant turn.
type AssistantMessage struct {
	Text string
}

// UserMessage may carry a tool_result.
type UserMessage struct {
	ToolResult *ToolResult
}

// ToolResult is the outcome of a tool invocation, matched back to its
// tool_start by ToolUseId.
type ToolResult struct {
	ToolUseId string
	Output    any
	IsError   bool
}

// StreamEvent carries the fine-grained streaming deltas.
type StreamEvent struct {
	ContentBlockStart *ContentBlockStart
	TextDelta         *string
}

// ContentBlockStart signals the start of a content block; ToolUse is
// populated when Type == "tool_use".
type ContentBlockStart struct {
	Type    string
	ToolUse *ToolUse
}

// ToolUse is the tool_use block payload: an externally generated,
// assumed-globally-unique id within its operational window.
type ToolUse struct {
	Id    string
	Name  string
	Input any
}

// ResultMessage is the final per-turn summary.
type ResultMessage struct {
	DurationMs      int64
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
}

// ClaudeAdapter is the capability boundary between the workstation
// core and whatever concretely drives the AI backend.
type ClaudeAdapter interface {
	// Query starts a backend turn and returns a lazy sequence of
	// messages. The channel is closed when the turn ends (result,
	// error, or cancellation); errors are delivered out-of-band via
	// errCh.
	Query(ctx context.Context, opts Options) (<-chan Message, <-chan error, CancelHandle, error)
}
