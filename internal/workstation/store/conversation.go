package store

import (
	"github.com/relaymesh/relaymesh/internal/wire"
)

// Status is one of the three states a Conversation can be in.
// Transitions are driven only by the workstation core.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusWorking    Status = "working"
	StatusPermission Status = "permission"
)

// Usage tracks the realtime token counters surfaced while a turn is
// in flight.
type Usage struct {
	InputTokens         int64  `json:"inputTokens"`
	OutputTokens        int64  `json:"outputTokens"`
	CacheReadTokens     int64  `json:"cacheReadTokens"`
	CacheCreationTokens int64  `json:"cacheCreationTokens"`
	LastUpdatedSide     string `json:"lastUpdatedSide,omitempty"`
}

// PendingRequest is the sum of PermissionRequest and QuestionRequest
//. ToolUseId identifies the pending request it belongs to.
type PendingRequest interface {
	ToolUseId() string
}

// PermissionRequest awaits an allow/deny/allowAll decision for one
// tool use.
type PermissionRequest struct {
	ToolUseID string `json:"toolUseId"`
	ToolName  string `json:"toolName"`
	ToolInput any    `json:"toolInput"`
}

func (r PermissionRequest) ToolUseId() string { return r.ToolUseID }

// QuestionRequest awaits a free-form answer to an AskUserQuestion
// tool use.
type QuestionRequest struct {
	ToolUseID string   `json:"toolUseId"`
	Questions []string `json:"questions"`
}

func (r QuestionRequest) ToolUseId() string { return r.ToolUseID }

// Conversation is one AI-session-coupled thread within a Workspace.
type Conversation struct {
	EntityId string
	Name     string

	SdkSessionId       string
	PermissionMode     wire.PermissionMode
	CustomSystemPrompt string

	Log []LogEntry

	PendingRequests []PendingRequest

	TextBuffer    string
	WorkStartTime int64
	RealtimeUsage Usage

	TotalCount    int
	HasMore       bool
	IsLoadingMore bool

	LinkedDocs []string

	status Status
}

// NewConversation creates a Conversation in the idle state with the
// default permission mode.
func NewConversation(entityId, name string) *Conversation {
	return &Conversation{
		EntityId:       entityId,
		Name:           name,
		PermissionMode: wire.ModeDefault,
		status:         StatusIdle,
	}
}

// Status returns the conversation's current status.
func (c *Conversation) Status() Status { return c.status }

// SetStatus transitions the conversation's status. Transitioning to
// idle always clears textBuffer: a non-empty buffer must never
// coexist with an idle status.
func (c *Conversation) SetStatus(s Status) {
	c.status = s
	if s == StatusIdle {
		c.TextBuffer = ""
	}
}

// AppendLog appends entry to the message log.
func (c *Conversation) AppendLog(entry LogEntry) {
	c.Log = append(c.Log, entry)
}

// AddPendingRequest records a new pending request.
func (c *Conversation) AddPendingRequest(r PendingRequest) {
	c.PendingRequests = append(c.PendingRequests, r)
}

// ResolvePendingRequest removes the pending request with the given
// toolUseId, returning it if found.
func (c *Conversation) ResolvePendingRequest(toolUseId string) (PendingRequest, bool) {
	for i, r := range c.PendingRequests {
		if r.ToolUseId() == toolUseId {
			c.PendingRequests = append(c.PendingRequests[:i], c.PendingRequests[i+1:]...)
			return r, true
		}
	}
	return nil, false
}

// ClearPendingRequests drops every pending request, e.g. on session
// replacement or conversation deletion.
func (c *Conversation) ClearPendingRequests() {
	c.PendingRequests = nil
}
