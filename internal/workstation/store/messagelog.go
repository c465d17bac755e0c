package store

// LogEntryKind is the tag of a message-log entry's variant.
type LogEntryKind string

const (
	LogText            LogEntryKind = "text"
	LogToolStart       LogEntryKind = "tool_start"
	LogToolComplete    LogEntryKind = "tool_complete"
	LogError           LogEntryKind = "error"
	LogResult          LogEntryKind = "result"
	LogAborted         LogEntryKind = "aborted"
	LogFileAttachment  LogEntryKind = "file_attachment"
	LogUserResponse    LogEntryKind = "user_response"
	LogCompactStart    LogEntryKind = "compactStart"
	LogCompactComplete LogEntryKind = "compactComplete"
)

// Role is the author of a log entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ResultDetail is the result variant's payload.
type ResultDetail struct {
	DurationMs      int64 `json:"durationMs"`
	InputTokens     int64 `json:"inputTokens"`
	OutputTokens    int64 `json:"outputTokens"`
	CacheReadTokens int64 `json:"cacheReadTokens"`
}

// CompactDetail is the compactComplete variant's payload. Fields are
// nil when the backend did not surface them.
type CompactDetail struct {
	PreTokens *int64  `json:"preTokens,omitempty"`
	Trigger   *string `json:"trigger,omitempty"`
}

// LogEntry is one tagged message-log entry.
type LogEntry struct {
	Id        string       `json:"id"`
	Kind      LogEntryKind `json:"kind"`
	Role      Role         `json:"role"`
	Timestamp int64        `json:"timestamp"`

	Text       string         `json:"text,omitempty"`
	ToolUseId  string         `json:"toolUseId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	ToolInput  any            `json:"toolInput,omitempty"`
	ToolOutput any            `json:"toolOutput,omitempty"`
	Error      string         `json:"error,omitempty"`
	Result     *ResultDetail  `json:"result,omitempty"`
	Compact    *CompactDetail `json:"compact,omitempty"`
	Path       string         `json:"path,omitempty"`
}
