package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/wire"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
	"github.com/relaymesh/relaymesh/internal/workstation/toolmap"
)

// fakeAdapter lets tests script the message sequence a query yields.
type fakeAdapter struct {
	messages []adapter.Message
}

type fakeCancel struct{}

func (fakeCancel) Cancel()        {}
func (fakeCancel) Compact() error { return nil }

func (f *fakeAdapter) Query(ctx context.Context, opts adapter.Options) (<-chan adapter.Message, <-chan error, adapter.CancelHandle, error) {
	msgCh := make(chan adapter.Message, len(f.messages)+1)
	for _, m := range f.messages {
		msgCh <- m
	}
	close(msgCh)
	return msgCh, make(chan error), fakeCancel{}, nil
}

func newTestDriver(t *testing.T, ad adapter.ClaudeAdapter) (*Driver, *store.Conversation) {
	conv := store.NewConversation("1:0:1", "test")
	d := NewDriver(conv, ad, toolmap.New(toolmap.DefaultMaxAge), nil, nil, logger.Default())
	return d, conv
}

func TestRunTranslatesAssistantAndResult(t *testing.T) {
	ad := &fakeAdapter{messages: []adapter.Message{
		{Type: adapter.MessageAssistant, Assistant: &adapter.AssistantMessage{Text: "hi there"}},
		{Type: adapter.MessageResult, Result: &adapter.ResultMessage{DurationMs: 42, InputTokens: 5, OutputTokens: 7}},
	}}
	d, conv := newTestDriver(t, ad)

	require.NoError(t, d.Run(context.Background(), "hello"))
	require.Len(t, conv.Log, 2)
	assert.Equal(t, store.LogText, conv.Log[0].Kind)
	assert.Equal(t, "hi there", conv.Log[0].Text)
	assert.Equal(t, store.LogResult, conv.Log[1].Kind)
	assert.Equal(t, int64(42), conv.Log[1].Result.DurationMs)
	assert.Equal(t, store.StatusIdle, conv.Status())
}

func TestCanUseToolBlocksUntilResolved(t *testing.T) {
	d, conv := newTestDriver(t, &fakeAdapter{})
	resultCh := make(chan adapter.PermissionCallbackResult, 1)

	go func() {
		res, err := d.canUseTool(context.Background(), "tu-1", "Bash", map[string]any{"command": "ls"})
		require.NoError(t, err)
		resultCh <- res
	}()

	require.Eventually(t, func() bool { return len(conv.PendingRequests) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, store.StatusPermission, conv.Status())

	require.NoError(t, d.ResolvePermission(wire.ClaudePermissionPayload{
		ConversationId: conv.EntityId, ToolUseId: "tu-1", Decision: wire.DecisionAllow,
	}))

	res := <-resultCh
	assert.Equal(t, adapter.BehaviorAllow, res.Behavior)
	assert.Empty(t, conv.PendingRequests)
}

func TestAllowAllRaisesPermissionMode(t *testing.T) {
	d, conv := newTestDriver(t, &fakeAdapter{})
	go func() { _, _ = d.canUseTool(context.Background(), "tu-2", "Edit", nil) }()

	require.Eventually(t, func() bool { return len(conv.PendingRequests) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, d.ResolvePermission(wire.ClaudePermissionPayload{
		ConversationId: conv.EntityId, ToolUseId: "tu-2", Decision: wire.DecisionAllowAll,
	}))

	require.Eventually(t, func() bool { return conv.PermissionMode == wire.ModeAcceptEdits }, time.Second, time.Millisecond)
}

func TestAskQuestionResolvesWithAnswer(t *testing.T) {
	d, conv := newTestDriver(t, &fakeAdapter{})
	resultCh := make(chan adapter.PermissionCallbackResult, 1)

	go func() {
		res, err := d.canUseTool(context.Background(), "tu-3", askToolName, map[string]any{
			"questions": []any{"continue?"},
		})
		require.NoError(t, err)
		resultCh <- res
	}()

	require.Eventually(t, func() bool { return len(conv.PendingRequests) == 1 }, time.Second, time.Millisecond)
	qr, ok := conv.PendingRequests[0].(store.QuestionRequest)
	require.True(t, ok)
	assert.Equal(t, []string{"continue?"}, qr.Questions)

	require.NoError(t, d.ResolveAnswer(wire.ClaudeAnswerPayload{
		ConversationId: conv.EntityId, ToolUseId: "tu-3", Answer: "yes",
	}))

	res := <-resultCh
	assert.Equal(t, adapter.BehaviorAllow, res.Behavior)
	updated, ok := res.UpdatedInput.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "yes", updated["answer"])
}

func TestCanUseToolAutoAllowSkipsAsk(t *testing.T) {
	d, conv := newTestDriver(t, &fakeAdapter{})
	res, err := d.canUseTool(context.Background(), "tu-5", "Read", map[string]any{"path": "/tmp/x"})
	require.NoError(t, err)
	assert.Equal(t, adapter.BehaviorAllow, res.Behavior)
	assert.Empty(t, conv.PendingRequests)
}

func TestControlClearResetsLog(t *testing.T) {
	d, conv := newTestDriver(t, &fakeAdapter{})
	conv.AppendLog(store.LogEntry{Kind: store.LogText, Text: "leftover"})
	conv.AddPendingRequest(store.PermissionRequest{ToolUseID: "tu-4"})

	require.NoError(t, d.Control(context.Background(), wire.ControlClear))
	assert.Empty(t, conv.Log)
	assert.Empty(t, conv.PendingRequests)
}

func TestSetPermissionModeRejectsInvalid(t *testing.T) {
	d, _ := newTestDriver(t, &fakeAdapter{})
	err := d.SetPermissionMode("bogus")
	assert.Error(t, err)
}

func TestAskPermissionRestoresWorkingStatusAfterResolve(t *testing.T) {
	d, conv := newTestDriver(t, &fakeAdapter{})
	resultCh := make(chan adapter.PermissionCallbackResult, 1)

	conv.SetStatus(store.StatusWorking)
	go func() {
		res, err := d.canUseTool(context.Background(), "tu-6", "Bash", map[string]any{"command": "ls"})
		require.NoError(t, err)
		resultCh <- res
	}()

	require.Eventually(t, func() bool { return conv.Status() == store.StatusPermission }, time.Second, time.Millisecond)

	require.NoError(t, d.ResolvePermission(wire.ClaudePermissionPayload{
		ConversationId: conv.EntityId, ToolUseId: "tu-6", Decision: wire.DecisionAllow,
	}))

	<-resultCh
	assert.Equal(t, store.StatusWorking, conv.Status())
}

// blockingAdapter's Query only returns once ctx is cancelled, letting
// tests exercise Run's cancellation path.
type blockingAdapter struct {
	started chan struct{}
	cancel  *trackingCancel
}

type trackingCancel struct {
	canceled     bool
	compactCalls int
}

func (c *trackingCancel) Cancel()        { c.canceled = true }
func (c *trackingCancel) Compact() error { c.compactCalls++; return nil }

func (a *blockingAdapter) Query(ctx context.Context, opts adapter.Options) (<-chan adapter.Message, <-chan error, adapter.CancelHandle, error) {
	msgCh := make(chan adapter.Message, 1)
	msgCh <- adapter.Message{Type: adapter.MessageAssistant, Assistant: &adapter.AssistantMessage{Text: "working"}}
	if a.started != nil {
		close(a.started)
	}
	go func() {
		<-ctx.Done()
	}()
	return msgCh, make(chan error), a.cancel, nil
}

func TestRunCancellationAppendsAbortedWhenNoResult(t *testing.T) {
	started := make(chan struct{})
	ad := &blockingAdapter{started: started, cancel: &trackingCancel{}}
	d, conv := newTestDriver(t, ad)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, "hello") }()

	require.Eventually(t, func() bool { return len(conv.Log) >= 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	var sawAborted bool
	for _, e := range conv.Log {
		if e.Kind == store.LogAborted {
			sawAborted = true
		}
	}
	assert.True(t, sawAborted)
	assert.Equal(t, store.StatusIdle, conv.Status())
}

func TestControlCompactSendsBackendRequest(t *testing.T) {
	started := make(chan struct{})
	tc := &trackingCancel{}
	ad := &blockingAdapter{started: started, cancel: tc}
	d, _ := newTestDriver(t, ad)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx, "hello") }()
	<-started

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.activeQuery != nil
	}, time.Second, time.Millisecond)

	require.NoError(t, d.Control(context.Background(), wire.ControlCompact))
	assert.Equal(t, 1, tc.compactCalls)
}

func TestControlCompactWithoutActiveQueryErrors(t *testing.T) {
	d, _ := newTestDriver(t, &fakeAdapter{})
	err := d.Control(context.Background(), wire.ControlCompact)
	assert.Error(t, err)
}

func TestControlNewSessionAbortsInFlightQuery(t *testing.T) {
	started := make(chan struct{})
	tc := &trackingCancel{}
	ad := &blockingAdapter{started: started, cancel: tc}
	d, conv := newTestDriver(t, ad)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx, "hello") }()
	<-started

	conv.AddPendingRequest(store.PermissionRequest{ToolUseID: "tu-7"})
	require.NoError(t, d.Control(context.Background(), wire.ControlNewSession))
	assert.True(t, tc.canceled)
	assert.Empty(t, conv.PendingRequests)
}
