// Package session drives one conversation's interaction with a
// ClaudeAdapter: it starts a query, translates the backend's message
// vocabulary into store.LogEntry appends and status transitions, and
// arbitrates tool-use permission asks against the permission package
// and the conversation's pendingRequests queue.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/persistence"
	"github.com/relaymesh/relaymesh/internal/sysprompt"
	"github.com/relaymesh/relaymesh/internal/wire"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
	"github.com/relaymesh/relaymesh/internal/workstation/toolmap"
)

// askToolName is the special tool the backend invokes to raise a
// QuestionRequest rather than a plain PermissionRequest.
const askToolName = "AskUserQuestion"

// Event is one notification the driver emits for a conversation, for
// a server-facing listener to fan out as the payload of "event"
// frames.
type Event struct {
	ConversationId string
	Message        adapter.Message
}

// Publisher receives driver events, one per backend message; changes
// to pendingRequests are not published through it. It is deliberately
// narrow so the driver has no dependency on any particular transport.
type Publisher func(Event)

// resolution is what a pending ask is waiting to receive.
type resolution struct {
	decision wire.PermissionDecision
	answer   any
}

// Driver runs the query loop for a single conversation.
type Driver struct {
	conv    *store.Conversation
	adapter adapter.ClaudeAdapter
	tools   *toolmap.Map
	persist *persistence.Persistence
	publish Publisher
	log     *logger.Logger

	mu          sync.Mutex
	pending     map[string]chan resolution
	activeQuery adapter.CancelHandle

	buffer *deltaBuffer
}

// NewDriver builds a Driver for conv. persist and publish may be nil.
func NewDriver(conv *store.Conversation, ad adapter.ClaudeAdapter, tools *toolmap.Map, persist *persistence.Persistence, publish Publisher, log *logger.Logger) *Driver {
	d := &Driver{
		conv:    conv,
		adapter: ad,
		tools:   tools,
		persist: persist,
		publish: publish,
		log:     log.WithFields(zap.String("component", "session-driver"), zap.String("conversationId", conv.EntityId)),
		pending: make(map[string]chan resolution),
	}
	d.buffer = newDeltaBuffer(500*time.Millisecond, d.flushDelta)
	return d
}

// Run starts one backend turn for prompt and drives it to completion.
// It blocks until the turn ends; callers typically run it in its own
// goroutine per the single-execution-line-per-conversation rule.
func (d *Driver) Run(ctx context.Context, prompt string) error {
	d.conv.SetStatus(store.StatusWorking)
	d.conv.WorkStartTime = time.Now().Unix()

	msgCh, errCh, cancel, err := d.adapter.Query(ctx, adapter.Options{
		Prompt:     sysprompt.Inject(d.conv.CustomSystemPrompt, prompt),
		Resume:     d.conv.SdkSessionId,
		CanUseTool: d.canUseTool,
	})
	if err != nil {
		d.conv.SetStatus(store.StatusIdle)
		return errs.Adapter("query failed to start", err)
	}
	d.mu.Lock()
	d.activeQuery = cancel
	d.mu.Unlock()
	defer func() {
		cancel.Cancel()
		d.mu.Lock()
		d.activeQuery = nil
		d.mu.Unlock()
	}()

	var runErr error
	var started, resultSeen, cancelled bool
loop:
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				break loop
			}
			started = true
			if msg.Type == adapter.MessageResult {
				resultSeen = true
			}
			d.handle(msg)
		case err, ok := <-errCh:
			if ok && err != nil {
				runErr = err
				d.appendLog(store.LogEntry{Kind: store.LogError, Error: err.Error(), Timestamp: time.Now().Unix()})
			}
		case <-ctx.Done():
			runErr = ctx.Err()
			cancelled = true
			break loop
		}
	}

	if cancelled && started && !resultSeen {
		d.appendLog(store.LogEntry{Kind: store.LogAborted, Role: store.RoleSystem, Timestamp: time.Now().Unix()})
	}

	d.buffer.flush()
	d.conv.SetStatus(store.StatusIdle)
	d.persistLog(ctx)

	if runErr != nil {
		return runErr
	}
	return nil
}

func (d *Driver) appendLog(entry store.LogEntry) {
	d.conv.AppendLog(entry)
}

func (d *Driver) persistLog(ctx context.Context) {
	if d.persist == nil {
		return
	}
	if err := d.persist.SaveMessageSession(ctx, d.conv.EntityId, d.conv.Log); err != nil {
		d.log.Error("persist message session", zap.Error(err))
	}
}

func (d *Driver) emit(msg adapter.Message) {
	if d.publish != nil {
		d.publish(Event{ConversationId: d.conv.EntityId, Message: msg})
	}
}

// Stop aborts every pending ask for this driver, letting Run's ctx
// cancellation unwind the query. It does not itself cancel the query;
// callers own the context passed to Run.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ch := range d.pending {
		close(ch)
		delete(d.pending, id)
	}
}

// abortInFlight cancels the currently active query, if any, and
// releases every pending ask. It is used by control actions that
// must not hand off to a query already streaming against the old
// session state.
func (d *Driver) abortInFlight() {
	d.mu.Lock()
	active := d.activeQuery
	d.mu.Unlock()
	if active != nil {
		active.Cancel()
	}
	d.Stop()
}

// compactActiveQuery sends a backend compact control request against
// the currently active query, if any.
func (d *Driver) compactActiveQuery() error {
	d.mu.Lock()
	active := d.activeQuery
	d.mu.Unlock()
	if active == nil {
		return errs.Validation("no active query to compact", nil)
	}
	return active.Compact()
}
