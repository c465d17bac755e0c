package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// deltaBuffer coalesces high-frequency textDelta accumulation into
// disk writes on flush boundaries instead of a write per token.
type deltaBuffer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	onFlush  func()
}

func newDeltaBuffer(interval time.Duration, onFlush func()) *deltaBuffer {
	return &deltaBuffer{interval: interval, onFlush: onFlush}
}

// touch records a new delta and arms the flush timer if it is not
// already running.
func (b *deltaBuffer) touch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		return
	}
	b.timer = time.AfterFunc(b.interval, b.fire)
}

func (b *deltaBuffer) fire() {
	b.mu.Lock()
	b.timer = nil
	b.mu.Unlock()
	b.onFlush()
}

// flush forces an immediate flush, used at finalize and turn-end
// boundaries.
func (b *deltaBuffer) flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()
	b.onFlush()
}

// flushDelta is the Driver's onFlush: it saves the conversation's
// message log as a checkpoint. The in-progress textBuffer is not part
// of what it saves.
func (d *Driver) flushDelta() {
	if d.persist == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.persist.SaveMessageSession(ctx, d.conv.EntityId, d.conv.Log); err != nil {
		d.log.Warn("checkpoint flush failed", zap.Error(err))
	}
}
