package session

import (
	"context"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
	"github.com/relaymesh/relaymesh/internal/wire"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
)

// Control applies a session-control action to the conversation.
// Stop and new_session cancel the active query, if any, and release
// its pending asks; clear empties the log and pending requests;
// compact sends a compact request to the active query.
func (d *Driver) Control(ctx context.Context, action wire.ControlAction) error {
	switch action {
	case wire.ControlStop:
		d.abortInFlight()
		return nil

	case wire.ControlNewSession:
		d.abortInFlight()
		d.conv.SdkSessionId = ""
		d.conv.ClearPendingRequests()
		d.conv.SetStatus(store.StatusIdle)
		return d.checkpoint(ctx)

	case wire.ControlClear:
		d.conv.Log = nil
		d.conv.ClearPendingRequests()
		d.conv.SetStatus(store.StatusIdle)
		return d.checkpoint(ctx)

	case wire.ControlCompact:
		return d.compactActiveQuery()

	default:
		return errs.Validation("unknown control action", nil)
	}
}

// SetPermissionMode changes the conversation's permission mode for
// subsequent canUseTool evaluations.
func (d *Driver) SetPermissionMode(mode wire.PermissionMode) error {
	if !mode.Valid() {
		return errs.Validation("invalid permission mode", nil)
	}
	d.conv.PermissionMode = mode
	return nil
}

func (d *Driver) checkpoint(ctx context.Context) error {
	if d.persist == nil {
		return nil
	}
	if err := d.persist.SaveMessageSession(ctx, d.conv.EntityId, d.conv.Log); err != nil {
		return errs.Internal("checkpoint conversation", err)
	}
	return nil
}
