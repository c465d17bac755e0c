package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
)

func TestHandleSystemEmitsCompactStartThenComplete(t *testing.T) {
	d, conv := newTestDriver(t, &fakeAdapter{})

	d.handleSystem(&adapter.SystemMessage{Subtype: "status", Status: "compacting"})
	preTokens := int64(168833)
	trigger := "auto"
	d.handleSystem(&adapter.SystemMessage{
		Subtype: "compact_boundary",
		CompactMetadata: &adapter.CompactMetadata{
			PreTokens: &preTokens,
			Trigger:   &trigger,
		},
	})

	require.Len(t, conv.Log, 2)
	assert.Equal(t, store.LogCompactStart, conv.Log[0].Kind)
	assert.Equal(t, store.LogCompactComplete, conv.Log[1].Kind)
	require.NotNil(t, conv.Log[1].Compact)
	require.NotNil(t, conv.Log[1].Compact.PreTokens)
	assert.Equal(t, int64(168833), *conv.Log[1].Compact.PreTokens)
	require.NotNil(t, conv.Log[1].Compact.Trigger)
	assert.Equal(t, "auto", *conv.Log[1].Compact.Trigger)
}

func TestHandleSystemCompactBoundaryWithoutMetadataLeavesCompactNil(t *testing.T) {
	d, conv := newTestDriver(t, &fakeAdapter{})

	d.handleSystem(&adapter.SystemMessage{Subtype: "compact_boundary"})

	require.Len(t, conv.Log, 1)
	assert.Equal(t, store.LogCompactComplete, conv.Log[0].Kind)
	assert.Nil(t, conv.Log[0].Compact)
}
