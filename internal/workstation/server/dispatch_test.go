package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
	"github.com/relaymesh/relaymesh/internal/workstation/toolmap"
)

type fakeAdapter struct{}

type fakeCancel struct{}

func (fakeCancel) Cancel()        {}
func (fakeCancel) Compact() error { return nil }

func (fakeAdapter) Query(ctx context.Context, opts adapter.Options) (<-chan adapter.Message, <-chan error, adapter.CancelHandle, error) {
	msgCh := make(chan adapter.Message, 1)
	msgCh <- adapter.Message{Type: adapter.MessageAssistant, Assistant: &adapter.AssistantMessage{Text: "ack"}}
	close(msgCh)
	return msgCh, make(chan error), fakeCancel{}, nil
}

func newTestHub(t *testing.T) (*Hub, *Client) {
	st := store.New()
	st.CreateWorkspace("ws-1", "Default")
	_, err := st.CreateConversation("ws-1", "1:0:1", "chat")
	require.NoError(t, err)

	hub := NewHub(st, fakeAdapter{}, toolmap.New(toolmap.DefaultMaxAge), nil, logger.Default())
	c := &Client{send: make(chan []byte, 16), log: logger.Default()}
	hub.addClient(c)
	return hub, c
}

func readFrame(t *testing.T, c *Client) Frame {
	select {
	case data := <-c.send:
		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func TestDispatchSendStartsTurnAndPublishesEvent(t *testing.T) {
	hub, c := newTestHub(t)
	payload, _ := json.Marshal(map[string]string{"conversationId": "1:0:1", "message": "hi"})

	hub.dispatch(context.Background(), c, Frame{Type: FrameSend, Payload: payload})

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		f := readFrame(t, c)
		seen[f.Type] = true
	}
	assert.True(t, seen[FrameOk])
	assert.True(t, seen[FrameEvent])
}

func TestDispatchUnknownFrameTypeErrors(t *testing.T) {
	hub, c := newTestHub(t)
	hub.dispatch(context.Background(), c, Frame{Type: "bogus"})

	errFrame := readFrame(t, c)
	assert.Equal(t, FrameError, errFrame.Type)
}

func TestDispatchListWorkspaces(t *testing.T) {
	hub, c := newTestHub(t)
	hub.dispatch(context.Background(), c, Frame{Type: FrameListWorkspaces})

	frame := readFrame(t, c)
	assert.Equal(t, FrameOk, frame.Type)
}

func TestDispatchPermissionWithoutSessionNotFound(t *testing.T) {
	hub, c := newTestHub(t)
	payload, _ := json.Marshal(map[string]string{"conversationId": "1:0:1", "toolUseId": "tu-1", "decision": "allow"})

	hub.dispatch(context.Background(), c, Frame{Type: FramePermission, Payload: payload})

	errFrame := readFrame(t, c)
	assert.Equal(t, FrameError, errFrame.Type)
}
