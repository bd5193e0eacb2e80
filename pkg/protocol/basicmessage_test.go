package protocol

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriamue/didcomm-mediator/pkg/message"
)

func TestBasicMessageHandlerSkipsUnrelatedType(t *testing.T) {
	h := &BasicMessageHandler{}
	out, err := h.Handle(context.Background(), message.Message{Type: TrustPingType}, nil)
	require.NoError(t, err)
	assert.Equal(t, Skipped, out.Kind)
}

func TestBasicMessageHandlerEchoesThreadFromThID(t *testing.T) {
	h := &BasicMessageHandler{}
	body, err := json.Marshal(map[string]string{"content": "hello"})
	require.NoError(t, err)
	msg := message.Message{ID: message.NewID(), ThID: "thread-1", Type: BasicMessageType, From: "did:key:alice", Body: body}

	out, err := h.Handle(context.Background(), msg, nil)
	require.NoError(t, err)
	require.Equal(t, Send, out.Kind)
	assert.Equal(t, "did:key:alice", out.To)
	assert.Equal(t, "thread-1", out.Out.ThID)
	assert.JSONEq(t, string(body), string(out.Out.Body))
}

func TestBasicMessageHandlerStartsNewThreadWhenThIDEmpty(t *testing.T) {
	h := &BasicMessageHandler{}
	msg := message.Message{ID: message.NewID(), Type: BasicMessageType, From: "did:key:alice"}

	out, err := h.Handle(context.Background(), msg, nil)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, out.Out.ThID)
}

func TestBuildBasicMessageEchoRejectsWrongType(t *testing.T) {
	_, err := BuildBasicMessageEcho(BasicMessageEchoInput{Received: message.Message{Type: TrustPingType}})
	assert.Error(t, err)
}
