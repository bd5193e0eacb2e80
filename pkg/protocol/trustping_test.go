package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
)

func TestTrustPingHandlerSkipsUnrelatedType(t *testing.T) {
	h := &TrustPingHandler{}
	out, err := h.Handle(context.Background(), message.Message{Type: "https://didcomm.org/routing/2.0/forward"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Skipped, out.Kind)
}

func TestTrustPingHandlerClaimsButIgnoresResponse(t *testing.T) {
	h := &TrustPingHandler{}
	out, err := h.Handle(context.Background(), message.Message{Type: TrustPingResponseType}, nil)
	require.NoError(t, err)
	assert.Equal(t, Processed, out.Kind)
}

func TestTrustPingHandlerRepliesToPing(t *testing.T) {
	h := &TrustPingHandler{}
	ping := message.Message{ID: message.NewID(), Type: TrustPingType, From: "did:key:alice"}
	out, err := h.Handle(context.Background(), ping, store.NewMemoryStore(1))
	require.NoError(t, err)
	require.Equal(t, Send, out.Kind)
	assert.Equal(t, "did:key:alice", out.To)
	assert.Equal(t, TrustPingResponseType, out.Out.Type)
	assert.Equal(t, ping.ID, out.Out.ThID)
}

func TestBuildPingResponseRejectsWrongType(t *testing.T) {
	_, err := BuildPingResponse(PingResponseInput{Ping: message.Message{Type: TrustPingResponseType}})
	assert.Error(t, err)
}
