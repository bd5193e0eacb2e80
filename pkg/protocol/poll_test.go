package protocol

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
)

// plainEncryptor marshals a message as JSON instead of performing real
// JWE encryption, enough to exercise a handler's inline-response path
// without envelope's key-agreement machinery.
type plainEncryptor struct{}

func (plainEncryptor) Encrypt(_ context.Context, m message.Message, _ string) ([]byte, error) {
	return json.Marshal(m)
}

func TestPollHandlerSkipsUnrelatedType(t *testing.T) {
	h := &PollHandler{Codec: plainEncryptor{}}
	out, err := h.Handle(context.Background(), message.Message{Type: TrustPingType}, store.NewMemoryStore(1))
	require.NoError(t, err)
	assert.Equal(t, Skipped, out.Kind)
}

func TestPollHandlerRequiresFrom(t *testing.T) {
	h := &PollHandler{Codec: plainEncryptor{}}
	_, err := h.Handle(context.Background(), message.Message{Type: PollRequestType}, store.NewMemoryStore(1))
	assert.Error(t, err)
}

func TestPollHandlerReturnsEmptyResponseWhenQueueEmpty(t *testing.T) {
	h := &PollHandler{Codec: plainEncryptor{}}
	st := store.NewMemoryStore(1)
	req := message.Message{ID: message.NewID(), Type: PollRequestType, From: "did:key:alice"}

	out, err := h.Handle(context.Background(), req, st)
	require.NoError(t, err)
	require.Equal(t, Response, out.Kind)

	var resp message.Message
	require.NoError(t, json.Unmarshal(out.Value, &resp))
	assert.Equal(t, PollResponseType, resp.Type)
	assert.Equal(t, req.ID, resp.ThID)
	assert.Empty(t, resp.Attachments)
}

func TestPollHandlerDrainsOneQueuedMessage(t *testing.T) {
	h := &PollHandler{Codec: plainEncryptor{}}
	st := store.NewMemoryStore(1)
	ctx := context.Background()

	queued := message.Message{ID: message.NewID(), Type: TrustPingType, From: "did:key:bob", To: []string{"did:key:alice"}}
	require.NoError(t, st.InsertMessage(ctx, queued))

	req := message.Message{ID: message.NewID(), Type: PollRequestType, From: "did:key:alice"}
	out, err := h.Handle(ctx, req, st)
	require.NoError(t, err)
	require.Equal(t, Response, out.Kind)

	var resp message.Message
	require.NoError(t, json.Unmarshal(out.Value, &resp))
	require.Len(t, resp.Attachments, 1)

	conn, ok, err := st.Get(ctx, "did:key:alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, conn.Messages)
}

func TestPollHandlerRequiresCodec(t *testing.T) {
	h := &PollHandler{}
	_, err := h.Handle(context.Background(), message.Message{Type: PollRequestType, From: "did:key:alice"}, store.NewMemoryStore(1))
	assert.Error(t, err)
}
