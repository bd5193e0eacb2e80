package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriamue/didcomm-mediator/pkg/message"
)

func TestQueueOrderAndDrain(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	m1 := message.Message{ID: "m1"}
	m2 := message.Message{ID: "m2"}
	m3 := message.Message{ID: "m3"}
	require.NoError(t, s.InsertMessageFor(ctx, "did:test", m1))
	require.NoError(t, s.InsertMessageFor(ctx, "did:test", m2))
	require.NoError(t, s.InsertMessageFor(ctx, "did:test", m3))

	msgs, known, err := s.GetMessages(ctx, "did:test", 2)
	require.NoError(t, err)
	assert.True(t, known)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)

	next, ok, err := s.GetNext(ctx, "did:test")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "m3", next.ID)

	_, ok, err = s.GetNext(ctx, "did:test")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownDID(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	msgs, known, err := s.GetMessages(ctx, "did:unknown", 5)
	require.NoError(t, err)
	assert.False(t, known)
	assert.Nil(t, msgs)

	_, ok, err := s.GetNext(ctx, "did:unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertMessageFansOutToRecipients(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	m := message.Message{ID: "m1", To: []string{"did:a", "did:b"}}
	require.NoError(t, s.InsertMessage(ctx, m))

	connA, ok, err := s.Get(ctx, "did:a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, connA.Messages, 1)

	connB, ok, err := s.Get(ctx, "did:b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, connB.Messages, 1)
}

func TestGetMessagesMoreThanAvailable(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	require.NoError(t, s.InsertMessageFor(ctx, "did:test", message.Message{ID: "only"}))
	msgs, known, err := s.GetMessages(ctx, "did:test", 10)
	require.NoError(t, err)
	assert.True(t, known)
	assert.Len(t, msgs, 1)
}
