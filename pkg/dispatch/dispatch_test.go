package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriamue/didcomm-mediator/internal/logger"
	"github.com/chriamue/didcomm-mediator/pkg/didresolver"
	"github.com/chriamue/didcomm-mediator/pkg/envelope"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/protocol"
	"github.com/chriamue/didcomm-mediator/pkg/store"
	"github.com/chriamue/didcomm-mediator/pkg/wallet"
)

func newTestDispatcher(t *testing.T, mediator *wallet.Wallet) (*Dispatcher, *envelope.Codec, store.Store) {
	t.Helper()
	resolver := didresolver.NewMultiMethodResolver()
	codec := envelope.NewCodec(resolver)
	st := store.NewMemoryStore(4)
	chain := protocol.NewChain(protocol.Deps{Wallet: mediator, Codec: codec})
	return New(codec, chain, st, mediator.PrivateKey(), logger.NewDefaultLogger()), codec, st
}

func TestDispatchTrustPingInlineReturnRoute(t *testing.T) {
	mediator, err := wallet.Generate()
	require.NoError(t, err)
	alice, err := wallet.Generate()
	require.NoError(t, err)
	d, codec, _ := newTestDispatcher(t, mediator)

	mediatorDID, err := mediator.DID()
	require.NoError(t, err)
	aliceDID, err := alice.DID()
	require.NoError(t, err)

	ping := message.Message{
		ID:   message.NewID(),
		Type: protocol.TrustPingType,
		From: aliceDID,
		To:   []string{mediatorDID},
		ApplicationParams: map[string]json.RawMessage{
			"~transport": json.RawMessage(`{"return_route":"all"}`),
		},
	}
	raw, err := codec.Encrypt(context.Background(), ping, mediatorDID)
	require.NoError(t, err)

	resp, err := d.Dispatch(context.Background(), raw)
	require.NoError(t, err)

	out, err := codec.Decrypt(context.Background(), resp, alice.PrivateKey())
	require.NoError(t, err)
	assert.Equal(t, protocol.TrustPingResponseType, out.Type)
	assert.Equal(t, ping.ID, out.ThID)
}

func TestDispatchDefaultAckWhenNoResponse(t *testing.T) {
	mediator, err := wallet.Generate()
	require.NoError(t, err)
	alice, err := wallet.Generate()
	require.NoError(t, err)
	d, codec, _ := newTestDispatcher(t, mediator)

	mediatorDID, err := mediator.DID()
	require.NoError(t, err)
	aliceDID, err := alice.DID()
	require.NoError(t, err)

	complete := message.Message{
		ID:   message.NewID(),
		Type: protocol.DidExchangeCompleteType,
		From: aliceDID,
		To:   []string{mediatorDID},
	}
	raw, err := codec.Encrypt(context.Background(), complete, mediatorDID)
	require.NoError(t, err)

	resp, err := d.Dispatch(context.Background(), raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(resp))
}

func TestDispatchForwardToThirdPartyRoundTrip(t *testing.T) {
	mediator, err := wallet.Generate()
	require.NoError(t, err)
	alice, err := wallet.Generate()
	require.NoError(t, err)
	bob, err := wallet.Generate()
	require.NoError(t, err)
	d, codec, st := newTestDispatcher(t, mediator)

	mediatorDID, err := mediator.DID()
	require.NoError(t, err)
	aliceDID, err := alice.DID()
	require.NoError(t, err)
	bobDID, err := bob.DID()
	require.NoError(t, err)

	pingToBob := message.Message{
		ID:   message.NewID(),
		Type: protocol.TrustPingType,
		From: aliceDID,
		To:   []string{bobDID},
	}
	innerRaw, err := codec.Encrypt(context.Background(), pingToBob, bobDID)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]string{"next": bobDID})
	require.NoError(t, err)
	forward := message.Message{
		ID:   message.NewID(),
		Type: protocol.ForwardType,
		From: aliceDID,
		To:   []string{mediatorDID},
		Body: body,
		Attachments: []message.Attachment{{
			ID:   message.NewID(),
			Data: message.AttachmentData{JSON: innerRaw},
		}},
	}
	forwardRaw, err := codec.Encrypt(context.Background(), forward, mediatorDID)
	require.NoError(t, err)

	resp, err := d.Dispatch(context.Background(), forwardRaw)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(resp))

	conn, ok, err := st.Get(context.Background(), bobDID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, conn.Messages, 1)

	batchReqBody, err := json.Marshal(map[string]int{"batch_size": 10})
	require.NoError(t, err)
	batchReq := message.Message{
		ID:   message.NewID(),
		Type: protocol.BatchPickupType,
		From: bobDID,
		To:   []string{mediatorDID},
	}
	batchReq.Body = batchReqBody
	batchReqRaw, err := codec.Encrypt(context.Background(), batchReq, mediatorDID)
	require.NoError(t, err)

	batchRespRaw, err := d.Dispatch(context.Background(), batchReqRaw)
	require.NoError(t, err)

	batchMsg, err := codec.Decrypt(context.Background(), batchRespRaw, bob.PrivateKey())
	require.NoError(t, err)
	assert.Equal(t, protocol.BatchType, batchMsg.Type)
	require.Len(t, batchMsg.Attachments, 1)
	assert.JSONEq(t, string(innerRaw), string(batchMsg.Attachments[0].Data.JSON))

	pingOut, err := codec.Decrypt(context.Background(), batchMsg.Attachments[0].Data.JSON, bob.PrivateKey())
	require.NoError(t, err)
	assert.Equal(t, aliceDID, pingOut.From)
	assert.Equal(t, protocol.TrustPingType, pingOut.Type)
}
