package invitation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chriamue/didcomm-mediator/pkg/protocol"
	"github.com/chriamue/didcomm-mediator/pkg/wallet"
)

func TestBuildInvitationShape(t *testing.T) {
	w, err := wallet.Generate()
	require.NoError(t, err)

	inv, err := Build(Input{Wallet: w, ExtService: "https://mediator.example/didcomm", Goal: "to-establish-connection", GoalCode: "connect"})
	require.NoError(t, err)

	require.Equal(t, InvitationType, inv.Type)
	did, err := w.DID()
	require.NoError(t, err)
	require.Equal(t, did, inv.From)
	require.NotEmpty(t, inv.ID)

	raw, ok := inv.ApplicationParams["services"]
	require.True(t, ok)
	var services []Service
	require.NoError(t, json.Unmarshal(raw, &services))
	require.Len(t, services, 1)
	require.Equal(t, did+"#didcomm", services[0].ID)
	require.Equal(t, "https://mediator.example/didcomm", services[0].ServiceEndpoint)
	require.Equal(t, "did-communication", services[0].Type)
	require.Equal(t, w.RecipientKeyBase58(), services[0].RecipientKeys[0])

	require.Len(t, inv.Attachments, 1)
	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(inv.Attachments[0].Data.JSON, &req))
	require.Equal(t, protocol.DidExchangeRequestType, req["type"])
}

func TestBuildInvitationIdempotentExceptID(t *testing.T) {
	w, err := wallet.Generate()
	require.NoError(t, err)

	a, err := Build(Input{Wallet: w, ExtService: "https://mediator.example/didcomm"})
	require.NoError(t, err)
	b, err := Build(Input{Wallet: w, ExtService: "https://mediator.example/didcomm"})
	require.NoError(t, err)

	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, a.From, b.From)

	var servicesA, servicesB []Service
	require.NoError(t, json.Unmarshal(a.ApplicationParams["services"], &servicesA))
	require.NoError(t, json.Unmarshal(b.ApplicationParams["services"], &servicesB))
	require.Equal(t, servicesA[0].RecipientKeys, servicesB[0].RecipientKeys)
}

func TestBuildInvitationRequiresWallet(t *testing.T) {
	_, err := Build(Input{})
	require.Error(t, err)
}
