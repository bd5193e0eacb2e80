// Package invitation composes the mediator's out-of-band invitation (C7):
// a public advertisement of its DID-communication service endpoint plus
// an embedded didexchange/1.0/request a recipient can unpack offline.
package invitation

import (
	"encoding/json"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/protocol"
	"github.com/chriamue/didcomm-mediator/pkg/wallet"
)

// InvitationType is the out-of-band invitation message type.
const InvitationType = protocol.OOBInvitationType

// didCommServiceType is the Aries didexchange service entry type, shared
// by both the invitation's services list and the mediator's own DID
// document service entry.
const didCommServiceType = "did-communication"

// Service describes one recipient entry in an invitation's services list.
type Service struct {
	ID              string   `json:"id"`
	RecipientKeys   []string `json:"recipientKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
	Type            string   `json:"type"`
}

// Input carries everything needed to compose one invitation.
type Input struct {
	// Wallet owns the mediator's identity key and DID document.
	Wallet *wallet.Wallet
	// ExtService is the externally reachable DIDComm endpoint advertised
	// in the services list and the embedded DID document.
	ExtService string
	// Goal and GoalCode populate the invitation body's free-form fields.
	Goal     string
	GoalCode string
}

// Build composes a fresh out-of-band invitation. Every call mints a new
// `id`; the resolved recipient key and service endpoint are otherwise
// stable for a fixed Wallet and ExtService (P4: idempotent invitation).
func Build(in Input) (message.Message, error) {
	if in.Wallet == nil {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "invitation requires a wallet")
	}

	did, err := in.Wallet.DID()
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "derive did", err)
	}

	svc := Service{
		ID:              did + "#didcomm",
		RecipientKeys:   []string{in.Wallet.RecipientKeyBase58()},
		ServiceEndpoint: in.ExtService,
		Type:            didCommServiceType,
	}
	servicesJSON, err := json.Marshal([]Service{svc})
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal services", err)
	}

	body, err := json.Marshal(map[string]interface{}{
		"goal":      in.Goal,
		"goal_code": in.GoalCode,
		"accept":    []string{"didcomm/v2"},
	})
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal body", err)
	}

	inv := message.Message{
		ID:          message.NewID(),
		Type:        InvitationType,
		From:        did,
		CreatedTime: message.Now(),
		Body:        body,
		ApplicationParams: map[string]json.RawMessage{
			"services": servicesJSON,
		},
	}

	requestAttachment, err := embeddedRequest(in.Wallet, inv)
	if err != nil {
		return message.Message{}, err
	}
	inv.Attachments = []message.Attachment{requestAttachment}

	return inv, nil
}

// embeddedRequest derives the didexchange/1.0/request a recipient would
// build from this invitation, and wraps it as an attachment — the same
// request DidExchangeHandler.buildRequest would hand back, so a client
// that short-circuits on the invitation's own attachment observes
// identical request semantics to one that round-trips through /didcomm.
func embeddedRequest(w *wallet.Wallet, inv message.Message) (message.Attachment, error) {
	req, err := protocol.BuildDidExchangeRequest(protocol.DidExchangeRequestInput{
		Invitation: inv,
		Wallet:     w,
	})
	if err != nil {
		return message.Attachment{}, err
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return message.Attachment{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal embedded request", err)
	}
	return message.Attachment{
		ID:        message.NewID(),
		MediaType: "application/json",
		Data:      message.AttachmentData{JSON: raw},
	}, nil
}
