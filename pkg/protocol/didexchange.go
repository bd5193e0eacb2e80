package protocol

import (
	"context"
	"encoding/json"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
	"github.com/chriamue/didcomm-mediator/pkg/wallet"
)

// DID Exchange message types (Hyperledger Aries RFC 0023, truncated to
// the four steps this mediator participates in).
const (
	OOBInvitationType       = "https://didcomm.org/out-of-band/2.0/invitation"
	DidExchangeRequestType  = "https://didcomm.org/didexchange/1.0/request"
	DidExchangeResponseType = "https://didcomm.org/didexchange/1.0/response"
	DidExchangeCompleteType = "https://didcomm.org/didexchange/1.0/complete"
)

// DidExchangeHandler implements the truncated DID exchange state machine
// (§4.4.2): invitation -> request -> response -> complete.
type DidExchangeHandler struct {
	Wallet *wallet.Wallet
}

func (*DidExchangeHandler) Name() string { return "didexchange" }

func (h *DidExchangeHandler) Handle(_ context.Context, msg message.Message, _ store.Store) (Outcome, error) {
	switch msg.Type {
	case OOBInvitationType:
		out, err := h.buildRequest(msg)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: Send, To: msg.From, Out: out}, nil

	case DidExchangeRequestType:
		out, err := h.buildResponse(msg)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: Send, To: msg.From, Out: out}, nil

	case DidExchangeResponseType:
		out, err := h.buildComplete(msg)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: Send, To: msg.From, Out: out}, nil

	case DidExchangeCompleteType:
		// terminal: the exchange finished, nothing further to emit.
		return Outcome{Kind: Processed}, nil

	default:
		return Outcome{Kind: Skipped}, nil
	}
}

func (h *DidExchangeHandler) buildRequest(invitation message.Message) (message.Message, error) {
	return BuildDidExchangeRequest(DidExchangeRequestInput{
		Invitation: invitation,
		Wallet:     h.Wallet,
	})
}

func (h *DidExchangeHandler) buildResponse(request message.Message) (message.Message, error) {
	return BuildDidExchangeResponse(DidExchangeResponseInput{
		Request: request,
		Wallet:  h.Wallet,
	})
}

func (h *DidExchangeHandler) buildComplete(response message.Message) (message.Message, error) {
	if h.Wallet == nil {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "didexchange complete requires a wallet")
	}
	did, err := h.Wallet.DID()
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "derive did", err)
	}
	return BuildDidExchangeComplete(DidExchangeCompleteInput{
		Response: response,
		From:     did,
	})
}

// DidExchangeRequestInput builds a didexchange/1.0/request from a
// received out-of-band invitation.
type DidExchangeRequestInput struct {
	Invitation message.Message
	Wallet     *wallet.Wallet
}

// BuildDidExchangeRequest constructs the request message, preserving the
// invitation's thid if present and minting one otherwise.
func BuildDidExchangeRequest(in DidExchangeRequestInput) (message.Message, error) {
	if in.Invitation.Type != OOBInvitationType {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "not an out-of-band invitation")
	}
	if in.Wallet == nil {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "didexchange request requires a wallet")
	}

	did, err := in.Wallet.DID()
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "derive did", err)
	}
	doc, err := in.Wallet.Document("")
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "derive did document", err)
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal did document", err)
	}

	thid := in.Invitation.ThID
	if thid == "" {
		thid = message.NewID()
	}

	return message.Message{
		ID:          message.NewID(),
		Type:        DidExchangeRequestType,
		From:        did,
		ThID:        thid,
		CreatedTime: message.Now(),
		ApplicationParams: map[string]json.RawMessage{
			"did":            mustJSON(did),
			"did_doc~attach": docJSON,
		},
	}, nil
}

// DidExchangeResponseInput builds a didexchange/1.0/response from a
// received request.
type DidExchangeResponseInput struct {
	Request message.Message
	Wallet  *wallet.Wallet
}

// BuildDidExchangeResponse constructs the response message. Per §4.4.2 the
// response's thid carries the incoming request's own id, not its thid.
func BuildDidExchangeResponse(in DidExchangeResponseInput) (message.Message, error) {
	if in.Request.Type != DidExchangeRequestType {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "not a didexchange request")
	}
	if in.Wallet == nil {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "didexchange response requires a wallet")
	}

	did, err := in.Wallet.DID()
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "derive did", err)
	}
	doc, err := in.Wallet.Document("")
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "derive did document", err)
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal did document", err)
	}

	return message.Message{
		ID:          message.NewID(),
		Type:        DidExchangeResponseType,
		From:        did,
		ThID:        in.Request.ID,
		CreatedTime: message.Now(),
		ApplicationParams: map[string]json.RawMessage{
			"did":            mustJSON(did),
			"did_doc~attach": docJSON,
		},
	}, nil
}

// DidExchangeCompleteInput builds the terminal complete message.
type DidExchangeCompleteInput struct {
	Response message.Message
	From     string
}

// BuildDidExchangeComplete constructs the complete message, propagating
// the response's thid unchanged.
func BuildDidExchangeComplete(in DidExchangeCompleteInput) (message.Message, error) {
	if in.Response.Type != DidExchangeResponseType {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "not a didexchange response")
	}
	if in.From == "" {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "didexchange complete requires From")
	}
	return message.Message{
		ID:          message.NewID(),
		Type:        DidExchangeCompleteType,
		From:        in.From,
		ThID:        in.Response.ThID,
		CreatedTime: message.Now(),
	}, nil
}

func mustJSON(v string) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
