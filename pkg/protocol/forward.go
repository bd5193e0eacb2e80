package protocol

import (
	"context"
	"encoding/json"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
)

// ForwardType is the routing/2.0 forward message type. Only 2.0 is
// matched; the legacy routing/1.0 prefix is not (see the design notes on
// the reference implementation's open questions).
const ForwardType = "https://didcomm.org/routing/2.0/forward"

// ForwardHandler implements the routing/2.0/forward protocol (§4.4.1).
type ForwardHandler struct{}

func (*ForwardHandler) Name() string { return "forward" }

func (*ForwardHandler) Handle(_ context.Context, msg message.Message, _ store.Store) (Outcome, error) {
	if msg.Type != ForwardType {
		return Outcome{Kind: Skipped}, nil
	}

	var body struct {
		Next string `json:"next"`
	}
	if err := json.Unmarshal(msg.Body, &body); err != nil || body.Next == "" {
		return Outcome{}, mediatorerr.New(mediatorerr.KindBuilderInput, "forward message missing body.next")
	}
	if len(msg.Attachments) == 0 {
		return Outcome{}, mediatorerr.New(mediatorerr.KindBuilderInput, "forward message has no attachments")
	}
	inner := msg.Attachments[0].Data.JSON
	if len(inner) == 0 {
		return Outcome{}, mediatorerr.New(mediatorerr.KindBuilderInput, "forward attachment has no embedded json")
	}

	return Outcome{
		Kind:  Forward,
		Next:  []string{body.Next},
		Inner: inner,
	}, nil
}

// ForwardWrapperInput builds a fresh forward wrapper message keyed to one
// next-hop DID, enqueued by the dispatch core for each Outcome.Next entry.
type ForwardWrapperInput struct {
	Next  string
	Inner json.RawMessage
}

// BuildForwardWrapper constructs the routing/2.0/forward message the
// dispatch core inserts into the store for next, embedding inner as the
// sole attachment so the intended recipient can unwrap it unmodified
// (invariant I1: the mediator never re-signs or re-encrypts it).
func BuildForwardWrapper(in ForwardWrapperInput) (message.Message, error) {
	if in.Next == "" {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "forward wrapper requires Next")
	}
	if len(in.Inner) == 0 {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "forward wrapper requires Inner")
	}

	body, err := json.Marshal(map[string]string{"next": in.Next})
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal forward body", err)
	}

	return message.Message{
		ID:          message.NewID(),
		Type:        ForwardType,
		To:          []string{in.Next},
		CreatedTime: message.Now(),
		Body:        body,
		Attachments: []message.Attachment{{
			ID:   message.NewID(),
			Data: message.AttachmentData{JSON: in.Inner},
		}},
	}, nil
}
