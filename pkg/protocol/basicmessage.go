package protocol

import (
	"context"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
)

// BasicMessageType is basicmessage/2.0/message, a supplemented protocol
// (not part of the core spec's five) carried over from the original
// implementation's basicmessage.rs. Disabled unless features.basic_message
// is enabled in configuration.
const BasicMessageType = "https://didcomm.org/basicmessage/2.0/message"

// BasicMessageHandler echoes every basicmessage/2.0/message back to its
// sender, acknowledging receipt the way the original's basicmessage
// protocol does.
type BasicMessageHandler struct{}

func (*BasicMessageHandler) Name() string { return "basicmessage" }

func (*BasicMessageHandler) Handle(_ context.Context, msg message.Message, _ store.Store) (Outcome, error) {
	if msg.Type != BasicMessageType {
		return Outcome{Kind: Skipped}, nil
	}
	out, err := BuildBasicMessageEcho(BasicMessageEchoInput{Received: msg})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: Send, To: msg.From, Out: out}, nil
}

// BasicMessageEchoInput builds the echo reply to a received basic message.
type BasicMessageEchoInput struct {
	Received message.Message
}

// BuildBasicMessageEcho constructs the echo reply, threading thid from
// the received message (or its id, if it started a new thread).
func BuildBasicMessageEcho(in BasicMessageEchoInput) (message.Message, error) {
	if in.Received.Type != BasicMessageType {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "not a basicmessage/2.0/message")
	}
	thid := in.Received.ThID
	if thid == "" {
		thid = in.Received.ID
	}
	return message.Message{
		ID:          message.NewID(),
		Type:        BasicMessageType,
		ThID:        thid,
		CreatedTime: message.Now(),
		Body:        in.Received.Body,
	}, nil
}
