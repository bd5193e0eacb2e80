package protocol

import (
	"context"
	"encoding/json"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
)

// PollRequestType and PollResponseType are a supplemented, independent
// protocol identifier (not a messagepickup/1.0 alias) carried over from
// the original implementation's poll.rs. Disabled unless features.poll is
// enabled in configuration.
const (
	PollRequestType  = "https://didcomm.org/poll/0.1/request"
	PollResponseType = "https://didcomm.org/poll/0.1/response"
)

// PollHandler drains exactly one queued message for the requester and
// returns it inline, a lighter-weight alternative to batch-pickup for
// clients that only ever want one message at a time.
type PollHandler struct {
	Codec Encryptor
}

func (*PollHandler) Name() string { return "poll" }

func (h *PollHandler) Handle(ctx context.Context, msg message.Message, st store.Store) (Outcome, error) {
	if msg.Type != PollRequestType {
		return Outcome{Kind: Skipped}, nil
	}
	if msg.From == "" {
		return Outcome{}, mediatorerr.New(mediatorerr.KindBuilderInput, "poll request missing from")
	}
	if h.Codec == nil {
		return Outcome{}, mediatorerr.New(mediatorerr.KindHandlerFailure, "poll handler has no codec")
	}

	next, ok, err := st.GetNext(ctx, msg.From)
	if err != nil {
		return Outcome{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "drain next message", err)
	}

	out, err := BuildPollResponse(PollResponseInput{Request: msg, Message: next, Available: ok})
	if err != nil {
		return Outcome{}, err
	}
	enc, err := h.Codec.Encrypt(ctx, out, msg.From)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: Response, Value: json.RawMessage(enc)}, nil
}

// PollResponseInput builds a poll response carrying at most one drained
// message.
type PollResponseInput struct {
	Request   message.Message
	Message   message.Message
	Available bool
}

// BuildPollResponse constructs the poll response. When Available is
// false the response carries no attachment, signaling an empty queue.
func BuildPollResponse(in PollResponseInput) (message.Message, error) {
	if in.Request.Type != PollRequestType {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "not a poll request")
	}

	out := message.Message{
		ID:          message.NewID(),
		Type:        PollResponseType,
		ThID:        in.Request.ID,
		CreatedTime: message.Now(),
	}
	if in.Available {
		raw, err := attachmentPayload(in.Message)
		if err != nil {
			return message.Message{}, err
		}
		out.Attachments = []message.Attachment{{
			ID:   message.NewID(),
			Data: message.AttachmentData{JSON: raw},
		}}
	}
	return out, nil
}
