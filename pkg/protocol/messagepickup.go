package protocol

import (
	"context"
	"encoding/json"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
)

// MessagePickupPrefix matches every messagepickup/1.0 message type
// (Aries RFC 0212).
const MessagePickupPrefix = "https://didcomm.org/messagepickup/1.0/"

const (
	StatusRequestType = MessagePickupPrefix + "status-request"
	StatusType        = MessagePickupPrefix + "status"
	BatchPickupType   = MessagePickupPrefix + "batch-pickup"
	BatchType         = MessagePickupPrefix + "batch"
)

// MessagePickupHandler implements batch pickup (§4.4.5). Like
// DiscoverFeatures, inline delivery is mandatory, so the handler itself
// encrypts the response to the originator.
type MessagePickupHandler struct {
	Codec Encryptor
}

func (*MessagePickupHandler) Name() string { return "messagepickup" }

func (h *MessagePickupHandler) Handle(ctx context.Context, msg message.Message, st store.Store) (Outcome, error) {
	if !typePrefix(msg.Type, MessagePickupPrefix) {
		return Outcome{Kind: Skipped}, nil
	}
	if msg.From == "" {
		return Outcome{}, mediatorerr.New(mediatorerr.KindBuilderInput, "messagepickup request missing from")
	}
	if h.Codec == nil {
		return Outcome{}, mediatorerr.New(mediatorerr.KindHandlerFailure, "messagepickup handler has no codec")
	}

	switch msg.Type {
	case StatusRequestType:
		conn, _, err := st.Get(ctx, msg.From)
		if err != nil {
			return Outcome{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "read queue depth", err)
		}
		out, err := BuildStatus(StatusInput{Request: msg, MessageCount: len(conn.Messages)})
		if err != nil {
			return Outcome{}, err
		}
		return h.respondInline(ctx, out, msg.From)

	case BatchPickupType:
		var body struct {
			BatchSize int `json:"batch_size"`
		}
		if err := json.Unmarshal(msg.Body, &body); err != nil || body.BatchSize <= 0 {
			return Outcome{}, mediatorerr.New(mediatorerr.KindBuilderInput, "batch-pickup missing positive batch_size")
		}
		drained, _, err := st.GetMessages(ctx, msg.From, body.BatchSize)
		if err != nil {
			return Outcome{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "drain queue", err)
		}
		out, err := BuildBatch(BatchInput{Request: msg, Messages: drained})
		if err != nil {
			return Outcome{}, err
		}
		return h.respondInline(ctx, out, msg.From)

	default:
		return Outcome{Kind: Skipped}, nil
	}
}

func (h *MessagePickupHandler) respondInline(ctx context.Context, out message.Message, to string) (Outcome, error) {
	enc, err := h.Codec.Encrypt(ctx, out, to)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: Response, Value: json.RawMessage(enc)}, nil
}

// StatusInput builds a status message reporting a queue depth.
type StatusInput struct {
	Request      message.Message
	MessageCount int
}

// BuildStatus constructs the status response to a status-request.
func BuildStatus(in StatusInput) (message.Message, error) {
	if in.Request.Type != StatusRequestType {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "not a status-request message")
	}
	body, err := json.Marshal(map[string]int{"message_count": in.MessageCount})
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal status body", err)
	}
	return message.Message{
		ID:          message.NewID(),
		Type:        StatusType,
		ThID:        in.Request.ID,
		CreatedTime: message.Now(),
		Body:        body,
	}, nil
}

// BatchInput builds a batch message wrapping drained queue messages.
type BatchInput struct {
	Request  message.Message
	Messages []message.Message
}

// BuildBatch constructs the batch response, embedding each drained
// message as its own attachment, byte-identical to what a legitimate
// recipient stored (invariant I1). A queued routing/2.0/forward wrapper
// contributes its own inner attachment unwrapped one level, so the
// picker receives the original inner envelope byte-for-byte rather than
// the wrapper that wraps it (invariant P2).
func BuildBatch(in BatchInput) (message.Message, error) {
	if in.Request.Type != BatchPickupType {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "not a batch-pickup message")
	}

	attachments := make([]message.Attachment, 0, len(in.Messages))
	for _, m := range in.Messages {
		raw, err := attachmentPayload(m)
		if err != nil {
			return message.Message{}, err
		}
		attachments = append(attachments, message.Attachment{
			ID:   message.NewID(),
			Data: message.AttachmentData{JSON: raw},
		})
	}

	return message.Message{
		ID:          message.NewID(),
		Type:        BatchType,
		ThID:        in.Request.ID,
		CreatedTime: message.Now(),
		Attachments: attachments,
	}, nil
}

// attachmentPayload returns the bytes a picker should see for one queued
// message: the raw inner envelope for a forward wrapper, or the full
// marshaled message otherwise.
func attachmentPayload(m message.Message) (json.RawMessage, error) {
	if m.Type == ForwardType && len(m.Attachments) > 0 {
		return m.Attachments[0].Data.JSON, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal queued message", err)
	}
	return raw, nil
}
