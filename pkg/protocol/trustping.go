package protocol

import (
	"context"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
)

// TrustPingPrefix matches every trust-ping/2.0 message type.
const TrustPingPrefix = "https://didcomm.org/trust-ping/2.0/"

const (
	TrustPingType         = TrustPingPrefix + "ping"
	TrustPingResponseType = TrustPingPrefix + "ping-response"
)

// TrustPingHandler implements the heartbeat protocol (§4.4.3).
type TrustPingHandler struct{}

func (*TrustPingHandler) Name() string { return "trust-ping" }

func (*TrustPingHandler) Handle(_ context.Context, msg message.Message, _ store.Store) (Outcome, error) {
	if !typePrefix(msg.Type, TrustPingPrefix) {
		return Outcome{Kind: Skipped}, nil
	}
	if msg.Type != TrustPingType {
		// Only ping is acted on; other trust-ping/2.0 types are claimed
		// but produce no response (e.g. an unsolicited ping-response).
		return Outcome{Kind: Processed}, nil
	}

	out, err := BuildPingResponse(PingResponseInput{Ping: msg})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: Send, To: msg.From, Out: out}, nil
}

// PingResponseInput builds a ping-response for a received ping.
type PingResponseInput struct {
	Ping message.Message
}

// BuildPingResponse constructs the ping-response message, threading
// thid = ping.id.
func BuildPingResponse(in PingResponseInput) (message.Message, error) {
	if in.Ping.Type != TrustPingType {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "not a trust-ping ping")
	}
	return message.Message{
		ID:          message.NewID(),
		Type:        TrustPingResponseType,
		ThID:        in.Ping.ID,
		CreatedTime: message.Now(),
	}, nil
}
