package protocol

import (
	"context"
	"encoding/json"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
)

// DiscoverFeaturesPrefix matches every discover-features/2.0 message type.
const DiscoverFeaturesPrefix = "https://didcomm.org/discover-features/2.0/"

const (
	DiscoverFeaturesQueriesType  = DiscoverFeaturesPrefix + "queries"
	DiscoverFeaturesDiscloseType = DiscoverFeaturesPrefix + "disclose"
)

// SupportedProtocols lists the protocol identifiers disclose advertises
// when the handler's Protocols field is nil. The config-gated basicmessage
// and poll handlers are not listed, and nothing adds them when enabled.
var SupportedProtocols = []string{
	"trust-ping/2.0",
	"didexchange/1.0",
	"messagepickup/1.0",
	"routing/2.0/forward",
}

// Encryptor encrypts a plaintext Message to a recipient DID, the subset of
// envelope.Codec the inline-response handlers need.
type Encryptor interface {
	Encrypt(ctx context.Context, m message.Message, recipientDID string) ([]byte, error)
}

// DiscoverFeaturesHandler implements feature discovery (§4.4.4). Inline
// delivery is mandatory, so the handler itself performs the encryption
// rather than leaving it to the dispatch core's return-route check.
type DiscoverFeaturesHandler struct {
	Codec     Encryptor
	Protocols []string
}

func (*DiscoverFeaturesHandler) Name() string { return "discover-features" }

func (h *DiscoverFeaturesHandler) Handle(ctx context.Context, msg message.Message, _ store.Store) (Outcome, error) {
	if !typePrefix(msg.Type, DiscoverFeaturesPrefix) {
		return Outcome{Kind: Skipped}, nil
	}
	if msg.Type != DiscoverFeaturesQueriesType {
		return Outcome{Kind: Processed}, nil
	}
	if msg.From == "" {
		return Outcome{}, mediatorerr.New(mediatorerr.KindBuilderInput, "discover-features queries missing from")
	}

	protocols := h.Protocols
	if protocols == nil {
		protocols = SupportedProtocols
	}
	out, err := BuildDisclose(DiscloseInput{Queries: msg, Protocols: protocols})
	if err != nil {
		return Outcome{}, err
	}

	if h.Codec == nil {
		return Outcome{}, mediatorerr.New(mediatorerr.KindHandlerFailure, "discover-features handler has no codec")
	}
	enc, err := h.Codec.Encrypt(ctx, out, msg.From)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: Response, Value: json.RawMessage(enc)}, nil
}

// DiscloseInput builds a disclose message listing supported protocols.
type DiscloseInput struct {
	Queries   message.Message
	Protocols []string
}

// BuildDisclose constructs the disclose response to a queries message.
func BuildDisclose(in DiscloseInput) (message.Message, error) {
	if in.Queries.Type != DiscoverFeaturesQueriesType {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBuilderInput, "not a discover-features queries message")
	}

	type protocolEntry struct {
		FeatureType string `json:"feature-type"`
		ID          string `json:"id"`
	}
	entries := make([]protocolEntry, 0, len(in.Protocols))
	for _, p := range in.Protocols {
		entries = append(entries, protocolEntry{FeatureType: "protocol", ID: p})
	}
	body, err := json.Marshal(map[string]interface{}{"protocols": entries})
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal disclose body", err)
	}

	return message.Message{
		ID:          message.NewID(),
		Type:        DiscoverFeaturesDiscloseType,
		ThID:        in.Queries.ID,
		CreatedTime: message.Now(),
		Body:        body,
	}, nil
}
