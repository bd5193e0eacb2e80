// Package protocol implements the fixed-order handler chain (C4) and the
// per-protocol message builders (C6).
package protocol

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/store"
	"github.com/chriamue/didcomm-mediator/pkg/wallet"
)

// OutcomeKind tags the variant a Handler produces.
type OutcomeKind int

const (
	// Skipped means this handler does not claim the message.
	Skipped OutcomeKind = iota
	// Processed means the message was handled; no further action.
	Processed
	// Send means out should be re-encrypted to To and either delivered
	// inline or enqueued, depending on the incoming message's return-route.
	Send
	// Forward means inner should be delivered, opaque, to every DID in Next.
	Forward
	// Response means Value should be emitted as the immediate HTTP body.
	Response
)

// Outcome is the tagged variant a Handler produces for one incoming
// message. Exactly one field set is meaningful per Kind.
type Outcome struct {
	Kind OutcomeKind

	// Send
	To  string
	Out message.Message

	// Forward
	Next  []string
	Inner json.RawMessage

	// Response
	Value json.RawMessage
}

// Handler inspects an incoming decrypted message and decides how to
// dispose of it. Handlers are pure with respect to the store except via
// the Outcome they return; they must not mutate the store directly.
type Handler interface {
	// Name identifies the handler for metrics and logging.
	Name() string
	// Handle returns Skipped if msg does not belong to this protocol.
	Handle(ctx context.Context, msg message.Message, store store.Store) (Outcome, error)
}

// typePrefix reports whether msg.Type begins with prefix, the convention
// every handler below uses to claim a message.
func typePrefix(msgType, prefix string) bool {
	return strings.HasPrefix(msgType, prefix)
}

// Chain is the fixed, ordered sequence of protocol handlers: Forward,
// DidExchange, DiscoverFeatures, TrustPing, MessagePickup, plus whichever
// optional handlers were registered (BasicMessage, Poll).
type Chain struct {
	handlers []Handler
}

// Deps carries the shared collaborators handlers in the fixed chain need:
// the mediator's own wallet (DidExchange signs/advertises its own DID
// document) and an Encryptor (DiscoverFeatures, MessagePickup and Poll
// must deliver their responses inline, already encrypted). BasicMessage
// and Poll are appended only when their FeaturesConfig flag is set.
type Deps struct {
	Wallet       *wallet.Wallet
	Codec        Encryptor
	BasicMessage bool
	Poll         bool
}

// NewChain builds the chain in the mandatory fixed order: Forward,
// DidExchange, DiscoverFeatures, TrustPing, MessagePickup, followed by the
// config-gated BasicMessage and Poll handlers.
func NewChain(deps Deps) *Chain {
	handlers := []Handler{
		&ForwardHandler{},
		&DidExchangeHandler{Wallet: deps.Wallet},
		&DiscoverFeaturesHandler{Codec: deps.Codec},
		&TrustPingHandler{},
		&MessagePickupHandler{Codec: deps.Codec},
	}
	if deps.BasicMessage {
		handlers = append(handlers, &BasicMessageHandler{})
	}
	if deps.Poll {
		handlers = append(handlers, &PollHandler{Codec: deps.Codec})
	}
	return &Chain{handlers: handlers}
}

// Handlers returns the ordered handler list the dispatch core iterates.
func (c *Chain) Handlers() []Handler {
	return c.handlers
}
