// Package dispatch implements the read-body/decrypt/handle/respond
// pipeline (C5) that sits behind the HTTP transport.
package dispatch

import (
	"context"
	"crypto/ecdh"
	"encoding/json"
	"time"

	"github.com/chriamue/didcomm-mediator/internal/logger"
	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/internal/metrics"
	"github.com/chriamue/didcomm-mediator/pkg/envelope"
	"github.com/chriamue/didcomm-mediator/pkg/message"
	"github.com/chriamue/didcomm-mediator/pkg/protocol"
	"github.com/chriamue/didcomm-mediator/pkg/store"
)

var emptyAck = json.RawMessage(`{}`)

// Dispatcher decrypts one inbound envelope and runs it through the
// protocol handler chain, applying every Send/Forward outcome along the
// way and returning whatever bytes the HTTP layer should write back.
type Dispatcher struct {
	Codec       *envelope.Codec
	Chain       *protocol.Chain
	Store       store.Store
	ReceiverKey *ecdh.PrivateKey
	Log         logger.Logger
}

// New builds a Dispatcher from its collaborators.
func New(codec *envelope.Codec, chain *protocol.Chain, st store.Store, receiverKey *ecdh.PrivateKey, log logger.Logger) *Dispatcher {
	return &Dispatcher{Codec: codec, Chain: chain, Store: st, ReceiverKey: receiverKey, Log: log}
}

// Dispatch decrypts raw, runs the chain, and returns the response body.
// Absent a Response (or an inline Send) outcome, it returns an empty JSON
// object, the fixed default acknowledgement.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	ctx = logger.WithRequestID(ctx, message.NewID())
	log := d.Log.WithContext(ctx)

	msg, err := d.Codec.Decrypt(ctx, raw, d.ReceiverKey)
	if err != nil {
		metrics.MessagesDecrypted.WithLabelValues("failure").Inc()
		log.Warn("envelope decrypt failed", logger.Error(err))
		return nil, err
	}
	metrics.MessagesDecrypted.WithLabelValues("success").Inc()

	ctx = logger.WithDID(ctx, msg.From)
	log = d.Log.WithContext(ctx)
	log.Debug("dispatching message", logger.String("type", msg.Type))

	for _, h := range d.Chain.Handlers() {
		outcome, err := h.Handle(ctx, msg, d.Store)
		if err != nil {
			metrics.HandlerOutcomes.WithLabelValues(h.Name(), "error").Inc()
			log.Warn("handler failed", logger.String("handler", h.Name()), logger.Error(err))
			return nil, err
		}

		switch outcome.Kind {
		case protocol.Skipped:
			continue

		case protocol.Processed:
			metrics.HandlerOutcomes.WithLabelValues(h.Name(), "processed").Inc()
			return emptyAck, nil

		case protocol.Response:
			metrics.HandlerOutcomes.WithLabelValues(h.Name(), "response").Inc()
			return outcome.Value, nil

		case protocol.Send:
			metrics.HandlerOutcomes.WithLabelValues(h.Name(), "send").Inc()
			resp, halted, err := d.applySend(ctx, msg, outcome)
			if err != nil {
				return nil, err
			}
			if halted {
				return resp, nil
			}

		case protocol.Forward:
			metrics.HandlerOutcomes.WithLabelValues(h.Name(), "forward").Inc()
			if err := d.applyForward(ctx, outcome); err != nil {
				return nil, err
			}
		}
	}

	return emptyAck, nil
}

// applySend delivers a Send outcome inline (when the originating message
// requested return_route=all) or enqueues it for later pickup. It never
// re-encrypts an inbound envelope; Out is always a fresh message the
// mediator itself is originating.
func (d *Dispatcher) applySend(ctx context.Context, original message.Message, outcome protocol.Outcome) ([]byte, bool, error) {
	if original.ReturnRouteAll() {
		enc, err := d.Codec.Encrypt(ctx, outcome.Out, outcome.To)
		if err != nil {
			return nil, false, err
		}
		return enc, true, nil
	}

	if err := d.Store.InsertMessageFor(ctx, outcome.To, outcome.Out); err != nil {
		return nil, false, mediatorerr.Wrap(mediatorerr.KindStoreFailure, "enqueue send outcome", err)
	}
	return nil, false, nil
}

// applyForward enqueues a fresh forward wrapper for each next-hop DID,
// embedding the untouched inner envelope (invariant I1).
func (d *Dispatcher) applyForward(ctx context.Context, outcome protocol.Outcome) error {
	for _, next := range outcome.Next {
		wrapper, err := protocol.BuildForwardWrapper(protocol.ForwardWrapperInput{Next: next, Inner: outcome.Inner})
		if err != nil {
			return err
		}
		if err := d.Store.InsertMessageFor(ctx, next, wrapper); err != nil {
			return mediatorerr.Wrap(mediatorerr.KindStoreFailure, "enqueue forward outcome", err)
		}
	}
	return nil
}
