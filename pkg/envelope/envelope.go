// Package envelope implements the DIDComm v2 wire format (C2): XC20P JWE
// authenticated encryption via ECDH-ES key agreement, wrapped in a
// detached EdDSA signature over the JWE compact serialization.
package envelope

import (
	"context"
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/pkg/message"
)

// kidHeader and skidHeader name the protected header fields carrying the
// signing public key and the sender DID, per the wire format.
const (
	kidHeader  = "kid"
	skidHeader = "skid"
)

// Resolver resolves a DID to its raw 32-byte X25519 public key.
type Resolver interface {
	Resolve(ctx context.Context, did string) ([]byte, error)
}

// Envelope is the outer JSON structure carried over the wire: a compact
// JWE plus the detached EdDSA signature over its bytes.
type Envelope struct {
	JWE       string `json:"jwe"`
	Signature string `json:"signature"`
}

// Codec encrypts and decrypts DIDComm messages for one mediator identity.
type Codec struct {
	resolver Resolver
}

func NewCodec(resolver Resolver) *Codec {
	return &Codec{resolver: resolver}
}

// Encrypt signs and encrypts m for recipientDID. A fresh Ed25519 signing
// key is generated per call, per the envelope contract: the mediator
// never reuses a signing key across outgoing envelopes.
func (c *Codec) Encrypt(ctx context.Context, m message.Message, recipientDID string) ([]byte, error) {
	recipientPub, err := c.resolver.Resolve(ctx, recipientDID)
	if err != nil {
		return nil, err
	}
	recipientKey, err := ecdh.X25519().NewPublicKey(recipientPub)
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindDecrypt, "invalid recipient key", err)
	}

	plaintext, err := json.Marshal(m)
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal message", err)
	}

	sigPub, sigPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "generate signing key", err)
	}

	headers := jwe.NewHeaders()
	if err := headers.Set(kidHeader, hex.EncodeToString(sigPub)); err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "set kid header", err)
	}
	if m.From != "" {
		if err := headers.Set(skidHeader, m.From); err != nil {
			return nil, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "set skid header", err)
		}
	}

	compact, err := jwe.Encrypt(plaintext,
		jwe.WithKey(jwa.ECDH_ES, recipientKey),
		jwe.WithContentEncryption(jwa.XC20P),
		jwe.WithProtectedHeaders(headers),
	)
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "encrypt envelope", err)
	}

	sig := ed25519.Sign(sigPriv, compact)
	env := Envelope{
		JWE:       string(compact),
		Signature: hex.EncodeToString(sig),
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindHandlerFailure, "marshal envelope", err)
	}
	return out, nil
}

// Decrypt verifies the detached signature, decrypts the JWE with
// receiverKey, and returns the plaintext Message. The sender DID is
// recovered from the skid header when the decoded message omits `from`.
func (c *Codec) Decrypt(ctx context.Context, raw []byte, receiverKey *ecdh.PrivateKey) (message.Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindBadBody, "unmarshal envelope", err)
	}
	if env.JWE == "" || env.Signature == "" {
		return message.Message{}, mediatorerr.New(mediatorerr.KindBadBody, "envelope missing jwe or signature")
	}

	parsed, err := jwe.Parse([]byte(env.JWE))
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindDecrypt, "parse jwe", err)
	}
	headers := parsed.ProtectedHeaders()

	var kidHex string
	if err := headers.Get(kidHeader, &kidHex); err != nil || kidHex == "" {
		return message.Message{}, mediatorerr.New(mediatorerr.KindDecrypt, "envelope missing kid header")
	}
	sigPub, err := hex.DecodeString(kidHex)
	if err != nil || len(sigPub) != ed25519.PublicKeySize {
		return message.Message{}, mediatorerr.New(mediatorerr.KindDecrypt, "malformed kid header")
	}

	sig, err := hex.DecodeString(env.Signature)
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindDecrypt, "decode signature", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(sigPub), []byte(env.JWE), sig) {
		return message.Message{}, mediatorerr.New(mediatorerr.KindDecrypt, "signature verification failed")
	}

	plaintext, err := jwe.Decrypt([]byte(env.JWE), jwe.WithKey(jwa.ECDH_ES, receiverKey))
	if err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindDecrypt, "decrypt jwe", err)
	}

	var m message.Message
	if err := json.Unmarshal(plaintext, &m); err != nil {
		return message.Message{}, mediatorerr.Wrap(mediatorerr.KindBadBody, "unmarshal plaintext", err)
	}

	if m.From == "" {
		var skid string
		if err := headers.Get(skidHeader, &skid); err == nil && skid != "" {
			m.From = skid
		}
	}
	return m, nil
}

// EnsureRecipient asserts recipientDID resolves to a key at all, wrapping
// the resolver's error (its Kind is preserved) when it does not.
func (c *Codec) EnsureRecipient(ctx context.Context, recipientDID string) error {
	_, err := c.resolver.Resolve(ctx, recipientDID)
	if err != nil {
		return fmt.Errorf("recipient %s: %w", recipientDID, err)
	}
	return nil
}
