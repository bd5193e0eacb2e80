// Package wallet owns the mediator's long-lived X25519 identity key and
// derives its DID document (C8).
package wallet

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"
)

// x25519MulticodecPrefix is the multicodec varint prefix (0xEC01) for an
// X25519 public key, per the multicodec table referenced by the did:key
// method spec.
var x25519MulticodecPrefix = []byte{0xec, 0x01}

// Wallet holds the mediator's long-lived X25519 keypair.
type Wallet struct {
	priv *ecdh.PrivateKey
	pub  *ecdh.PublicKey
}

// FromSeed derives a Wallet deterministically from a 32-byte seed. The
// seed is hashed into an X25519 scalar the same way other_examples'
// seed-derived identities do, so a given seed always yields the same key.
func FromSeed(seed []byte) (*Wallet, error) {
	if len(seed) != 32 {
		return nil, fmt.Errorf("wallet: seed must be 32 bytes, got %d", len(seed))
	}
	scalar := sha256.Sum256(seed)
	priv, err := ecdh.X25519().NewPrivateKey(scalar[:])
	if err != nil {
		return nil, fmt.Errorf("wallet: derive private key: %w", err)
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

// Generate creates a Wallet from fresh randomness, used when no key_seed
// is configured.
func Generate() (*Wallet, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

// PrivateKey returns the wallet's X25519 private key.
func (w *Wallet) PrivateKey() *ecdh.PrivateKey { return w.priv }

// PublicKeyBytes returns the raw 32-byte X25519 public key.
func (w *Wallet) PublicKeyBytes() []byte { return w.pub.Bytes() }

// DID returns the wallet's did:key identifier, the multibase(base58-btc)
// encoding of the multicodec-prefixed X25519 public key.
func (w *Wallet) DID() (string, error) {
	prefixed := append(append([]byte{}, x25519MulticodecPrefix...), w.PublicKeyBytes()...)
	encoded, err := multibase.Encode(multibase.Base58BTC, prefixed)
	if err != nil {
		return "", fmt.Errorf("wallet: multibase encode: %w", err)
	}
	return "did:key:" + encoded, nil
}

// RecipientKeyBase58 returns the base58 (not multibase-prefixed) encoding
// of the public key, the form used in invitation service recipientKeys.
func (w *Wallet) RecipientKeyBase58() string {
	return base58.Encode(w.PublicKeyBytes())
}

// VerificationMethod is one entry in a DID document's public key list.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
}

// Service is a DID document service endpoint entry.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// Document is the public-only linked-data DID document the mediator
// publishes at /.well-known/did.json, the CONFIG_LD_PUBLIC form.
type Document struct {
	Context            []string              `json:"@context"`
	ID                 string                 `json:"id"`
	VerificationMethod []VerificationMethod   `json:"verificationMethod"`
	KeyAgreement       []string               `json:"keyAgreement"`
	Service            []Service              `json:"service,omitempty"`
}

// Document derives the mediator's public DID document. extService, when
// non-empty, is published as a did-communication service endpoint.
func (w *Wallet) Document(extService string) (*Document, error) {
	did, err := w.DID()
	if err != nil {
		return nil, err
	}
	prefixed := append(append([]byte{}, x25519MulticodecPrefix...), w.PublicKeyBytes()...)
	mb, err := multibase.Encode(multibase.Base58BTC, prefixed)
	if err != nil {
		return nil, fmt.Errorf("wallet: multibase encode: %w", err)
	}
	vmID := did + "#" + mb[1:9]

	doc := &Document{
		Context: []string{
			"https://www.w3.org/ns/did/v1",
			"https://w3id.org/security/suites/x25519-2020/v1",
		},
		ID: did,
		VerificationMethod: []VerificationMethod{
			{
				ID:                 vmID,
				Type:               "X25519KeyAgreementKey2020",
				Controller:         did,
				PublicKeyMultibase: mb,
			},
		},
		KeyAgreement: []string{vmID},
	}
	if extService != "" {
		doc.Service = []Service{{
			ID:              did + "#didcomm",
			Type:            "did-communication",
			ServiceEndpoint: extService,
		}}
	}
	return doc, nil
}
