// Package didresolver resolves a DID string to the raw X25519 public key
// of its subject (C1). did:key is mandatory and fully offline; did:web
// and did:iota are optional network-backed methods.
package didresolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
	"golang.org/x/sync/singleflight"

	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/internal/metrics"
)

// x25519MulticodecPrefix mirrors the prefix wallet.go writes into did:key
// identifiers it mints for the mediator's own identity.
var x25519MulticodecPrefix = []byte{0xec, 0x01}

// Resolver resolves a DID to a 32-byte X25519 public key.
type Resolver interface {
	Resolve(ctx context.Context, did string) ([]byte, error)
}

// MethodResolver resolves DIDs of one specific method.
type MethodResolver interface {
	// Method is the did:<method>: prefix this resolver claims, e.g. "key".
	Method() string
	Resolve(ctx context.Context, did string) ([]byte, error)
}

// MultiMethodResolver funnels every DID through one entry point and
// dispatches by method, so callers never switch on DID method themselves —
// mirroring the fan-out shape of did.MultiChainResolver, generalized from
// blockchain identifiers to DID methods.
type MultiMethodResolver struct {
	resolvers map[string]MethodResolver
	group     singleflight.Group
}

// NewMultiMethodResolver builds a resolver with did:key always registered;
// additional optional methods (did:web, did:iota) are added via Register.
func NewMultiMethodResolver() *MultiMethodResolver {
	m := &MultiMethodResolver{resolvers: make(map[string]MethodResolver)}
	m.Register(KeyResolver{})
	return m
}

// Register adds or replaces the resolver for a DID method.
func (m *MultiMethodResolver) Register(r MethodResolver) {
	m.resolvers[r.Method()] = r
}

// Resolve dispatches did to the resolver registered for its method,
// deduplicating concurrent lookups of the same DID via singleflight.
func (m *MultiMethodResolver) Resolve(ctx context.Context, did string) ([]byte, error) {
	method, err := methodOf(did)
	if err != nil {
		metrics.ResolverLookups.WithLabelValues("unknown", "error").Inc()
		return nil, mediatorerr.Wrap(mediatorerr.KindUnresolvable, "malformed DID", err)
	}

	r, ok := m.resolvers[method]
	if !ok {
		metrics.ResolverLookups.WithLabelValues(method, "unsupported").Inc()
		return nil, mediatorerr.New(mediatorerr.KindUnresolvable, fmt.Sprintf("unsupported DID method: %s", method))
	}

	v, err, _ := m.group.Do(did, func() (interface{}, error) {
		return r.Resolve(ctx, did)
	})
	if err != nil {
		metrics.ResolverLookups.WithLabelValues(method, "error").Inc()
		if _, ok := err.(*mediatorerr.Error); ok {
			return nil, err
		}
		return nil, mediatorerr.Wrap(mediatorerr.KindUnresolvable, "resolve "+did, err)
	}
	metrics.ResolverLookups.WithLabelValues(method, "success").Inc()
	return v.([]byte), nil
}

func methodOf(did string) (string, error) {
	parts := strings.SplitN(did, ":", 3)
	if len(parts) < 3 || parts[0] != "did" {
		return "", fmt.Errorf("not a DID: %s", did)
	}
	return parts[1], nil
}

// KeyResolver resolves did:key identifiers entirely offline by decoding
// the multibase-encoded, multicodec-prefixed public key in the
// method-specific id.
type KeyResolver struct{}

func (KeyResolver) Method() string { return "key" }

func (KeyResolver) Resolve(_ context.Context, did string) ([]byte, error) {
	parts := strings.SplitN(did, ":", 3)
	if len(parts) != 3 {
		return nil, mediatorerr.New(mediatorerr.KindUnresolvable, "malformed did:key: "+did)
	}
	_, data, err := multibase.Decode(parts[2])
	if err != nil {
		return nil, mediatorerr.Wrap(mediatorerr.KindUnresolvable, "multibase decode", err)
	}
	if len(data) != len(x25519MulticodecPrefix)+32 || data[0] != x25519MulticodecPrefix[0] || data[1] != x25519MulticodecPrefix[1] {
		return nil, mediatorerr.New(mediatorerr.KindUnresolvable, "did:key is not an X25519 key: "+did)
	}
	return data[2:], nil
}
