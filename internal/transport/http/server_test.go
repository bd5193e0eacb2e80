package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chriamue/didcomm-mediator/internal/health"
	"github.com/chriamue/didcomm-mediator/internal/logger"
	"github.com/chriamue/didcomm-mediator/pkg/didresolver"
	"github.com/chriamue/didcomm-mediator/pkg/dispatch"
	"github.com/chriamue/didcomm-mediator/pkg/envelope"
	"github.com/chriamue/didcomm-mediator/pkg/protocol"
	"github.com/chriamue/didcomm-mediator/pkg/store"
	"github.com/chriamue/didcomm-mediator/pkg/wallet"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)

	resolver := didresolver.NewMultiMethodResolver()
	codec := envelope.NewCodec(resolver)
	st := store.NewMemoryStore(4)
	chain := protocol.NewChain(protocol.Deps{Wallet: w, Codec: codec})
	d := dispatch.New(codec, chain, st, w.PrivateKey(), logger.NewDefaultLogger())

	checker := health.NewChecker(logger.NewDefaultLogger(), 0, 0)
	checker.Register("store", func(ctx context.Context) error { return nil })

	return &Server{Dispatcher: d, Wallet: w, Health: checker, ExtService: "https://mediator.example/didcomm", Ident: "test-mediator"}
}

func TestRootRedirectsToInvitation(t *testing.T) {
	s := newTestServer(t)
	mux := NewServer(s)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/invitation", rec.Header().Get("Location"))
}

func TestInvitationEndpoint(t *testing.T) {
	s := newTestServer(t)
	mux := NewServer(s)

	req := httptest.NewRequest(http.MethodGet, "/invitation", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "out-of-band/2.0/invitation")
}

func TestDIDDocumentEndpoint(t *testing.T) {
	s := newTestServer(t)
	mux := NewServer(s)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/did.json", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "verificationMethod")
}

func TestDIDCommCorsPreflight(t *testing.T) {
	s := newTestServer(t)
	mux := NewServer(s)

	req := httptest.NewRequest(http.MethodOptions, "/didcomm", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDIDCommRejectsBadBody(t *testing.T) {
	s := newTestServer(t)
	mux := NewServer(s)

	req := httptest.NewRequest(http.MethodPost, "/didcomm", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	mux := NewServer(s)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "healthy")
}
