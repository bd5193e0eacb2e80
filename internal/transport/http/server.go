// Package http wires the mediator's dispatch core, invitation builder,
// and DID document behind the fixed HTTP surface (§6): it is the
// transport adapter the rest of the core treats as an external
// collaborator, grounded on the teacher's read-body/parse/handle/respond
// shape (pkg/agent/transport/http/server.go's MessagesHandler).
package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/chriamue/didcomm-mediator/internal/health"
	"github.com/chriamue/didcomm-mediator/internal/logger"
	"github.com/chriamue/didcomm-mediator/internal/mediatorerr"
	"github.com/chriamue/didcomm-mediator/internal/metrics"
	"github.com/chriamue/didcomm-mediator/pkg/dispatch"
	"github.com/chriamue/didcomm-mediator/pkg/invitation"
	"github.com/chriamue/didcomm-mediator/pkg/wallet"
)

// Server adapts the dispatch core and its siblings to net/http.
type Server struct {
	Dispatcher *dispatch.Dispatcher
	Wallet     *wallet.Wallet
	Health     *health.Checker
	ExtService string
	Ident      string
	Log        logger.Logger

	mux *http.ServeMux
}

// NewServer builds the mediator's HTTP surface (§6): invitation,
// well-known DID document, the /didcomm envelope endpoint (plus its root
// alias, design notes §9 Q3), health and metrics.
func NewServer(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	s.mux = mux

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/invitation", s.withCORS(s.handleInvitation))
	mux.HandleFunc("/outofband/create-invitation", s.withCORS(s.handleInvitation))
	mux.HandleFunc("/.well-known/did.json", s.withCORS(s.handleDIDDocument))
	mux.HandleFunc("/didcomm", s.withCORS(s.handleDIDComm))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)

	return mux
}

// handleRoot redirects bare GETs to /invitation (§6) and, as a
// compatibility alias (design notes §9 Q3), accepts POST / as a synonym
// for POST /didcomm.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		http.Redirect(w, r, "/invitation", http.StatusSeeOther)
	case http.MethodPost:
		s.withCORS(s.handleDIDComm)(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// withCORS applies the fixed CORS policy (§6) and answers preflight
// OPTIONS requests without delegating further.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "POST, GET, PATCH, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Max-Age", "600")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleInvitation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	inv, err := invitation.Build(invitation.Input{
		Wallet:     s.Wallet,
		ExtService: s.ExtService,
		Goal:       "to-establish-a-didcomm-connection-with-" + s.Ident,
		GoalCode:   "request-mediate",
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleDIDDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	doc, err := s.Wallet.Document(s.ExtService)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDIDComm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, mediatorerr.Wrap(mediatorerr.KindBadBody, "read request body", err))
		return
	}
	defer r.Body.Close()

	resp, err := s.Dispatcher.Dispatch(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	report := s.Health.Report(ctx)
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its HTTP status (always 400 per §7's propagation
// policy) and writes the error text as the body.
func writeError(w http.ResponseWriter, err error) {
	kind := mediatorerr.KindOf(err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(mediatorerr.HTTPStatus(kind))
	_, _ = w.Write([]byte(err.Error()))
}
