package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
)

func (s *Server) registerWeb2Routes(r *mux.Router) {
	r.HandleFunc("/web2/v1/allowlist", s.handleWeb2Allowlist).Methods(http.MethodGet)
	r.HandleFunc("/web2/v1/request", s.handleWeb2Request).Methods(http.MethodPost)
	r.HandleFunc("/web2/v1/requests", s.handleWeb2Requests).Methods(http.MethodGet)
}

func (s *Server) handleWeb2Allowlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"allowlist": s.guard.Allowlist})
}

// web2RequestEnvelope mirrors mutatingEnvelope but carries the raw outbound
// request fields Web2GuardRequest expects (url/method/body) rather than a
// generic validate.Payload, since the gateway dispatches these bytes
// verbatim to the allowlisted upstream instead of interpreting them as
// domain fields.
type web2RequestEnvelope struct {
	Seed    int64  `json:"seed"`
	RunID   string `json:"run_id"`
	Payload struct {
		URL    string `json:"url"`
		Method string `json:"method"`
		Body   string `json:"body"`
	} `json:"payload"`
}

func (s *Server) handleWeb2Request(w http.ResponseWriter, r *http.Request) {
	var env web2RequestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, gwerrors.New(gwerrors.ParamInvalid, "malformed request body"))
		return
	}
	if env.RunID == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "run_id required"))
		return
	}
	if env.Payload.URL == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "url required"))
		return
	}
	method := env.Payload.Method
	if method == "" {
		method = http.MethodGet
	}

	id, _, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	wallet, err := s.walletAddress(r.Context(), id.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.exec.Web2GuardRequest(r.Context(), id.AccountID, wallet, clientIP(r), env.Seed, env.RunID, env.Payload.URL, method, []byte(env.Payload.Body))
	writeResponse(w, resp, err)
}

func (s *Server) handleWeb2Requests(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	requests, err := s.store.ListWeb2GuardRequestsByAccount(r.Context(), id.AccountID, queryLimit(r, 50))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}
