package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

func (s *Server) registerPortalRoutes(r *mux.Router) {
	r.HandleFunc("/portal/v1/accounts", s.handlePortalCreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/portal/v1/auth/challenge", s.handlePortalChallenge).Methods(http.MethodPost)
	r.HandleFunc("/portal/v1/auth/verify", s.handlePortalVerify).Methods(http.MethodPost)
	r.HandleFunc("/portal/v1/auth/logout", s.handlePortalLogout).Methods(http.MethodPost)
	r.HandleFunc("/portal/v1/profile", s.handlePortalProfile).Methods(http.MethodPost)
	r.HandleFunc("/portal/v1/me", s.handlePortalMe).Methods(http.MethodGet)
	r.HandleFunc("/portal/v1/accounts/search", s.handlePortalSearch).Methods(http.MethodGet)
	r.HandleFunc("/portal/v1/accounts/by_id", s.handlePortalByID).Methods(http.MethodGet)
	r.HandleFunc("/portal/v1/e2ee/identity", s.handlePortalE2EEIdentity).Methods(http.MethodPost)
	r.HandleFunc("/portal/v1/activity", s.handlePortalActivity).Methods(http.MethodGet)
}

func (s *Server) handlePortalCreateAccount(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.exec.PortalCreateAccount(r.Context(), clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handlePortalChallenge(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.exec.PortalIssueChallenge(r.Context(), clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handlePortalVerify(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.exec.PortalVerifyChallenge(r.Context(), clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handlePortalLogout(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, token, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	wallet, err := s.walletAddress(r.Context(), id.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.exec.PortalLogout(r.Context(), id.AccountID, wallet, token, clientIP(r), env.Seed, env.RunID)
	writeResponse(w, resp, err)
}

func (s *Server) handlePortalProfile(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
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
	resp, err := s.exec.PortalUpdateProfile(r.Context(), id.AccountID, wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handlePortalE2EEIdentity(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
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
	resp, err := s.exec.PortalRegisterE2EEIdentity(r.Context(), id.AccountID, wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handlePortalMe(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := s.store.GetPortalAccount(r.Context(), id.AccountID)
	if err != nil {
		writeError(w, gwerrors.New(gwerrors.AuthInvalid, "account not found"))
		return
	}
	identity, _ := s.store.GetE2EEIdentity(r.Context(), id.AccountID)
	writeJSON(w, http.StatusOK, map[string]any{"account": account, "e2ee_identity": identity})
}

func (s *Server) handlePortalSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	accounts, err := s.store.SearchPortalAccounts(r.Context(), term)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (s *Server) handlePortalByID(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "account_id required"))
		return
	}
	account, err := s.store.GetPortalAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, gwerrors.New(gwerrors.ParamInvalid, "account not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account})
}

// handlePortalActivity returns an account's recent trades and marketplace
// purchases, each newest first and capped at limit, as separate lists
// rather than interleaved by timestamp. The messages field is always
// null: legacy chat messages are not part of the feed.
func (s *Server) handlePortalActivity(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	wallet, err := s.walletAddress(r.Context(), id.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	trades, err := s.store.PortalActivityTrades(r.Context(), wallet, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	purchases, err := s.store.ListPurchasesByBuyer(r.Context(), wallet)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(purchases) > limit {
		purchases = purchases[:limit]
	}
	var messages []*storage.LegacyMessage
	writeJSON(w, http.StatusOK, map[string]any{
		"trades": trades, "purchases": purchases, "messages": messages,
	})
}
