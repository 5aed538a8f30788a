package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
)

var airdropTaskCatalog = []map[string]any{
	{"task_id": "trade_1", "reward": 300, "description": "complete your first exchange trade"},
	{"task_id": "chat_1", "reward": 100, "description": "send your first legacy chat message"},
	{"task_id": "store_1", "reward": 200, "description": "complete your first marketplace purchase"},
}

func (s *Server) registerWalletRoutes(r *mux.Router) {
	r.HandleFunc("/wallet/v1/faucet", s.handleWalletFaucet).Methods(http.MethodPost)
	r.HandleFunc("/wallet/v1/transfer", s.handleWalletTransfer).Methods(http.MethodPost)
	r.HandleFunc("/wallet/v1/airdrop/claim", s.handleWalletAirdropClaim).Methods(http.MethodPost)
	r.HandleFunc("/wallet/v1/balances", s.handleWalletBalances).Methods(http.MethodGet)
	r.HandleFunc("/wallet/v1/transfers", s.handleWalletTransfers).Methods(http.MethodGet)
	r.HandleFunc("/wallet/v1/airdrop/tasks", s.handleWalletAirdropTasks).Methods(http.MethodGet)
}

func (s *Server) handleWalletTransfer(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id := s.optionalSession(r.Context(), r)
	var wallet string
	if id != nil {
		wallet, err = s.walletAddress(r.Context(), id.AccountID)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	resp, err := s.exec.WalletTransfer(r.Context(), wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handleWalletFaucet(w http.ResponseWriter, r *http.Request) {
	env, err := decodeMutatingEnvelope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id := s.optionalSession(r.Context(), r)
	var accountKey, wallet string
	if id != nil {
		accountKey = id.AccountID
		wallet, err = s.walletAddress(r.Context(), id.AccountID)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	resp, err := s.exec.WalletFaucet(r.Context(), accountKey, wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handleWalletAirdropClaim(w http.ResponseWriter, r *http.Request) {
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
	taskID, ok := env.Payload["task_id"].(string)
	if !ok || taskID == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "task_id required"))
		return
	}
	resp, err := s.exec.AirdropClaim(r.Context(), id.AccountID, wallet, clientIP(r), env.Seed, env.RunID, taskID)
	writeResponse(w, resp, err)
}

func (s *Server) handleWalletBalances(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "address required"))
		return
	}
	balances, err := s.store.ListBalances(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (s *Server) handleWalletTransfers(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "address required"))
		return
	}
	limit := queryLimit(r, 50)
	transfers, err := s.store.ListWalletTransfers(r.Context(), address, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": transfers})
}

func (s *Server) handleWalletAirdropTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": airdropTaskCatalog})
}

func queryLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 500 {
		return def
	}
	return n
}
