package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
)

func (s *Server) registerMarketplaceRoutes(r *mux.Router) {
	r.HandleFunc("/marketplace/listing", s.handleMarketplaceListing).Methods(http.MethodPost)
	r.HandleFunc("/marketplace/purchase", s.handleMarketplacePurchase).Methods(http.MethodPost)
	r.HandleFunc("/marketplace/listings", s.handleMarketplaceListings).Methods(http.MethodGet)
	r.HandleFunc("/marketplace/listings/search", s.handleMarketplaceListingsSearch).Methods(http.MethodGet)
	r.HandleFunc("/marketplace/purchases", s.handleMarketplacePurchases).Methods(http.MethodGet)
	r.HandleFunc("/marketplace/v1/my_purchases", s.handleMarketplaceMyPurchases).Methods(http.MethodGet)
}

func (s *Server) handleMarketplaceListing(w http.ResponseWriter, r *http.Request) {
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
	resp, err := s.exec.MarketplacePublishListing(r.Context(), wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handleMarketplacePurchase(w http.ResponseWriter, r *http.Request) {
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
	resp, err := s.exec.MarketplacePurchaseListing(r.Context(), wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handleMarketplaceListings(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "active"
	}
	listings, err := s.store.ListListings(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (s *Server) handleMarketplaceListingsSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	listings, err := s.store.SearchListings(r.Context(), term)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (s *Server) handleMarketplacePurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := s.store.ListAllPurchases(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}

func (s *Server) handleMarketplaceMyPurchases(w http.ResponseWriter, r *http.Request) {
	buyerID := r.URL.Query().Get("buyer_id")
	if buyerID == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "buyer_id required"))
		return
	}
	purchases, err := s.store.ListPurchasesByBuyer(r.Context(), buyerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}
