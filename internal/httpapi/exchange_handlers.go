package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

func (s *Server) registerExchangeRoutes(r *mux.Router) {
	r.HandleFunc("/exchange/place_order", s.handleExchangePlaceOrder).Methods(http.MethodPost)
	r.HandleFunc("/exchange/cancel_order", s.handleExchangeCancelOrder).Methods(http.MethodPost)
	r.HandleFunc("/exchange/orders", s.handleExchangeOrders).Methods(http.MethodGet)
	r.HandleFunc("/exchange/trades", s.handleExchangeTrades).Methods(http.MethodGet)
	r.HandleFunc("/exchange/orderbook", s.handleExchangeOrderbook).Methods(http.MethodGet)
	r.HandleFunc("/exchange/v1/my_orders", s.handleExchangeMyOrders).Methods(http.MethodGet)
	r.HandleFunc("/exchange/v1/my_trades", s.handleExchangeMyTrades).Methods(http.MethodGet)
}

func (s *Server) handleExchangePlaceOrder(w http.ResponseWriter, r *http.Request) {
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
	resp, err := s.exec.ExchangePlaceOrder(r.Context(), wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handleExchangeCancelOrder(w http.ResponseWriter, r *http.Request) {
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
	resp, err := s.exec.ExchangeCancelOrder(r.Context(), wallet, clientIP(r), env.Seed, env.RunID, env.Payload)
	writeResponse(w, resp, err)
}

func (s *Server) handleExchangeOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.store.ListOpenOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleExchangeTrades(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "order_id required"))
		return
	}
	trades, err := s.store.ListTradesByOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// handleExchangeOrderbook groups open orders by side and price into the
// depth view a trading client expects; there is no dedicated storage
// query for this because it is a pure read-side aggregation of
// ListOpenOrders, not a domain operation.
func (s *Server) handleExchangeOrderbook(w http.ResponseWriter, r *http.Request) {
	orders, err := s.store.ListOpenOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	bids := map[int64]int64{}
	asks := map[int64]int64{}
	for _, o := range orders {
		if o.Side == storage.Buy {
			bids[o.Price] += o.Amount
		} else {
			asks[o.Price] += o.Amount
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bids": levelsDesc(bids), "asks": levelsAsc(asks)})
}

type priceLevel struct {
	Price  int64 `json:"price"`
	Amount int64 `json:"amount"`
}

func levelsDesc(m map[int64]int64) []priceLevel {
	return sortDesc(levelsOf(m))
}

func levelsAsc(m map[int64]int64) []priceLevel {
	return sortAsc(levelsOf(m))
}

func levelsOf(m map[int64]int64) []priceLevel {
	out := make([]priceLevel, 0, len(m))
	for price, amount := range m {
		out = append(out, priceLevel{Price: price, Amount: amount})
	}
	return out
}

func sortAsc(levels []priceLevel) []priceLevel {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j].Price < levels[j-1].Price; j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
	return levels
}

func sortDesc(levels []priceLevel) []priceLevel {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j].Price > levels[j-1].Price; j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
	return levels
}

func (s *Server) handleExchangeMyOrders(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "address required"))
		return
	}
	orders, err := s.store.ListOrdersByOwner(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleExchangeMyTrades(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, gwerrors.New(gwerrors.ParamRequired, "address required"))
		return
	}
	trades, err := s.store.ListTradesByOwner(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}
