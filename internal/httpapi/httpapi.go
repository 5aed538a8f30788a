// Package httpapi is the gateway's HTTP framing layer: the (h)ttp
// methods/paths/JSON codec spec.md §1 explicitly places outside the
// core's scope. It wires a gorilla/mux router over the single
// router.Executor, decoding the mutating-call envelope of spec §6
// ({seed, run_id, payload}), encoding the uniform success/error response
// envelopes, and translating *gwerrors.GatewayError into the stable HTTP
// status table. Grounded on the routing-file split of
// orbas1-Synnergy/synnergy-network/walletserver (routes.go +
// per-domain controllers) and on the server lifecycle/CORS shape of the
// teacher's internal/rpc/server.go.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/nyx-testnet/nyx-gateway/internal/chatpush"
	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/router"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
	"github.com/nyx-testnet/nyx-gateway/internal/validate"
	"github.com/nyx-testnet/nyx-gateway/internal/web2guard"
	"github.com/nyx-testnet/nyx-gateway/pkg/logging"
)

// Version is the build-time gateway version surfaced by GET /version.
var Version = "0.1.0-dev"

// Server owns the gorilla/mux router and the stdlib http.Server wrapping
// it. One Server is built per process in cmd/nyxgatewayd.
type Server struct {
	exec  *router.Executor
	store *storage.Store
	cfg   *settings.Settings
	guard *web2guard.Guard
	hub   *chatpush.Hub
	log   *logging.Logger

	httpServer *http.Server
}

// New builds a Server and registers every route of spec §6.
func New(exec *router.Executor, store *storage.Store, cfg *settings.Settings, guard *web2guard.Guard, hub *chatpush.Hub) *Server {
	s := &Server{
		exec:  exec,
		store: store,
		cfg:   cfg,
		guard: guard,
		hub:   hub,
		log:   logging.Default().Component("httpapi"),
	}

	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)
	s.registerPortalRoutes(r)
	s.registerWalletRoutes(r)
	s.registerExchangeRoutes(r)
	s.registerMarketplaceRoutes(r)
	s.registerChatRoutes(r)
	s.registerWeb2Routes(r)
	s.registerEvidenceRoutes(r)
	s.registerOpsRoutes(r)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      corsMiddleware(r),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start begins serving in the background; it returns once the listener is
// bound, mirroring the teacher's non-blocking rpc.Server.Start.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("httpapi server error", "error", err)
		}
	}()
	s.log.Info("httpapi server started", "addr", s.httpServer.Addr)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requestIDMiddleware stamps every request with a correlation id (not
// run_id, which is caller-supplied per spec §3) for log correlation.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware permits * per spec §6.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// mutatingEnvelope is the request body shape of every mutating call
// (spec §6).
type mutatingEnvelope struct {
	Seed    int64            `json:"seed"`
	RunID   string           `json:"run_id"`
	Payload validate.Payload `json:"payload"`
}

func decodeMutatingEnvelope(r *http.Request) (*mutatingEnvelope, error) {
	var env mutatingEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "malformed request body")
	}
	if env.RunID == "" {
		return nil, gwerrors.New(gwerrors.ParamRequired, "run_id required")
	}
	if env.Payload == nil {
		env.Payload = validate.Payload{}
	}
	return &env, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the inner {code,message,details?} object of the uniform
// {error:{...}} envelope of spec §6/§7.
type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	if ge, ok := gwerrors.As(err); ok {
		writeJSON(w, ge.HTTPStatus(), map[string]any{
			"error": errorBody{Code: string(ge.ErrCode), Message: ge.Msg, Details: ge.Details},
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error": errorBody{Code: "INTERNAL", Message: "internal error"},
	})
}

func writeResponse(w http.ResponseWriter, resp *router.Response, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
