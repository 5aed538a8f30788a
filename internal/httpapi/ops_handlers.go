package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) registerOpsRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/capabilities", s.handleCapabilities).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"version": Version})
}

// handleCapabilities advertises which modules and risk posture this
// instance runs with, so a client can adapt without probing every
// endpoint.
func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"environment":      s.cfg.Env,
		"risk_mode":        s.cfg.RiskMode,
		"compliance_mode":  s.cfg.ComplianceMode,
		"modules":          []string{"wallet", "exchange", "marketplace", "chat", "portal", "web2"},
		"chat_ws":          s.hub != nil,
		"web2_allowlisted": len(s.guard.Allowlist),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"environment": s.cfg.Env,
	}
	if s.hub != nil {
		status["chat_clients"] = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}
