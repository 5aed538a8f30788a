package compliance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
)

func mustSettings(t *testing.T) *settings.Settings {
	t.Helper()
	cfg, err := settings.Load()
	if err != nil {
		t.Fatalf("settings.Load() error = %v", err)
	}
	return cfg
}

func TestCheckOffModeAlwaysPasses(t *testing.T) {
	cfg := mustSettings(t)
	cfg.ComplianceMode = settings.ComplianceOff
	c := New(cfg)
	if err := c.Check(context.Background(), "acct-1", "wallet_transfer"); err != nil {
		t.Fatalf("off mode should never reject, got %v", err)
	}
}

func TestCheckAllowedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(checkResponse{Allowed: true})
	}))
	defer srv.Close()

	cfg := mustSettings(t)
	cfg.ComplianceMode = settings.ComplianceFailClosed
	cfg.ComplianceURL = srv.URL
	c := New(cfg)
	if err := c.Check(context.Background(), "acct-1", "wallet_transfer"); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
}

func TestCheckDeniedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(checkResponse{Allowed: false, Reason: "blocked"})
	}))
	defer srv.Close()

	cfg := mustSettings(t)
	cfg.ComplianceMode = settings.ComplianceFailClosed
	cfg.ComplianceURL = srv.URL
	c := New(cfg)
	err := c.Check(context.Background(), "acct-1", "wallet_transfer")
	if err == nil {
		t.Fatal("expected denial")
	}
	ge, ok := gwerrors.As(err)
	if !ok || ge.ErrCode != gwerrors.ComplianceForbidden {
		t.Fatalf("expected ComplianceForbidden, got %v", err)
	}
}

func TestCheckUnauthorizedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := mustSettings(t)
	cfg.ComplianceMode = settings.ComplianceFailClosed
	cfg.ComplianceURL = srv.URL
	c := New(cfg)
	err := c.Check(context.Background(), "acct-1", "wallet_transfer")
	ge, ok := gwerrors.As(err)
	if !ok || ge.ErrCode != gwerrors.ComplianceUnauthorized {
		t.Fatalf("expected ComplianceUnauthorized, got %v", err)
	}
}

func TestCheckFailOpenOnUnavailable(t *testing.T) {
	cfg := mustSettings(t)
	cfg.ComplianceMode = settings.ComplianceFailOpen
	cfg.ComplianceURL = "https://127.0.0.1:0/unreachable"
	c := New(cfg)
	if err := c.Check(context.Background(), "acct-1", "wallet_transfer"); err != nil {
		t.Fatalf("fail_open should swallow transport errors, got %v", err)
	}
}

func TestCheckFailClosedOnUnavailable(t *testing.T) {
	cfg := mustSettings(t)
	cfg.ComplianceMode = settings.ComplianceFailClosed
	cfg.ComplianceURL = "https://127.0.0.1:0/unreachable"
	c := New(cfg)
	err := c.Check(context.Background(), "acct-1", "wallet_transfer")
	ge, ok := gwerrors.As(err)
	if !ok || ge.ErrCode != gwerrors.ComplianceUnavailable {
		t.Fatalf("expected ComplianceUnavailable, got %v", err)
	}
}
