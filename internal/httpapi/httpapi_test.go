package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/chatpush"
	"github.com/nyx-testnet/nyx-gateway/internal/compliance"
	"github.com/nyx-testnet/nyx-gateway/internal/evidence"
	"github.com/nyx-testnet/nyx-gateway/internal/risk"
	"github.com/nyx-testnet/nyx-gateway/internal/router"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
	"github.com/nyx-testnet/nyx-gateway/internal/web2guard"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg, err := settings.Load()
	if err != nil {
		t.Fatalf("settings.Load() error = %v", err)
	}
	cfg.RiskMode = settings.RiskEnforce

	store, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := chatpush.NewHub()
	guard := web2guard.New(web2guard.DefaultAllowlist)
	exec := router.New(store, cfg, risk.NewEngine(cfg), risk.NewRateLimiter(cfg), evidence.LocalEngine{}, guard, compliance.New(cfg), hub)

	srv := New(exec, store, cfg, guard, hub)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body map[string]any, token string) (int, map[string]any) {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func getJSON(t *testing.T, ts *httptest.Server, path, token string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

// createAndLoginAccount runs the full portal onboarding flow (create
// account, challenge, sign, verify) and returns the account's session
// token plus its wallet address.
func createAndLoginAccount(t *testing.T, ts *httptest.Server, handle string) (token, walletAddress string) {
	t.Helper()
	rawKey := bytes.Repeat([]byte{0x11}, 32)
	pubKeyB64 := base64.StdEncoding.EncodeToString(rawKey)

	status, body := postJSON(t, ts, "/portal/v1/accounts", map[string]any{
		"seed": 1, "run_id": "run-create-" + handle,
		"payload": map[string]any{"handle": handle, "public_key": pubKeyB64},
	}, "")
	if status != http.StatusOK {
		t.Fatalf("create account status = %d, body = %v", status, body)
	}
	account := body["account"].(map[string]any)
	walletAddress = account["wallet_address"].(string)

	status, body = postJSON(t, ts, "/portal/v1/auth/challenge", map[string]any{
		"seed": 1, "run_id": "run-challenge-" + handle,
		"payload": map[string]any{"handle": handle},
	}, "")
	if status != http.StatusOK {
		t.Fatalf("challenge status = %d, body = %v", status, body)
	}
	nonce := body["nonce"].(string)

	mac := hmac.New(sha256.New, rawKey)
	mac.Write([]byte(nonce))
	sig := hex.EncodeToString(mac.Sum(nil))

	status, body = postJSON(t, ts, "/portal/v1/auth/verify", map[string]any{
		"seed": 1, "run_id": "run-verify-" + handle,
		"payload": map[string]any{"handle": handle, "nonce": nonce, "signature": sig},
	}, "")
	if status != http.StatusOK {
		t.Fatalf("verify status = %d, body = %v", status, body)
	}
	token = body["token"].(string)
	return token, walletAddress
}

func TestPortalOnboardingAndMe(t *testing.T) {
	ts := newTestServer(t)
	token, _ := createAndLoginAccount(t, ts, "alice")

	status, body := getJSON(t, ts, "/portal/v1/me", token)
	if status != http.StatusOK {
		t.Fatalf("me status = %d, body = %v", status, body)
	}
	account := body["account"].(map[string]any)
	if account["handle"] != "alice" {
		t.Fatalf("handle = %v, want alice", account["handle"])
	}
}

func TestPortalMeRejectsMissingBearer(t *testing.T) {
	ts := newTestServer(t)
	status, body := getJSON(t, ts, "/portal/v1/me", "")
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != "AUTH_REQUIRED" {
		t.Fatalf("code = %v, want AUTH_REQUIRED", errBody["code"])
	}
}

func TestWalletFaucetThenTransfer(t *testing.T) {
	ts := newTestServer(t)
	_, aliceWallet := createAndLoginAccount(t, ts, "alice2")
	_, bobWallet := createAndLoginAccount(t, ts, "bob2")

	status, body := postJSON(t, ts, "/wallet/v1/faucet", map[string]any{
		"seed": 1, "run_id": "run-faucet-1",
		"payload": map[string]any{"address": aliceWallet, "amount": 1000, "asset_id": "NYXT"},
	}, "")
	if status != http.StatusOK {
		t.Fatalf("faucet status = %d, body = %v", status, body)
	}

	status, body = postJSON(t, ts, "/wallet/v1/transfer", map[string]any{
		"seed": 1, "run_id": "run-transfer-1",
		"payload": map[string]any{
			"from_address": aliceWallet, "to_address": bobWallet, "amount": 100, "asset_id": "NYXT",
		},
	}, "")
	if status != http.StatusOK {
		t.Fatalf("transfer status = %d, body = %v", status, body)
	}
	if body["state_hash"] == "" || body["state_hash"] == nil {
		t.Fatalf("expected non-empty state_hash, body = %v", body)
	}
}

func TestWalletTransferInsufficientBalance(t *testing.T) {
	ts := newTestServer(t)
	_, aliceWallet := createAndLoginAccount(t, ts, "alice3")
	_, bobWallet := createAndLoginAccount(t, ts, "bob3")

	status, body := postJSON(t, ts, "/wallet/v1/transfer", map[string]any{
		"seed": 1, "run_id": "run-transfer-insufficient",
		"payload": map[string]any{
			"from_address": aliceWallet, "to_address": bobWallet, "amount": 10, "asset_id": "NYXT",
		},
	}, "")
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != "INSUFFICIENT_BALANCE" {
		t.Fatalf("code = %v, want INSUFFICIENT_BALANCE", errBody["code"])
	}
}

func TestWeb2GuardDeniesIPLiteral(t *testing.T) {
	ts := newTestServer(t)
	token, _ := createAndLoginAccount(t, ts, "alice4")

	status, body := postJSON(t, ts, "/web2/v1/request", map[string]any{
		"seed": 1, "run_id": "run-web2-deny",
		"payload": map[string]any{"url": "https://127.0.0.1/", "method": "GET"},
	}, token)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != "ALLOWLIST_DENY" {
		t.Fatalf("code = %v, want ALLOWLIST_DENY", errBody["code"])
	}
}

func TestHealthzAndVersion(t *testing.T) {
	ts := newTestServer(t)
	status, body := getJSON(t, ts, "/healthz", "")
	if status != http.StatusOK {
		t.Fatalf("healthz status = %d, body = %v", status, body)
	}
	status, _ = getJSON(t, ts, "/version", "")
	if status != http.StatusOK {
		t.Fatalf("version status = %d", status)
	}
}
