package exportauth

import (
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/settings"
)

func testSettings() *settings.Settings {
	return &settings.Settings{
		SessionSecret:      "a-session-secret-at-least-32-bytes-long",
		ExportTokenTTLSecs: 300,
	}
}

func TestMintVerifyRoundTrip(t *testing.T) {
	cfg := testSettings()
	token, exp, err := Mint(cfg, "acct-1")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if token == "" {
		t.Fatalf("Mint() returned empty token")
	}
	if exp.IsZero() {
		t.Fatalf("Mint() returned zero expiry")
	}

	accountID, err := Verify(cfg, token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if accountID != "acct-1" {
		t.Fatalf("accountID = %q, want acct-1", accountID)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	cfg := testSettings()
	if _, err := Verify(cfg, "not-a-jwt"); err == nil {
		t.Fatalf("Verify() accepted a malformed token")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	cfg := testSettings()
	token, _, err := Mint(cfg, "acct-1")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	other := testSettings()
	other.SessionSecret = "a-completely-different-secret-32-bytes!!"
	if _, err := Verify(other, token); err == nil {
		t.Fatalf("Verify() accepted a token signed with a different secret")
	}
}
