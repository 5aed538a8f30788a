package portal

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/nyx-testnet/nyx-gateway/internal/hashutil"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

func newTestSettings() *settings.Settings {
	cfg, err := settings.Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func hmacHex(t *testing.T, key []byte, msg string) string {
	t.Helper()
	return hashutil.HMACSHA256Hex(key, []byte(msg))
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAccountDerivesIdentifiers(t *testing.T) {
	pubKey := base64.StdEncoding.EncodeToString(make([]byte, 32))
	a, err := CreateAccount("Alice_01", pubKey)
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if a.AccountID == a.Handle {
		t.Fatal("account_id must not equal handle")
	}
	if a.WalletAddress == "" || len(a.WalletAddress) != 16 {
		t.Fatalf("wallet_address = %q, want 16 hex chars", a.WalletAddress)
	}
	if a.Handle != "alice_01" {
		t.Fatalf("handle not lowercased: %q", a.Handle)
	}
}

func TestCreateAccountRejectsShortPublicKey(t *testing.T) {
	pubKey := base64.StdEncoding.EncodeToString(make([]byte, 8))
	if _, err := CreateAccount("bob", pubKey); err == nil {
		t.Fatal("expected error for short public key")
	}
}

func TestCreateAccountRejectsBadHandle(t *testing.T) {
	pubKey := base64.StdEncoding.EncodeToString(make([]byte, 32))
	if _, err := CreateAccount("ab", pubKey); err == nil {
		t.Fatal("expected error for too-short handle")
	}
	if _, err := CreateAccount("has a space", pubKey); err == nil {
		t.Fatal("expected error for invalid handle characters")
	}
}

func TestVerifyChallengeAcceptsValidMAC(t *testing.T) {
	pubKeyRaw := make([]byte, 32)
	pubKeyRaw[0] = 7
	pubKey := base64.StdEncoding.EncodeToString(pubKeyRaw)
	account, err := CreateAccount("carol", pubKey)
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	challenge := &storage.PortalChallenge{
		AccountID: account.AccountID,
		Nonce:     "deadbeef",
		ExpiresAt: time.Now().Unix() + 60,
	}
	sig := hmacHex(t, pubKeyRaw, challenge.Nonce)
	if err := VerifyChallenge(challenge, account, sig); err != nil {
		t.Fatalf("VerifyChallenge() error = %v", err)
	}
}

func TestVerifyChallengeRejectsExpired(t *testing.T) {
	pubKeyRaw := make([]byte, 32)
	pubKey := base64.StdEncoding.EncodeToString(pubKeyRaw)
	account, _ := CreateAccount("dave", pubKey)
	challenge := &storage.PortalChallenge{
		AccountID: account.AccountID,
		Nonce:     "deadbeef",
		ExpiresAt: time.Now().Unix() - 1,
	}
	sig := hmacHex(t, pubKeyRaw, challenge.Nonce)
	if err := VerifyChallenge(challenge, account, sig); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestVerifyChallengeRejectsUsed(t *testing.T) {
	pubKeyRaw := make([]byte, 32)
	pubKey := base64.StdEncoding.EncodeToString(pubKeyRaw)
	account, _ := CreateAccount("erin", pubKey)
	challenge := &storage.PortalChallenge{
		AccountID: account.AccountID,
		Nonce:     "deadbeef",
		ExpiresAt: time.Now().Unix() + 60,
		Used:      true,
	}
	sig := hmacHex(t, pubKeyRaw, challenge.Nonce)
	if err := VerifyChallenge(challenge, account, sig); err == nil {
		t.Fatal("expected already-used error")
	}
}

func TestMintAndRequireSessionRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := newTestSettings()

	tok, err := MintSession(cfg, "acct-123")
	if err != nil {
		t.Fatalf("MintSession() error = %v", err)
	}
	if err := s.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.InsertPortalSession(ctx, tok.Session)
	}); err != nil {
		t.Fatalf("InsertPortalSession() error = %v", err)
	}

	identity, err := RequireSession(ctx, cfg, s, tok.Compact)
	if err != nil {
		t.Fatalf("RequireSession() error = %v", err)
	}
	if identity.AccountID != "acct-123" {
		t.Fatalf("AccountID = %q, want acct-123", identity.AccountID)
	}
}

func TestRequireSessionRejectsTamperedToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg := newTestSettings()

	tok, err := MintSession(cfg, "acct-123")
	if err != nil {
		t.Fatalf("MintSession() error = %v", err)
	}
	if err := s.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.InsertPortalSession(ctx, tok.Session)
	}); err != nil {
		t.Fatalf("InsertPortalSession() error = %v", err)
	}

	tampered := tok.Compact + "x"
	if _, err := RequireSession(ctx, cfg, s, tampered); err == nil {
		t.Fatal("expected MAC verification failure on tampered token")
	}
}
