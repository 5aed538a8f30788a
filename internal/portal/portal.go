// Package portal implements the identity/challenge-response/session
// lifecycle of spec §4.10: account creation, challenge issue and verify,
// and session minting and validation. Profile updates and the room hash
// chain are applied in internal/router. The teacher repo has no analogue for a
// symmetric-MAC session token (its "identity" is a libp2p peer ID), so
// this package is grounded directly on spec §3/§4.10/§9 and the
// HMAC/constant-time primitives already factored into internal/hashutil.
package portal

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/hashutil"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
	"github.com/nyx-testnet/nyx-gateway/internal/storage"
)

var handlePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// CreateAccount validates a new handle/public key pair and derives the
// account's identifiers per spec §4.10.
func CreateAccount(handle, pubKeyB64 string) (*storage.PortalAccount, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if len(handle) < 3 || len(handle) > 24 || !handlePattern.MatchString(handle) {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "handle must be 3-24 lowercase alnum/_- characters")
	}
	raw, err := base64.StdEncoding.DecodeString(pubKeyB64)
	if err != nil || len(raw) < 16 {
		return nil, gwerrors.New(gwerrors.ParamInvalid, "public_key must be base64 of at least 16 raw bytes")
	}

	accountID := hashutil.Sum256("portal:acct:", handle, ":", pubKeyB64)[:16]
	walletAddress := hashutil.Sum256("wallet:", accountID)[:16]

	return &storage.PortalAccount{
		AccountID:     accountID,
		Handle:        handle,
		PublicKey:     pubKeyB64,
		WalletAddress: walletAddress,
		Status:        "active",
		Bio:           "",
		CreatedAt:     time.Now().Unix(),
	}, nil
}

// IssueChallenge mints a random single-use nonce for accountID with a TTL
// taken from cfg.ChallengeTTLSecs.
func IssueChallenge(cfg *settings.Settings, accountID string) (*storage.PortalChallenge, error) {
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	return &storage.PortalChallenge{
		AccountID: accountID,
		Nonce:     hex.EncodeToString(nonceBytes),
		ExpiresAt: now + int64(cfg.ChallengeTTLSecs),
		Used:      false,
		CreatedAt: now,
	}, nil
}

// VerifyChallenge checks that challenge is unexpired and unused, then
// verifies sigHex as HMAC-SHA256(pubkey_raw, nonce) — a symmetric-MAC
// stand-in for a real signature per spec §9's open question. Callers must
// mark the challenge used in the same transaction (atomic consume).
//
// TODO: swap for an asymmetric signature (ed25519) once the portal
// carries a real keypair instead of a bare base64 blob; spec §9 flags
// this as security-theatre intentionally preserved for cross-language
// replay parity.
func VerifyChallenge(challenge *storage.PortalChallenge, account *storage.PortalAccount, sigHex string) error {
	now := time.Now().Unix()
	if challenge.Used {
		return gwerrors.New(gwerrors.AuthInvalid, "challenge already used")
	}
	if now > challenge.ExpiresAt {
		return gwerrors.New(gwerrors.AuthInvalid, "challenge expired")
	}
	raw, err := base64.StdEncoding.DecodeString(account.PublicKey)
	if err != nil {
		return gwerrors.New(gwerrors.AuthInvalid, "account public key malformed")
	}
	expected := hashutil.HMACSHA256Hex(raw, []byte(challenge.Nonce))
	if !hashutil.TimingSafeEqualHex(expected, sigHex) {
		return gwerrors.New(gwerrors.AuthInvalid, "signature verification failed")
	}
	return nil
}

// sessionHeader is the fixed header of every minted token; it never
// varies, so it is not re-derived per call.
const sessionHeader = `{"alg":"HS256","typ":"NYXSESSION"}`

// sessionPayload is the JSON body MAC-signed into a session token.
type sessionPayload struct {
	Sub string `json:"sub"`
	Sid string `json:"sid"`
	Exp int64  `json:"exp"`
	Iat int64  `json:"iat"`
	Ver int    `json:"ver"`
}

// Token is a minted session: the compact string handed to the caller plus
// the row persisted alongside it.
type Token struct {
	Compact string
	Session *storage.PortalSession
}

// MintSession builds a compact header.payload.mac session token for
// accountID, matching spec §4.10's "header_b64 . payload_b64 . mac"
// construction exactly (not a third-party JWT library's own encoding,
// which would not reproduce this bit-for-bit — see DESIGN.md).
func MintSession(cfg *settings.Settings, accountID string) (*Token, error) {
	now := time.Now().Unix()
	sid := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	payload := sessionPayload{
		Sub: accountID,
		Sid: sid,
		Exp: now + int64(cfg.SessionTTLSecs),
		Iat: now,
		Ver: 1,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	headerB64 := base64.RawURLEncoding.EncodeToString([]byte(sessionHeader))
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)
	signed := headerB64 + "." + payloadB64
	mac := hashutil.HMACSHA256Hex([]byte(cfg.SessionSecret), []byte(signed))
	compact := signed + "." + mac

	return &Token{
		Compact: compact,
		Session: &storage.PortalSession{
			TokenDigest: hashutil.Sum256("session:", compact),
			AccountID:   accountID,
			ExpiresAt:   payload.Exp,
			CreatedAt:   now,
		},
	}, nil
}

// ParseToken splits a compact token and verifies its MAC in constant
// time, returning the decoded payload without consulting the session
// table (callers combine this with a session row lookup in
// RequireSession).
func ParseToken(cfg *settings.Settings, compact string) (*sessionPayload, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return nil, gwerrors.New(gwerrors.AuthInvalid, "malformed session token")
	}
	signed := parts[0] + "." + parts[1]
	expected := hashutil.HMACSHA256Hex([]byte(cfg.SessionSecret), []byte(signed))
	if !hashutil.TimingSafeEqualHex(expected, parts[2]) {
		return nil, gwerrors.New(gwerrors.AuthInvalid, "session MAC verification failed")
	}
	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, gwerrors.New(gwerrors.AuthInvalid, "malformed session payload")
	}
	var payload sessionPayload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, gwerrors.New(gwerrors.AuthInvalid, "malformed session payload")
	}
	return &payload, nil
}

// TokenDigest is the storage lookup key for a compact token — sessions
// are keyed by digest rather than the raw token so the session table
// never stores a bearer-equivalent value in cleartext.
func TokenDigest(compact string) string {
	return hashutil.Sum256("session:", compact)
}

// Identity is what RequireSession returns on success: the verified
// account ID and the underlying session row (for logout/expiry checks).
type Identity struct {
	AccountID string
	Session   *storage.PortalSession
}

// RequireSession implements spec §4.10's require_session: MAC
// verification, session-row lookup, subject/account-id match, and an
// expiry check — all three conditions from spec §8's "Session validity"
// invariant.
func RequireSession(ctx context.Context, cfg *settings.Settings, store *storage.Store, compact string) (*Identity, error) {
	payload, err := ParseToken(cfg, compact)
	if err != nil {
		return nil, err
	}
	sess, err := store.GetPortalSession(ctx, TokenDigest(compact))
	if err != nil {
		return nil, gwerrors.New(gwerrors.AuthInvalid, "session not found")
	}
	if sess.AccountID != payload.Sub {
		return nil, gwerrors.New(gwerrors.AuthInvalid, "session subject mismatch")
	}
	now := time.Now().Unix()
	if now > sess.ExpiresAt {
		return nil, gwerrors.New(gwerrors.AuthInvalid, "session expired")
	}
	return &Identity{AccountID: sess.AccountID, Session: sess}, nil
}
