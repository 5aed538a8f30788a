// Package exportauth mints and verifies the short-lived bearer token
// operational tooling presents to the evidence export endpoints
// (GET /export.zip, /proof.zip, POST /evidence/v1/replay's sealed variant).
// This is a distinct credential from a portal session: it is scoped to one
// account's export surface only and carries its own expiry, issued via
// golang-jwt/jwt's standard-claims encoding rather than the bespoke
// compact session format internal/portal uses for interactive logins.
package exportauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
)

const issuer = "nyx-gateway-export"

// Claims is the standard-claims body of an export token.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
}

// Mint signs a new export token scoped to accountID, expiring after
// cfg.ExportTokenTTLSecs.
func Mint(cfg *settings.Settings, accountID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(time.Duration(cfg.ExportTokenTTLSecs) * time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		AccountID: accountID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.SessionSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates an export token, returning the account ID it
// is scoped to.
func Verify(cfg *settings.Settings, tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, gwerrors.New(gwerrors.AuthInvalid, "unexpected export token signing method")
		}
		return []byte(cfg.SessionSecret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return "", gwerrors.New(gwerrors.AuthInvalid, "invalid export token")
	}
	if claims.AccountID == "" {
		return "", gwerrors.New(gwerrors.AuthInvalid, "export token missing account_id")
	}
	return claims.AccountID, nil
}
