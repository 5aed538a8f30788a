package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/portal"
)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

// session resolves the caller's identity from the request's bearer token.
// Session lookup runs through Store-level methods only, before any
// transaction opens: portal.RequireSession must never be called from
// inside a router.Executor transaction, since storage.Store's pool holds
// exactly one connection and the open transaction already owns it.
func (s *Server) session(ctx context.Context, r *http.Request) (*portal.Identity, string, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, "", gwerrors.New(gwerrors.AuthRequired, "bearer token required")
	}
	id, err := portal.RequireSession(ctx, s.cfg, s.store, token)
	if err != nil {
		return nil, "", err
	}
	return id, token, nil
}

// optionalSession is like session but tolerates a missing/invalid token,
// returning a nil identity rather than an error: some legacy endpoints
// (spec §9) accept both authenticated and unauthenticated callers.
func (s *Server) optionalSession(ctx context.Context, r *http.Request) *portal.Identity {
	token := bearerToken(r)
	if token == "" {
		return nil
	}
	id, err := portal.RequireSession(ctx, s.cfg, s.store, token)
	if err != nil {
		return nil
	}
	return id
}

// walletAddress resolves the caller's wallet address for an authenticated
// identity by re-reading its portal account row.
func (s *Server) walletAddress(ctx context.Context, accountID string) (string, error) {
	account, err := s.store.GetPortalAccount(ctx, accountID)
	if err != nil {
		return "", gwerrors.New(gwerrors.AuthInvalid, "account not found")
	}
	return account.WalletAddress, nil
}
