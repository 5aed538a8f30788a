// Package compliance implements the optional "compliance" stub HTTP call
// carried into the gateway per SPEC_FULL.md's ambient-stack note: spec.md
// excludes real KYC from scope, but the call *shape* (an external POST
// gated by fail-open/fail-closed semantics) is ambient infrastructure any
// production-shaped fork of this service would carry. Grounded on the
// teacher's backend client pattern (internal/backend/esplora.go's bounded
// http.Client + JSON decode), simplified to the single stub check.
package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
)

const requestTimeout = 5 * time.Second

// Checker calls the optional external compliance endpoint, if configured.
type Checker struct {
	cfg    *settings.Settings
	client *http.Client
}

// New builds a Checker from cfg; when cfg.ComplianceMode is "off" every
// call to Check is a no-op success.
func New(cfg *settings.Settings) *Checker {
	return &Checker{cfg: cfg, client: &http.Client{Timeout: requestTimeout}}
}

type checkRequest struct {
	AccountID string `json:"account_id"`
	Action    string `json:"action"`
}

type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Check calls the configured compliance URL for (accountID, action). In
// "off" mode it always succeeds. In "fail_open" mode, any transport or
// decode error is treated as an allow (service unavailable ≠ deny). In
// "fail_closed" mode the same errors are treated as a deny — a
// configuration choice a production deployment makes deliberately, never
// a default.
func (c *Checker) Check(ctx context.Context, accountID, action string) error {
	if c.cfg.ComplianceMode == settings.ComplianceOff {
		return nil
	}

	body, err := json.Marshal(checkRequest{AccountID: accountID, Action: action})
	if err != nil {
		return gwerrors.New(gwerrors.ComplianceError, "failed to encode compliance request")
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.ComplianceURL, bytes.NewReader(body))
	if err != nil {
		return c.unavailable()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return c.unavailable()
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return gwerrors.New(gwerrors.ComplianceUnauthorized, "compliance check unauthorized")
	}
	if resp.StatusCode == http.StatusForbidden {
		return gwerrors.New(gwerrors.ComplianceForbidden, "compliance check forbidden")
	}
	if resp.StatusCode >= 500 {
		return c.unavailable()
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return c.unavailable()
	}
	if !out.Allowed {
		return gwerrors.Newf(gwerrors.ComplianceForbidden, "compliance denied: %s", out.Reason)
	}
	return nil
}

func (c *Checker) unavailable() error {
	if c.cfg.ComplianceMode == settings.ComplianceFailClosed {
		return gwerrors.New(gwerrors.ComplianceUnavailable, "compliance service unavailable")
	}
	return nil
}
