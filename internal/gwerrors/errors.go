// Package gwerrors implements the stable error-code taxonomy of the gateway
// (spec §7). Every code maps to exactly one HTTP status; handlers never
// invent ad-hoc status codes for domain failures.
package gwerrors

import "fmt"

// Code is one of the stable error-code strings returned in the JSON error
// envelope's "error.code" field.
type Code string

const (
	AuthRequired            Code = "AUTH_REQUIRED"
	AuthInvalid             Code = "AUTH_INVALID"
	ParamRequired           Code = "PARAM_REQUIRED"
	ParamInvalid            Code = "PARAM_INVALID"
	AddressMismatch         Code = "ADDRESS_MISMATCH"
	FromAddressMismatch     Code = "FROM_ADDRESS_MISMATCH"
	FaucetAddressMismatch   Code = "FAUCET_ADDRESS_MISMATCH"
	TaskAlreadyClaimed      Code = "TASK_ALREADY_CLAIMED"
	TaskIncomplete          Code = "TASK_INCOMPLETE"
	TaskUnknown             Code = "TASK_UNKNOWN"
	FaucetCooldown          Code = "FAUCET_COOLDOWN"
	FaucetDailyClaims       Code = "FAUCET_DAILY_CLAIMS_EXCEEDED"
	FaucetDailyAmount       Code = "FAUCET_DAILY_AMOUNT_EXCEEDED"
	FaucetIPLimit           Code = "FAUCET_IP_LIMIT_EXCEEDED"
	InsufficientBalance     Code = "INSUFFICIENT_BALANCE"
	AllowlistDeny           Code = "ALLOWLIST_DENY"
	UpstreamTimeout         Code = "UPSTREAM_TIMEOUT"
	UpstreamHTTPError       Code = "UPSTREAM_HTTP_ERROR"
	UpstreamUnavailable     Code = "UPSTREAM_UNAVAILABLE"
	UpstreamBadJSON         Code = "UPSTREAM_BAD_JSON"
	RiskLimit               Code = "RISK_LIMIT"
	AccountRateLimit        Code = "ACCOUNT_RATE_LIMIT"
	ComplianceUnauthorized  Code = "COMPLIANCE_UNAUTHORIZED"
	ComplianceForbidden     Code = "COMPLIANCE_FORBIDDEN"
	ComplianceError         Code = "COMPLIANCE_ERROR"
	ComplianceUnavailable   Code = "COMPLIANCE_UNAVAILABLE"
	BadRequest              Code = "BAD_REQUEST"
)

var statusByCode = map[Code]int{
	AuthRequired:           401,
	AuthInvalid:            401,
	ParamRequired:          400,
	ParamInvalid:           400,
	AddressMismatch:        403,
	FromAddressMismatch:    403,
	FaucetAddressMismatch:  403,
	TaskAlreadyClaimed:     409,
	TaskIncomplete:         409,
	TaskUnknown:            404,
	FaucetCooldown:         429,
	FaucetDailyClaims:      429,
	FaucetDailyAmount:      429,
	FaucetIPLimit:          429,
	InsufficientBalance:    400,
	AllowlistDeny:          400,
	UpstreamTimeout:        504,
	UpstreamHTTPError:      502,
	UpstreamUnavailable:    502,
	UpstreamBadJSON:        502,
	RiskLimit:              429,
	AccountRateLimit:       429,
	ComplianceUnauthorized: 401,
	ComplianceForbidden:    403,
	ComplianceError:        500,
	ComplianceUnavailable:  503,
	BadRequest:             400,
}

// GatewayError is the single typed error every layer above the storage
// driver returns. The HTTP layer maps it directly to the JSON error
// envelope; anything else is treated as a programming error (§7) and
// becomes a sanitized generic 500.
type GatewayError struct {
	ErrCode Code
	Msg     string
	Details map[string]any
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Msg)
}

// HTTPStatus returns the status code this error's Code maps to, defaulting
// to 400 for a code with no table entry (should not happen for codes
// constructed via New/Newf below).
func (e *GatewayError) HTTPStatus() int {
	if status, ok := statusByCode[e.ErrCode]; ok {
		return status
	}
	return 400
}

// New constructs a GatewayError for the given stable code.
func New(code Code, msg string) *GatewayError {
	return &GatewayError{ErrCode: code, Msg: msg}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *GatewayError {
	return &GatewayError{ErrCode: code, Msg: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured details and returns the same error for
// chaining at the call site.
func (e *GatewayError) WithDetails(details map[string]any) *GatewayError {
	e.Details = details
	return e
}

// As reports whether err is a *GatewayError, unwrapping if necessary.
func As(err error) (*GatewayError, bool) {
	ge, ok := err.(*GatewayError)
	return ge, ok
}
