package gwerrors

import (
	"errors"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		AuthRequired:        401,
		ParamInvalid:        400,
		AddressMismatch:     403,
		TaskAlreadyClaimed:  409,
		TaskUnknown:         404,
		FaucetCooldown:      429,
		InsufficientBalance: 400,
		UpstreamTimeout:     504,
		UpstreamHTTPError:   502,
		ComplianceError:     500,
		ComplianceUnavailable: 503,
	}
	for code, want := range cases {
		err := New(code, "boom")
		if got := err.HTTPStatus(); got != want {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(ParamInvalid, "%s out of bounds", "amount")
	if err.Msg != "amount out of bounds" {
		t.Fatalf("Msg = %q", err.Msg)
	}
}

func TestWithDetailsChains(t *testing.T) {
	err := New(ParamRequired, "missing").WithDetails(map[string]any{"param": "amount"})
	if err.Details["param"] != "amount" {
		t.Fatalf("Details = %v", err.Details)
	}
}

func TestAsUnwrapsGatewayError(t *testing.T) {
	err := New(AuthInvalid, "bad token")
	ge, ok := As(err)
	if !ok {
		t.Fatalf("As() ok = false, want true")
	}
	if ge.ErrCode != AuthInvalid {
		t.Fatalf("ErrCode = %s", ge.ErrCode)
	}

	if _, ok := As(errors.New("plain error")); ok {
		t.Fatalf("As() ok = true for non-gateway error")
	}
}

func TestErrorStringIncludesCodeAndMessage(t *testing.T) {
	err := New(BadRequest, "nope")
	if got := err.Error(); got != "BAD_REQUEST: nope" {
		t.Fatalf("Error() = %q", got)
	}
}
