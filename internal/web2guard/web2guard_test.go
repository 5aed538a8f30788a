package web2guard

import (
	"context"
	"testing"
)

func testAllowlist() Allowlist {
	return Allowlist{
		{ID: "example", Host: "example.com", PathPrefix: "/api", Methods: map[string]bool{"GET": true}},
	}
}

func TestDispatchDeniesIPLiteral(t *testing.T) {
	g := New(testAllowlist())
	_, _, err := g.Dispatch(context.Background(), "https://127.0.0.1/", "GET", nil)
	if err == nil {
		t.Fatal("expected ALLOWLIST_DENY for IP literal host")
	}
}

func TestDispatchDeniesNonHTTPS(t *testing.T) {
	g := New(testAllowlist())
	_, _, err := g.Dispatch(context.Background(), "http://example.com/api", "GET", nil)
	if err == nil {
		t.Fatal("expected ALLOWLIST_DENY for non-https scheme")
	}
}

func TestDispatchDeniesUnmatchedHost(t *testing.T) {
	g := New(testAllowlist())
	_, _, err := g.Dispatch(context.Background(), "https://evil.example.net/api", "GET", nil)
	if err == nil {
		t.Fatal("expected ALLOWLIST_DENY for unmatched host")
	}
}

func TestDispatchDeniesPathTraversal(t *testing.T) {
	g := New(testAllowlist())
	_, _, err := g.Dispatch(context.Background(), "https://example.com/api/../secret", "GET", nil)
	if err == nil {
		t.Fatal("expected ALLOWLIST_DENY for path traversal")
	}
}

func TestDispatchDeniesOversizedBody(t *testing.T) {
	g := New(testAllowlist())
	body := make([]byte, MaxBodyBytes+1)
	_, _, err := g.Dispatch(context.Background(), "https://example.com/api", "POST", body)
	if err == nil {
		t.Fatal("expected PARAM_INVALID for oversized body")
	}
}

func TestAllowlistMatchRequiresMethod(t *testing.T) {
	a := testAllowlist()
	if _, ok := a.Match("example.com", "/api/foo", "POST"); ok {
		t.Fatal("expected no match: POST is not allowlisted for this entry")
	}
	if _, ok := a.Match("example.com", "/api/foo", "GET"); !ok {
		t.Fatal("expected match for allowlisted GET")
	}
}
