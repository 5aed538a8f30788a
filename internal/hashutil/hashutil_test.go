package hashutil

import "testing"

func TestDeterministicIDStable(t *testing.T) {
	a := DeterministicID("order", "run-1")
	b := DeterministicID("order", "run-1")
	if a != b {
		t.Fatalf("expected stable id, got %q vs %q", a, b)
	}
	if len(a) != len("order")+1+16 {
		t.Fatalf("unexpected id length: %q", a)
	}
	if a[:6] != "order-" {
		t.Fatalf("expected dash-joined prefix, got %q", a)
	}
}

func TestDeterministicIDVariesWithRunID(t *testing.T) {
	a := DeterministicID("order", "run-1")
	b := DeterministicID("order", "run-2")
	if a == b {
		t.Fatalf("expected distinct ids for distinct run_id")
	}
}

func TestCanonicalJSONSortsKeys(t *testing.T) {
	v := map[string]any{"b": 1, "a": 2}
	out, err := CanonicalJSON(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"a":2,"b":1}` {
		t.Fatalf("unexpected canonical encoding: %s", out)
	}
}

func TestCanonicalDigestHexDeterministic(t *testing.T) {
	v1 := map[string]any{"x": 1, "y": "z"}
	v2 := map[string]any{"y": "z", "x": 1}
	d1, err := CanonicalDigestHex(v1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d2, err := CanonicalDigestHex(v2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("expected key-order independent digest, got %s vs %s", d1, d2)
	}
}

func TestTimingSafeEqualHex(t *testing.T) {
	if !TimingSafeEqualHex("abcd", "abcd") {
		t.Fatalf("expected equal digests to compare equal")
	}
	if TimingSafeEqualHex("abcd", "abce") {
		t.Fatalf("expected differing digests to compare unequal")
	}
	if TimingSafeEqualHex("not-hex", "abcd") {
		t.Fatalf("expected malformed hex to compare unequal")
	}
}

func TestHMACSHA256Hex(t *testing.T) {
	sig1 := HMACSHA256Hex([]byte("key"), []byte("msg"))
	sig2 := HMACSHA256Hex([]byte("key"), []byte("msg"))
	if sig1 != sig2 {
		t.Fatalf("expected stable HMAC")
	}
	if len(sig1) != 64 {
		t.Fatalf("expected 32-byte hex digest, got len %d", len(sig1))
	}
}
