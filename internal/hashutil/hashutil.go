// Package hashutil implements the canonical encoding and identifier
// derivation rules shared by every module that produces a deterministic
// digest: evidence state hashes, receipt IDs, wallet addresses, order IDs
// and the chat room hash-chain.
package hashutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Sum256Hex returns the lowercase hex SHA-256 digest of framed byte fields.
// Fields are length-prefixed before hashing so that e.g. ("ab","c") and
// ("a","bc") never collide.
func Sum256Hex(fields ...[]byte) string {
	h := sha256.New()
	for _, f := range fields {
		var lenBuf [8]byte
		n := len(f)
		for i := 0; i < 8; i++ {
			lenBuf[7-i] = byte(n)
			n >>= 8
		}
		h.Write(lenBuf[:])
		h.Write(f)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Sum256 is Sum256Hex over plain strings, joined with no framing — used
// where the upstream construction is a bare concatenation such as
// "prefix:run_id" rather than length-prefixed fields.
func Sum256(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DeterministicID reproduces prefix + "-" + sha256(prefix+":"+runID)[:16],
// the construction used for every derived identifier in the system
// (order_id, receipt_id, wallet_address-like derivations keyed on run_id).
func DeterministicID(prefix, runID string) string {
	digest := Sum256(prefix, ":", runID)
	return prefix + "-" + digest[:16]
}

// CanonicalJSON marshals v with sorted object keys and compact separators,
// matching the canonicalisation used for hashing and evidence payloads.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return canonicalEncode(generic)
}

func canonicalEncode(v any) ([]byte, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			out = append(out, kb...)
			out = append(out, ':')
			vb, err := canonicalEncode(t[k])
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		out = append(out, '}')
		return out, nil
	case []any:
		out := []byte{'['}
		for i, e := range t {
			if i > 0 {
				out = append(out, ',')
			}
			eb, err := canonicalEncode(e)
			if err != nil {
				return nil, err
			}
			out = append(out, eb...)
		}
		out = append(out, ']')
		return out, nil
	default:
		return json.Marshal(t)
	}
}

// CanonicalDigestHex hashes the canonical JSON encoding of v.
func CanonicalDigestHex(v any) (string, error) {
	b, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HMACSHA256Hex computes HMAC-SHA256(key, msg) rendered as lowercase hex.
func HMACSHA256Hex(key, msg []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// TimingSafeEqualHex compares two hex-encoded digests/MACs in constant time.
// Malformed hex is treated as unequal rather than erroring, since callers
// use this purely as a boolean gate.
func TimingSafeEqualHex(a, b string) bool {
	ab, errA := hex.DecodeString(a)
	bb, errB := hex.DecodeString(b)
	if errA != nil || errB != nil {
		return false
	}
	return subtle.ConstantTimeCompare(ab, bb) == 1
}
