// Package web2guard implements the outbound "web2 guard" proxy of spec
// §4.11: an allowlist gate, SSRF defenses on the resolved destination, and
// bounded request/response handling whose hashes feed the evidence
// adapter. Grounded on the teacher's backend HTTP clients
// (internal/backend/esplora.go, internal/backend/blockbook.go) for the
// "bounded timeout, single http.Client, read-all-then-hash" shape, with
// the allowlist/SSRF checks built fresh from spec §4.11 (the teacher has
// no analogue — its outbound calls are to fixed, trusted block explorers).
package web2guard

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/hashutil"
)

const (
	MaxURLLen        = 256
	MaxBodyBytes     = 2048
	MaxResponseBytes = 100_000
	MaxSealedRequest = 4096
	RequestTimeout   = 8 * time.Second
)

// AllowlistEntry gates one outbound destination shape.
type AllowlistEntry struct {
	ID          string
	Host        string
	PathPrefix  string
	Methods     map[string]bool
}

// Allowlist is the full declarative table consulted on every request.
type Allowlist []AllowlistEntry

// DefaultAllowlist is a small starter table; production deployments load
// their own from configuration. Declared here so the gateway has a
// non-empty default surface to exercise in tests and local runs.
var DefaultAllowlist = Allowlist{
	{ID: "httpbin", Host: "httpbin.org", PathPrefix: "/", Methods: map[string]bool{"GET": true, "POST": true}},
	{ID: "ipify", Host: "api.ipify.org", PathPrefix: "/", Methods: map[string]bool{"GET": true}},
}

// Match returns the first allowlist entry matching host/path/method, or
// false if nothing matches.
func (a Allowlist) Match(host, path, method string) (AllowlistEntry, bool) {
	for _, e := range a {
		if e.Host != host {
			continue
		}
		if !strings.HasPrefix(path, e.PathPrefix) {
			continue
		}
		if !e.Methods[method] {
			continue
		}
		return e, true
	}
	return AllowlistEntry{}, false
}

// Request is the validated, pre-flight shape of an outbound call.
type Request struct {
	AllowlistID string
	SafeURL     string
	Method      string
	Body        []byte
}

// Result is everything the pipeline produces for one outbound call,
// ready to be folded into the evidence payload and persisted.
type Result struct {
	Status           int
	ResponseBytes    []byte
	ResponseSize     int
	Truncated        bool
	RequestHash      string
	ResponseHash     string
	HeaderNames      []string
	UpstreamError    string
}

// parseAndValidateURL enforces spec §4.11 step 1: https only, no
// userinfo, no custom port, a non-IP-literal host, and no ".." path
// segments.
func parseAndValidateURL(rawURL string) (*url.URL, error) {
	if len(rawURL) > MaxURLLen {
		return nil, gwerrors.New(gwerrors.AllowlistDeny, "url too long")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, gwerrors.New(gwerrors.AllowlistDeny, "url unparsable")
	}
	if u.Scheme != "https" {
		return nil, gwerrors.New(gwerrors.AllowlistDeny, "scheme must be https")
	}
	if u.User != nil {
		return nil, gwerrors.New(gwerrors.AllowlistDeny, "url must not carry userinfo")
	}
	if u.Port() != "" {
		return nil, gwerrors.New(gwerrors.AllowlistDeny, "url must not carry a custom port")
	}
	host := u.Hostname()
	if host == "" {
		return nil, gwerrors.New(gwerrors.AllowlistDeny, "url host required")
	}
	if net.ParseIP(host) != nil {
		return nil, gwerrors.New(gwerrors.AllowlistDeny, "url host must not be an IP literal")
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == ".." {
			return nil, gwerrors.New(gwerrors.AllowlistDeny, "url path must not traverse")
		}
	}
	return u, nil
}

// resolveAndCheckSSRF resolves host and denies if any resolved address is
// private/loopback/link-local/multicast/reserved/unspecified (spec §4.11
// step 3).
func resolveAndCheckSSRF(ctx context.Context, host string) error {
	resolver := &net.Resolver{}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return gwerrors.New(gwerrors.AllowlistDeny, "dns resolution failed")
	}
	if len(addrs) == 0 {
		return gwerrors.New(gwerrors.AllowlistDeny, "no addresses resolved")
	}
	for _, a := range addrs {
		if isDisallowedIP(a.IP) {
			return gwerrors.New(gwerrors.AllowlistDeny, "resolved address is not publicly routable")
		}
	}
	return nil
}

func isDisallowedIP(ip net.IP) bool {
	switch {
	case ip.IsLoopback(), ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(),
		ip.IsMulticast(), ip.IsUnspecified(), ip.IsPrivate():
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		// 240.0.0.0/4 is reserved, including the limited broadcast address.
		return ip4[0] >= 240
	}
	// IPv6 space outside 2000::/3 (global unicast) that is not already
	// covered above is reserved.
	return len(ip) == net.IPv6len && ip[0]&0xe0 != 0x20
}

// Guard composes the allowlist with an http.Client used for every
// outbound call; its Transport never follows redirects, per spec §4.11.
type Guard struct {
	Allowlist Allowlist
	client    *http.Client
}

// New builds a Guard whose client enforces RequestTimeout and never
// follows redirects (spec §4.11 step 4).
func New(allowlist Allowlist) *Guard {
	return &Guard{
		Allowlist: allowlist,
		client: &http.Client{
			Timeout: RequestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Dispatch validates, resolves, and performs one outbound call, enforcing
// every bound in spec §4.11. A body over MaxBodyBytes is rejected with
// ParamInvalid, and a URL, allowlist or SSRF failure with AllowlistDeny,
// before any request is sent; the router returns on those two codes
// without charging a fee.
func (g *Guard) Dispatch(ctx context.Context, rawURL, method string, body []byte) (*Request, *Result, error) {
	if len(body) > MaxBodyBytes {
		return nil, nil, gwerrors.New(gwerrors.ParamInvalid, "body exceeds max size")
	}
	method = strings.ToUpper(method)

	u, err := parseAndValidateURL(rawURL)
	if err != nil {
		return nil, nil, err
	}
	entry, ok := g.Allowlist.Match(u.Hostname(), u.Path, method)
	if !ok {
		return nil, nil, gwerrors.New(gwerrors.AllowlistDeny, "no allowlist entry matches host/path/method")
	}
	if err := resolveAndCheckSSRF(ctx, u.Hostname()); err != nil {
		return nil, nil, err
	}

	safeURL := u.String()
	req := &Request{AllowlistID: entry.ID, SafeURL: safeURL, Method: method, Body: body}

	timeoutCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(timeoutCtx, method, safeURL, bodyReader)
	if err != nil {
		return req, nil, gwerrors.New(gwerrors.UpstreamUnavailable, "failed to build upstream request")
	}

	requestHash := hashutil.Sum256(entry.ID, ":", method, ":", safeURL, ":", string(body))

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return req, &Result{RequestHash: requestHash, UpstreamError: "timeout"}, gwerrors.New(gwerrors.UpstreamTimeout, "upstream request timed out")
		}
		return req, &Result{RequestHash: requestHash, UpstreamError: err.Error()}, gwerrors.New(gwerrors.UpstreamUnavailable, "upstream unreachable")
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, MaxResponseBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return req, &Result{RequestHash: requestHash, UpstreamError: err.Error()}, gwerrors.New(gwerrors.UpstreamUnavailable, "failed reading upstream response")
	}
	truncated := len(data) > MaxResponseBytes
	if truncated {
		data = data[:MaxResponseBytes]
	}

	headerNames := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		headerNames = append(headerNames, name)
	}
	sort.Strings(headerNames)

	result := &Result{
		Status:        resp.StatusCode,
		ResponseBytes: data,
		ResponseSize:  len(data),
		Truncated:     truncated,
		RequestHash:   requestHash,
		ResponseHash:  hashutil.Sum256Hex(data),
		HeaderNames:   headerNames,
	}
	if resp.StatusCode >= 400 {
		return req, result, gwerrors.Newf(gwerrors.UpstreamHTTPError, "upstream returned status %d", resp.StatusCode)
	}
	return req, result, nil
}

// SealedRequest renders a bounded, operator-facing summary of req/result
// for audit logging — never the raw body, only shape metadata — and
// truncates to MaxSealedRequest characters.
func SealedRequest(req *Request, result *Result) string {
	sealed := req.Method + " " + req.SafeURL
	if result != nil {
		sealed += " -> " + strconv.Itoa(result.Status)
	}
	if len(sealed) > MaxSealedRequest {
		sealed = sealed[:MaxSealedRequest]
	}
	return sealed
}
