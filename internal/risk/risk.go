// Package risk implements the fixed-window rate limiter and risk-engine
// counters of spec §4.14: per-IP/per-account request throttling plus a
// {global,account,ip,action}-scoped count/amount limiter with a circuit
// breaker, all guarded by a single mutex per limiter (spec §5's "only one
// shared in-process mutable structure"). The teacher has no in-process
// rate limiter of its own (P2P peer scoring is out of this module's
// domain); the mutex-guarded map shape here follows the same
// lock-around-a-plain-map discipline the teacher uses in its swap monitor
// (internal/swap/monitor.go's mutex-guarded backend map), applied fresh
// to spec §4.14's counters.
package risk

import (
	"sync"
	"time"

	"github.com/nyx-testnet/nyx-gateway/internal/gwerrors"
	"github.com/nyx-testnet/nyx-gateway/internal/settings"
)

// window is a single fixed-window counter: it resets wholesale once now
// advances past windowEnd, rather than sliding.
type window struct {
	count     int
	amount    int64
	windowEnd int64
}

// Limiter is a generic fixed-window counter keyed by an arbitrary string
// (IP, account ID, or "scope:key" composite). One mutex covers the whole
// map; spec §5 explicitly calls this out as the only shared mutable
// in-process state in the system.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter constructs an empty limiter.
func NewLimiter() *Limiter {
	return &Limiter{windows: make(map[string]*window)}
}

// Allow increments key's counter for the current fixed window (windowSecs
// wide) and reports whether count/amount stay within maxCount/maxAmount.
// A maxCount or maxAmount of 0 means that axis is unbounded. The
// increment always happens, even when Allow reports false, matching the
// Python original's "count even rejected attempts" semantics so a client
// hammering the limit doesn't get a free retry budget.
func (l *Limiter) Allow(key string, amount int64, maxCount int, maxAmount int64, windowSecs int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().Unix()
	w, ok := l.windows[key]
	if !ok || now >= w.windowEnd {
		w = &window{windowEnd: now + int64(windowSecs)}
		l.windows[key] = w
	}
	w.count++
	w.amount += amount

	if maxCount > 0 && w.count > maxCount {
		return false
	}
	if maxAmount > 0 && w.amount > maxAmount {
		return false
	}
	return true
}

// RateLimiter composes the two fixed-window counters spec §4.14 requires
// on every mutating endpoint: one keyed by client IP, one by account.
type RateLimiter struct {
	ip      *Limiter
	account *Limiter
	cfg     *settings.Settings
}

// NewRateLimiter builds the IP/account limiter pair from cfg's configured
// per-minute caps.
func NewRateLimiter(cfg *settings.Settings) *RateLimiter {
	return &RateLimiter{ip: NewLimiter(), account: NewLimiter(), cfg: cfg}
}

// Check enforces both counters for one mutating request, returning the
// first violated limit's stable error code.
func (r *RateLimiter) Check(clientIP, accountID string) error {
	if !r.ip.Allow("ip:"+clientIP, 0, r.cfg.RateLimitPerIPPerMin, 0, 60) {
		return gwerrors.New(gwerrors.RiskLimit, "per-ip rate limit exceeded")
	}
	if accountID != "" && !r.account.Allow("acct:"+accountID, 0, r.cfg.RateLimitPerAccountPerMin, 0, 60) {
		return gwerrors.New(gwerrors.AccountRateLimit, "per-account rate limit exceeded")
	}
	return nil
}

// breaker tracks rolling failures for one action, opening when the
// failure count within its window reaches the configured threshold.
type breaker struct {
	mu        sync.Mutex
	failures  int
	windowEnd int64
}

// Engine layers the {global,account,ip,action}-scoped count/amount caps
// and circuit breaker described in spec §4.14 on top of the basic
// RateLimiter. Mode governs whether a breach is rejected ("enforce") or
// let through ("monitor"/"off"); the Engine does not log breaches itself.
type Engine struct {
	cfg      *settings.Settings
	counters *Limiter
	breakers sync.Map // action -> *breaker
}

// NewEngine constructs a risk Engine from cfg.
func NewEngine(cfg *settings.Settings) *Engine {
	return &Engine{cfg: cfg, counters: NewLimiter()}
}

// Check runs every configured scope for (action, accountID, clientIP,
// amount) and returns the first violation found — unless
// cfg.RiskMode is "off"/"monitor", in which case violations never block
// (the caller may still choose to log them; Check returns nil either
// way when mode isn't "enforce").
func (e *Engine) Check(action, accountID, clientIP string, amount int64) error {
	if e.cfg.RiskGlobalMutationsPaused {
		return gwerrors.New(gwerrors.RiskLimit, "mutations are globally paused")
	}
	if err := e.breakerCheck(action); err != nil {
		return err
	}

	violated := e.scopeViolated("global", "all", e.cfg.RiskGlobal, amount) ||
		(accountID != "" && e.scopeViolated("account", accountID, e.cfg.RiskAccount, amount)) ||
		(clientIP != "" && e.scopeViolated("ip", clientIP, e.cfg.RiskIP, amount))

	if limit, ok := e.cfg.RiskAction[action]; ok {
		if e.scopeViolated("action", action, limit, amount) {
			violated = true
		}
	}

	if violated && e.cfg.RiskMode == settings.RiskEnforce {
		return gwerrors.New(gwerrors.RiskLimit, "risk limit exceeded for "+action)
	}
	return nil
}

func (e *Engine) scopeViolated(scope, key string, limit settings.RiskLimit, amount int64) bool {
	windowSecs := limit.WindowSeconds
	if windowSecs <= 0 {
		windowSecs = 60
	}
	return !e.counters.Allow(scope+":"+key, amount, limit.MaxCount, int64(limit.MaxAmount), windowSecs)
}

// RecordFailure registers one failed mutating call against action's
// circuit breaker.
func (e *Engine) RecordFailure(action string) {
	b := e.breakerFor(action)
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().Unix()
	if now >= b.windowEnd {
		b.failures = 0
		b.windowEnd = now + int64(e.cfg.RiskBreakerWindowSecs)
	}
	b.failures++
}

func (e *Engine) breakerCheck(action string) error {
	b := e.breakerFor(action)
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().Unix()
	if now >= b.windowEnd {
		return nil
	}
	if e.cfg.RiskBreakerErrorsPerMin > 0 && b.failures >= e.cfg.RiskBreakerErrorsPerMin {
		if e.cfg.RiskMode == settings.RiskEnforce {
			return gwerrors.New(gwerrors.RiskLimit, "circuit breaker open for "+action)
		}
	}
	return nil
}

func (e *Engine) breakerFor(action string) *breaker {
	v, _ := e.breakers.LoadOrStore(action, &breaker{})
	return v.(*breaker)
}
