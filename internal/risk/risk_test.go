package risk

import (
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/settings"
)

func mustTestSettings(t *testing.T) *settings.Settings {
	t.Helper()
	cfg, err := settings.Load()
	if err != nil {
		t.Fatalf("settings.Load() error = %v", err)
	}
	return cfg
}

func TestLimiterAllowsWithinBudget(t *testing.T) {
	l := NewLimiter()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 0, 3, 0, 60) {
			t.Fatalf("call %d should be allowed within budget of 3", i)
		}
	}
}

func TestLimiterRejectsOverBudget(t *testing.T) {
	l := NewLimiter()
	for i := 0; i < 3; i++ {
		l.Allow("k", 0, 3, 0, 60)
	}
	if l.Allow("k", 0, 3, 0, 60) {
		t.Fatal("4th call should exceed a budget of 3")
	}
}

func TestLimiterEnforcesAmountCap(t *testing.T) {
	l := NewLimiter()
	if !l.Allow("k", 400, 0, 500, 60) {
		t.Fatal("400 should fit under a 500 cap")
	}
	if l.Allow("k", 200, 0, 500, 60) {
		t.Fatal("cumulative 600 should exceed a 500 cap")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter()
	for i := 0; i < 3; i++ {
		l.Allow("a", 0, 3, 0, 60)
	}
	if !l.Allow("b", 0, 3, 0, 60) {
		t.Fatal("a separate key should have its own budget")
	}
}

func TestEngineGlobalPauseBlocksEverything(t *testing.T) {
	cfg := mustTestSettings(t)
	cfg.RiskGlobalMutationsPaused = true
	e := NewEngine(cfg)
	if err := e.Check("wallet_transfer", "acct-1", "1.2.3.4", 10); err == nil {
		t.Fatal("expected error when mutations are globally paused")
	}
}

func TestEngineEnforceModeRejectsOverLimit(t *testing.T) {
	cfg := mustTestSettings(t)
	cfg.RiskMode = settings.RiskEnforce
	cfg.RiskAccount.MaxCount = 1
	e := NewEngine(cfg)
	if err := e.Check("wallet_transfer", "acct-1", "1.2.3.4", 1); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	if err := e.Check("wallet_transfer", "acct-1", "1.2.3.4", 1); err == nil {
		t.Fatal("second call should exceed per-account cap of 1")
	}
}

func TestEngineMonitorModeNeverRejects(t *testing.T) {
	cfg := mustTestSettings(t)
	cfg.RiskMode = settings.RiskMonitor
	cfg.RiskAccount.MaxCount = 1
	e := NewEngine(cfg)
	e.Check("wallet_transfer", "acct-1", "1.2.3.4", 1)
	if err := e.Check("wallet_transfer", "acct-1", "1.2.3.4", 1); err != nil {
		t.Fatalf("monitor mode must never reject, got %v", err)
	}
}
