package settings

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"NYX_ENV", "NYX_SESSION_SECRET", "NYX_TREASURY_ADDRESS", "NYX_PORT",
		"NYX_RISK_MODE", "NYX_COMPLIANCE_MODE", "NYX_COMPLIANCE_URL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDevDefaults(t *testing.T) {
	clearEnv(t)
	s, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Env != Dev {
		t.Fatalf("expected dev environment, got %q", s.Env)
	}
	if s.SessionSecret == "" || s.TreasuryAddress == "" {
		t.Fatalf("expected dev fallbacks to be non-empty")
	}
}

func TestValidateRejectsShortSecretInProd(t *testing.T) {
	clearEnv(t)
	t.Setenv("NYX_ENV", "prod")
	t.Setenv("NYX_SESSION_SECRET", "too-short")
	t.Setenv("NYX_TREASURY_ADDRESS", "treasury-address-long-enough")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for short session secret in prod")
	}
}

func TestValidateAcceptsProdWithStrongSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("NYX_ENV", "prod")
	t.Setenv("NYX_SESSION_SECRET", "this-session-secret-is-at-least-32-chars")
	t.Setenv("NYX_TREASURY_ADDRESS", "treasury-address-long-enough")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsComplianceURLMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("NYX_COMPLIANCE_MODE", "fail_open")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when compliance mode set without url")
	}
}
