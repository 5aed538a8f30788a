// Package settings loads and validates the gateway's environment-driven
// configuration, following the getEnv/getEnvInt/getEnvBool accessor
// pattern used across the retrieved pack's service configs, combined with
// the bounds-validated settings snapshot described in spec §4.2.
package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment selects the deployment profile. prod/staging tighten the
// defaults that are acceptable for a throwaway dev instance.
type Environment string

const (
	Dev     Environment = "dev"
	Staging Environment = "staging"
	Prod    Environment = "prod"
)

// RiskMode controls whether the risk engine rejects a breach ("enforce") or
// lets it through ("monitor"/"off").
type RiskMode string

const (
	RiskOff     RiskMode = "off"
	RiskMonitor RiskMode = "monitor"
	RiskEnforce RiskMode = "enforce"
)

// ComplianceMode controls the fail-open/fail-closed behaviour of the
// optional compliance stub (spec.md Non-goals excludes real KYC; the call
// shape itself is ambient infrastructure carried regardless).
type ComplianceMode string

const (
	ComplianceOff        ComplianceMode = "off"
	ComplianceFailOpen   ComplianceMode = "fail_open"
	ComplianceFailClosed ComplianceMode = "fail_closed"
)

// RiskLimit bounds a counter scope to a max event count and/or amount over
// a window.
type RiskLimit struct {
	MaxCount     int // 0 means unset
	MaxAmount    int // 0 means unset
	WindowSeconds int
}

// Settings is the fully validated configuration snapshot handed to every
// component at construction time.
type Settings struct {
	Env Environment

	Host string
	Port int

	DataDir string

	SessionSecret    string
	ChallengeTTLSecs int
	SessionTTLSecs   int

	ExportTokenTTLSecs int

	TreasuryAddress  string
	FeeAddress       string
	PlatformFeeBps   int
	ProtocolFeeFloor int // minimum protocol_fee_total for a state mutation

	FaucetCooldownSecs     int
	FaucetMaxClaimsPerDay  int
	FaucetMaxAmountPerDay  int
	FaucetMaxClaimsPerIP   int
	FaucetDefaultAmount    int

	RiskMode                  RiskMode
	RiskGlobalMutationsPaused bool
	RiskGlobal                RiskLimit
	RiskAccount               RiskLimit
	RiskIP                    RiskLimit
	RiskAction                map[string]RiskLimit
	RiskBreakerErrorsPerMin   int
	RiskBreakerWindowSecs     int

	RateLimitPerIPPerMin      int
	RateLimitPerAccountPerMin int

	ComplianceMode ComplianceMode
	ComplianceURL  string

	RunRoot string
}

// Load reads Settings from the process environment. Call an env-file
// loader such as godotenv.Load before Load if --env-file was supplied.
func Load() (*Settings, error) {
	env := Environment(strings.ToLower(getEnv("NYX_ENV", string(Dev))))

	s := &Settings{
		Env:  env,
		Host: getEnv("NYX_HOST", "0.0.0.0"),
		Port: getEnvInt("NYX_PORT", 8080),

		DataDir: getEnv("NYX_DATA_DIR", "./data"),

		SessionSecret:    getEnv("NYX_SESSION_SECRET", devDefault(env, "dev-session-secret-not-for-prod")),
		ChallengeTTLSecs: getEnvInt("NYX_CHALLENGE_TTL_SECONDS", 300),
		SessionTTLSecs:   getEnvInt("NYX_SESSION_TTL_SECONDS", 86400),

		ExportTokenTTLSecs: getEnvInt("NYX_EXPORT_TOKEN_TTL_SECONDS", 300),

		TreasuryAddress:  getEnv("NYX_TREASURY_ADDRESS", devDefault(env, "treasury-dev")),
		FeeAddress:       getEnv("NYX_FEE_ADDRESS", devDefault(env, "treasury-dev")),
		PlatformFeeBps:   getEnvInt("NYX_PLATFORM_FEE_BPS", 50),
		ProtocolFeeFloor: getEnvInt("NYX_PROTOCOL_FEE_FLOOR", 1),

		FaucetCooldownSecs:    getEnvInt("NYX_FAUCET_COOLDOWN_SECONDS", 3600),
		FaucetMaxClaimsPerDay: getEnvInt("NYX_FAUCET_MAX_CLAIMS_PER_DAY", 5),
		FaucetMaxAmountPerDay: getEnvInt("NYX_FAUCET_MAX_AMOUNT_PER_DAY", 5000),
		FaucetMaxClaimsPerIP:  getEnvInt("NYX_FAUCET_MAX_CLAIMS_PER_IP_PER_DAY", 10),
		FaucetDefaultAmount:   getEnvInt("NYX_FAUCET_DEFAULT_AMOUNT", 100),

		RiskMode:                  RiskMode(getEnv("NYX_RISK_MODE", string(RiskMonitor))),
		RiskGlobalMutationsPaused: getEnvBool("NYX_RISK_GLOBAL_PAUSED", false),
		RiskGlobal:                RiskLimit{MaxCount: getEnvInt("NYX_RISK_GLOBAL_MAX_PER_MIN", 2000), MaxAmount: getEnvInt("NYX_RISK_GLOBAL_MAX_AMOUNT_PER_MIN", 0), WindowSeconds: 60},
		RiskAccount:               RiskLimit{MaxCount: getEnvInt("NYX_RISK_ACCOUNT_MAX_PER_MIN", 60), MaxAmount: getEnvInt("NYX_RISK_ACCOUNT_MAX_AMOUNT_PER_MIN", 0), WindowSeconds: 60},
		RiskIP:                    RiskLimit{MaxCount: getEnvInt("NYX_RISK_IP_MAX_PER_MIN", 120), MaxAmount: getEnvInt("NYX_RISK_IP_MAX_AMOUNT_PER_MIN", 0), WindowSeconds: 60},
		RiskBreakerErrorsPerMin:   getEnvInt("NYX_RISK_BREAKER_ERRORS_PER_MIN", 20),
		RiskBreakerWindowSecs:     getEnvInt("NYX_RISK_BREAKER_WINDOW_SECONDS", 60),

		RateLimitPerIPPerMin:      getEnvInt("NYX_RATE_LIMIT_IP_PER_MIN", 120),
		RateLimitPerAccountPerMin: getEnvInt("NYX_RATE_LIMIT_ACCOUNT_PER_MIN", 60),

		ComplianceMode: ComplianceMode(getEnv("NYX_COMPLIANCE_MODE", string(ComplianceOff))),
		ComplianceURL:  getEnv("NYX_COMPLIANCE_URL", ""),

		RunRoot: getEnv("NYX_RUN_ROOT", "./runs"),
	}

	s.RiskAction = map[string]RiskLimit{
		"wallet_faucet":       {MaxCount: getEnvInt("NYX_RISK_FAUCET_MAX_PER_MIN", 5), MaxAmount: getEnvInt("NYX_RISK_MAX_FAUCET_AMOUNT", 5000), WindowSeconds: 60},
		"wallet_transfer":     {MaxCount: getEnvInt("NYX_RISK_TRANSFER_MAX_PER_MIN", 30), MaxAmount: getEnvInt("NYX_RISK_MAX_TRANSFER_AMOUNT", 100000), WindowSeconds: 60},
		"wallet_airdrop":      {MaxCount: getEnvInt("NYX_RISK_AIRDROP_MAX_PER_MIN", 10), MaxAmount: getEnvInt("NYX_RISK_MAX_AIRDROP_AMOUNT", 2000), WindowSeconds: 60},
		"exchange_order":      {MaxCount: getEnvInt("NYX_RISK_EXCHANGE_ORDERS_PER_MIN", 60), MaxAmount: getEnvInt("NYX_RISK_MAX_ORDER_NOTIONAL", 1000000), WindowSeconds: 60},
		"exchange_cancel":     {MaxCount: getEnvInt("NYX_RISK_EXCHANGE_CANCELS_PER_MIN", 60), WindowSeconds: 60},
		"marketplace_purchase": {MaxCount: getEnvInt("NYX_RISK_MARKETPLACE_ORDERS_PER_MIN", 30), MaxAmount: getEnvInt("NYX_RISK_MAX_STORE_NOTIONAL", 1000000), WindowSeconds: 60},
		"chat_message":        {MaxCount: getEnvInt("NYX_RISK_CHAT_MESSAGES_PER_MIN", 120), WindowSeconds: 60},
		"portal_verify":       {MaxCount: getEnvInt("NYX_RISK_PORTAL_VERIFY_PER_MIN", 20), WindowSeconds: 60},
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate enforces the staging/prod session-secret and treasury-address
// floors from spec §4.2; dev is permitted to fall back to documented
// insecure defaults.
func (s *Settings) Validate() error {
	switch s.Env {
	case Dev, Staging, Prod:
	default:
		return fmt.Errorf("settings: invalid NYX_ENV %q", s.Env)
	}

	if s.Env == Staging || s.Env == Prod {
		if len(s.SessionSecret) < 32 {
			return fmt.Errorf("settings: NYX_SESSION_SECRET must be at least 32 characters in %s", s.Env)
		}
		if len(s.TreasuryAddress) < 8 {
			return fmt.Errorf("settings: NYX_TREASURY_ADDRESS must be at least 8 characters in %s", s.Env)
		}
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("settings: NYX_PORT out of range: %d", s.Port)
	}
	switch s.RiskMode {
	case RiskOff, RiskMonitor, RiskEnforce:
	default:
		return fmt.Errorf("settings: invalid NYX_RISK_MODE %q", s.RiskMode)
	}
	switch s.ComplianceMode {
	case ComplianceOff, ComplianceFailOpen, ComplianceFailClosed:
	default:
		return fmt.Errorf("settings: invalid NYX_COMPLIANCE_MODE %q", s.ComplianceMode)
	}
	if s.ComplianceMode != ComplianceOff && s.ComplianceURL == "" {
		return fmt.Errorf("settings: NYX_COMPLIANCE_URL required when NYX_COMPLIANCE_MODE != off")
	}
	return nil
}

func devDefault(env Environment, fallback string) string {
	if env == Dev {
		return fallback
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
