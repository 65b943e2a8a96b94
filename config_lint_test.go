package sessioncore

import (
	"testing"
	"time"
)

func TestLint_DefaultConfigNoWarnings(t *testing.T) {
	cfg := defaultConfig()
	ws := cfg.Lint()

	codes := ws.Codes()

	if containsCode(codes, "rate_limits_disabled") {
		t.Error("default config should not have rate_limits_disabled")
	}
	if !containsCode(codes, "ip_throttle_disabled") {
		t.Error("default config throttles by email only")
	}
}

func TestLint_HighSecurityConfigMinimalWarnings(t *testing.T) {
	cfg := HighSecurityConfig()
	ws := cfg.Lint()
	codes := ws.Codes()

	// High security should not warn about most things.
	unwanted := []string{
		"leeway_large",
		"access_ttl_long",
		"refresh_ttl_long",
		"rate_limits_disabled",
		"replay_flag_only",
		"argon2_memory_low",
		"audit_disabled",
	}
	for _, code := range unwanted {
		if containsCode(codes, code) {
			t.Errorf("HighSecurityConfig should not produce warning %q", code)
		}
	}
}

func TestLint_LargeLeeway(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.Leeway = 90 * time.Second
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "leeway_large") {
		t.Error("expected leeway_large warning")
	}
}

func TestLint_LongAccessTTL(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 45 * time.Minute
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "access_ttl_long") {
		t.Error("expected access_ttl_long warning")
	}
}

func TestLint_LongRefreshTTL(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.RefreshTTL = 30 * 24 * time.Hour
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "refresh_ttl_long") {
		t.Error("expected refresh_ttl_long warning")
	}
}

func TestLint_ReplayFlagOnly(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.ReplayPolicy = ReplayFlagOnly
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "replay_flag_only") {
		t.Error("expected replay_flag_only warning")
	}
}

func TestLint_AllRateLimitsDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.MaxLoginAttempts = 0
	cfg.Security.EnableIPThrottle = false
	cfg.Security.EnableRefreshThrottle = false
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "rate_limits_disabled") {
		t.Error("expected rate_limits_disabled warning")
	}
}

func TestLint_AuditDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Audit.Enabled = false
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "audit_disabled") {
		t.Error("expected audit_disabled warning when audit is off")
	}
}

func TestLint_HMACWarning(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.Algorithm = "HS384"
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "signing_hmac") {
		t.Error("expected signing_hmac warning")
	}
	cfg.JWT.Algorithm = "EdDSA"
	if containsCode(cfg.Lint().Codes(), "signing_hmac") {
		t.Error("EdDSA should not produce signing_hmac")
	}
}

func TestLint_Argon2MemoryLow(t *testing.T) {
	cfg := defaultConfig()
	cfg.Password.Memory = 16 * 1024
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "argon2_memory_low") {
		t.Error("expected argon2_memory_low warning")
	}
}

func TestLint_NoWarningForGoodArgon2(t *testing.T) {
	cfg := defaultConfig()
	cfg.Password.Memory = 64 * 1024
	ws := cfg.Lint()
	if containsCode(ws.Codes(), "argon2_memory_low") {
		t.Error("should not warn when memory == 64 MB")
	}
}

func TestLint_SeverityAssignment(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.ReplayPolicy = ReplayFlagOnly
	ws := cfg.Lint()
	for _, w := range ws {
		if w.Code == "replay_flag_only" && w.Severity != LintHigh {
			t.Errorf("replay_flag_only should be HIGH, got %s", w.Severity)
		}
		if w.Code == "audit_disabled" && w.Severity != LintInfo {
			t.Errorf("audit_disabled should be INFO, got %s", w.Severity)
		}
	}
}

func TestLint_AsError(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Errorf("default config should not fail AsError(LintHigh): %v", err)
	}

	cfg.Security.ReplayPolicy = ReplayFlagOnly
	if err := cfg.Lint().AsError(LintHigh); err == nil {
		t.Error("expected AsError(LintHigh) to return error for contradictory config")
	}
}

func TestLint_BySeverity(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.ReplayPolicy = ReplayFlagOnly
	ws := cfg.Lint()

	high := ws.BySeverity(LintHigh)
	if len(high) == 0 {
		t.Error("expected at least one HIGH severity warning")
	}
	for _, w := range high {
		if w.Severity < LintHigh {
			t.Errorf("BySeverity(LintHigh) returned warning with severity %s", w.Severity)
		}
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
