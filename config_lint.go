package sessioncore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/sessioncore/jwt"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a valid but questionable configuration choice.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins every warning at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	selected := r.BySeverity(min)
	if len(selected) == 0 {
		return nil
	}
	parts := make([]string, 0, len(selected))
	for _, w := range selected {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return errors.New("config lint: " + strings.Join(parts, "; "))
}

// Lint reports configuration choices that pass Validate but weaken the
// deployment. It never mutates c.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway above 1m widens the replay window of expired credentials")
	}
	if c.JWT.AccessTTL > 30*time.Minute {
		add("access_ttl_long", LintWarn, "access credentials cannot be revoked before expiry")
	}
	if c.JWT.RefreshTTL > 14*24*time.Hour {
		add("refresh_ttl_long", LintWarn, "refresh lifetime above 14d")
	}
	if alg, err := jwt.ParseAlgorithm(c.JWT.Algorithm); err == nil && alg != jwt.EdDSA {
		add("signing_hmac", LintInfo, "HMAC signing requires every verifier to hold the signing secret")
	}
	if c.JWT.Issuer == "" || c.JWT.Audience == "" {
		add("issuer_audience_unset", LintInfo, "issuer and audience checks are disabled")
	}

	if c.Security.MaxLoginAttempts == 0 && !c.Security.EnableRefreshThrottle {
		add("rate_limits_disabled", LintHigh, "login and refresh throttles are both disabled")
	} else if c.Security.MaxLoginAttempts > 0 && !c.Security.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "login throttle is keyed by email only")
	}
	if c.Security.ReplayPolicy == ReplayFlagOnly {
		add("replay_flag_only", LintHigh, "refresh reuse is reported but no session is revoked")
	}

	if c.Password.Memory < 64*1024 {
		add("argon2_memory_low", LintWarn, "argon2id memory below 64 MiB")
	}
	if !c.Password.UpgradeOnLogin {
		add("hash_upgrade_disabled", LintInfo, "legacy password hashes are never upgraded")
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "security events are not emitted")
	}
	if c.Session.OperationTimeout == 0 {
		add("store_timeout_unset", LintWarn, "store calls are bounded only by the caller context")
	}

	return ws
}
