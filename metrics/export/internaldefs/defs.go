package internaldefs

import (
	"github.com/MrEthical07/sessioncore"
)

type CounterDef struct {
	ID   sessioncore.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   sessioncore.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: sessioncore.MetricLoginSuccess, Name: "sessioncore_login_success_total", Help: "Successful logins."},
	{ID: sessioncore.MetricLoginFailure, Name: "sessioncore_login_failure_total", Help: "Logins rejected for bad credentials."},
	{ID: sessioncore.MetricLoginRateLimited, Name: "sessioncore_login_rate_limited_total", Help: "Logins rejected by the login throttle."},
	{ID: sessioncore.MetricRefreshSuccess, Name: "sessioncore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: sessioncore.MetricRefreshFailure, Name: "sessioncore_refresh_failure_total", Help: "Refresh attempts with an unusable credential."},
	{ID: sessioncore.MetricRefreshReuseDetected, Name: "sessioncore_refresh_reuse_detected_total", Help: "Consumed refresh credentials presented again."},
	{ID: sessioncore.MetricRefreshRateLimited, Name: "sessioncore_refresh_rate_limited_total", Help: "Refresh attempts rejected by the family throttle."},
	{ID: sessioncore.MetricRefreshUnavailable, Name: "sessioncore_refresh_unavailable_total", Help: "Refresh attempts failed by a backend outage."},
	{ID: sessioncore.MetricSessionCreated, Name: "sessioncore_session_created_total", Help: "Token families opened."},
	{ID: sessioncore.MetricSessionRevoked, Name: "sessioncore_session_revoked_total", Help: "Token families revoked."},
	{ID: sessioncore.MetricLogout, Name: "sessioncore_logout_total", Help: "Logout operations."},
	{ID: sessioncore.MetricValidateFailure, Name: "sessioncore_validate_failure_total", Help: "Rejected access credentials."},
	{ID: sessioncore.MetricPermissionDenied, Name: "sessioncore_permission_denied_total", Help: "Role checks that denied a principal."},
	{ID: sessioncore.MetricStoreUnavailable, Name: "sessioncore_store_unavailable_total", Help: "Operations failed by a session store outage."},
}

var HistogramDefs = []HistogramDef{
	{ID: sessioncore.MetricValidateLatency, Name: "sessioncore_validate_latency_seconds", Help: "Access credential validation latency."},
	{ID: sessioncore.MetricRefreshLatency, Name: "sessioncore_refresh_latency_seconds", Help: "Refresh rotation latency."},
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "sessioncore_audit_dropped_total"

const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

// BucketCount matches the engine's fixed histogram layout. The last bucket
// is +Inf.
const BucketCount = 8

// UpperBounds are the finite bucket bounds in seconds.
var UpperBounds = [BucketCount - 1]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BoundSuffix names each bucket, +Inf included, for exporters that flatten
// histograms into gauges.
var BoundSuffix = [BucketCount]string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// Cumulative converts the engine's non-cumulative buckets. Short input is
// zero-padded.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < BucketCount; i++ {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
