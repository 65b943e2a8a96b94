package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/sessioncore"
	"github.com/MrEthical07/sessioncore/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot sessioncore.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() sessioncore.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestCollectorCounters(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: sessioncore.MetricsSnapshot{
			Counters: map[sessioncore.MetricID]uint64{
				sessioncore.MetricLoginSuccess:         7,
				sessioncore.MetricRefreshReuseDetected: 2,
			},
		},
		dropped: 3,
	})

	expected := `
# HELP sessioncore_login_success_total Successful logins.
# TYPE sessioncore_login_success_total counter
sessioncore_login_success_total 7
# HELP sessioncore_refresh_reuse_detected_total Consumed refresh credentials presented again.
# TYPE sessioncore_refresh_reuse_detected_total counter
sessioncore_refresh_reuse_detected_total 2
# HELP sessioncore_audit_dropped_total Audit events dropped because the dispatcher buffer was full.
# TYPE sessioncore_audit_dropped_total counter
sessioncore_audit_dropped_total 3
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sessioncore_login_success_total",
		"sessioncore_refresh_reuse_detected_total",
		internaldefs.AuditDroppedName,
	)
	if err != nil {
		t.Fatal(err)
	}

	if n := testutil.CollectAndCount(c); n != len(internaldefs.CounterDefs)+1 {
		t.Fatalf("expected %d series without histograms, got %d", len(internaldefs.CounterDefs)+1, n)
	}
}

func TestCollectorHistogram(t *testing.T) {
	c := NewCollector(fakeSource{snapshot: sessioncore.MetricsSnapshot{
		Counters: map[sessioncore.MetricID]uint64{},
		Histograms: map[sessioncore.MetricID][]uint64{
			sessioncore.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
		},
	}})

	expected := `
# HELP sessioncore_validate_latency_seconds Access credential validation latency.
# TYPE sessioncore_validate_latency_seconds histogram
sessioncore_validate_latency_seconds_bucket{le="0.005"} 1
sessioncore_validate_latency_seconds_bucket{le="0.01"} 3
sessioncore_validate_latency_seconds_bucket{le="0.025"} 6
sessioncore_validate_latency_seconds_bucket{le="0.05"} 10
sessioncore_validate_latency_seconds_bucket{le="0.1"} 15
sessioncore_validate_latency_seconds_bucket{le="0.25"} 21
sessioncore_validate_latency_seconds_bucket{le="0.5"} 28
sessioncore_validate_latency_seconds_bucket{le="+Inf"} 36
sessioncore_validate_latency_seconds_sum 0
sessioncore_validate_latency_seconds_count 36
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "sessioncore_validate_latency_seconds"); err != nil {
		t.Fatal(err)
	}
}

func TestCollectorLintsClean(t *testing.T) {
	c := NewCollector(fakeSource{snapshot: sessioncore.MetricsSnapshot{Counters: map[sessioncore.MetricID]uint64{}}})
	problems, err := testutil.CollectAndLint(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 0 {
		t.Fatalf("lint problems: %v", problems)
	}
}

func TestCollectorRegistersWithEngine(t *testing.T) {
	engine := &sessioncore.Engine{}
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector(engine)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	h, err := Handler(fakeSource{snapshot: sessioncore.MetricsSnapshot{
		Counters: map[sessioncore.MetricID]uint64{sessioncore.MetricLogout: 4},
	}})
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sessioncore_logout_total 4") {
		t.Fatalf("expected logout counter, got:\n%s", rec.Body.String())
	}
}
