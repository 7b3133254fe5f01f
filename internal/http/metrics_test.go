package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeMetricPath(t *testing.T) {
	cases := map[string]string{
		"/":                       "/",
		"/metrics":                "/metrics",
		"/api/v1/reports":         "/api/v1/reports",
		"/api/v1/reports/abc-123": "/api/v1/reports/{id}",
		"/api/v1/session/login":   "/api/v1/session/login",
	}
	for in, want := range cases {
		if got := normalizeMetricPath(in); got != want {
			t.Fatalf("normalizeMetricPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeLabel(t *testing.T) {
	if got := escapeLabel(`a"b\c`); got != `a\"b\\c` {
		t.Fatalf("unexpected escaped label %q", got)
	}
}

func TestMetricsHandler_ExposesSeries(t *testing.T) {
	recordHTTPMetric(http.MethodGet, "/api/v1/reports", http.StatusOK, 0.01)
	recordSessionOp("Read", 0.001, nil)
	recordExternalProbe("trustbond", "ListReports", 0.02, nil)
	recordBatchLoad("ok", 0.05)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	metricsHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	body := rr.Body.String()
	for _, want := range []string{
		"tb_dashboard_http_requests_total",
		"tb_dashboard_session_op_duration_seconds_count",
		"tb_dashboard_external_probe_duration_seconds_count",
		"tb_dashboard_batch_loads_total",
		"tb_dashboard_uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metric %q in exposition", want)
		}
	}
}

func TestAppMetricsSummaryHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics/app", nil)
	rr := httptest.NewRecorder()
	appMetricsSummaryHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
}
