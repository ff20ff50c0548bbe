package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsRecordingAndHandler(t *testing.T) {
	m := NewMetrics("test")

	m.RecordRequestLatency("/health", "GET", "200", 0.01)
	m.RecordHTTPRequest("/health", "GET", "200")
	m.IncHTTPRequestsInFlight()
	m.DecHTTPRequestsInFlight()
	m.RecordError("upstream", "/api/leads", "GET")
	m.RecordGraphRequest("me/adaccounts", "success")
	m.RecordLeadsPersisted(42)
	m.RecordSyncRun("success", 1.5)
	m.RecordExport("csv")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "test_request_latency_seconds") {
		t.Fatalf("expected metrics output to contain request latency metric")
	}
	if !strings.Contains(body, "test_leads_persisted_total 42") {
		t.Fatalf("expected persisted-leads counter in output, got:\n%s", body)
	}

	if _, err := m.registry.Gather(); err != nil {
		t.Fatalf("expected gather to succeed: %v", err)
	}
}
