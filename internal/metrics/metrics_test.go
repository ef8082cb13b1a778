package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveSheetCall("Members", "read", time.Millisecond, nil)
	m.ObserveHTTP("/api/me", "GET", 200, time.Millisecond)
	m.ObservePayment("cash", "recorded")
	m.ObserveJob("reminder", errors.New("x"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil Handler status = %d, want 404", rec.Code)
	}
}

func TestObserveSheetCall(t *testing.T) {
	m := New()
	m.ObserveSheetCall("Members", "read", 10*time.Millisecond, nil)
	m.ObserveSheetCall("Members", "read", 10*time.Millisecond, errors.New("quota"))
	m.ObserveSheetCall("Members", "read", 10*time.Millisecond, nil)

	if got := testutil.ToFloat64(m.sheetCalls.WithLabelValues("Members", "read", "ok")); got != 2 {
		t.Errorf("ok calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.sheetCalls.WithLabelValues("Members", "read", "error")); got != 1 {
		t.Errorf("error calls = %v, want 1", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveHTTP("", "GET", 404, time.Millisecond)
	m.ObservePayment("online", "confirmed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`rwa_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`rwa_payments_total{mode="online",outcome="confirmed"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
