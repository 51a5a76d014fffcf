package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAggregateOperation("Treatment.Accept", "success", time.Millisecond)
	m.IncAggregateConflict("Treatment.Delete")
	m.ObserveSourceCall("scihub", "timeout", time.Second)
	m.IncCacheLookup("hit")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nil metrics handler should 404, got %d", rec.Code)
	}
}

func TestMetricsCountAndExpose(t *testing.T) {
	m := NewMetrics()
	m.ObserveAggregateOperation("Treatment.Accept", "success", time.Millisecond)
	m.ObserveAggregateOperation("Treatment.Accept", "invalid_state", time.Millisecond)
	m.ObserveAcquisition("mock", "mock", 2*time.Second)
	m.ObserveSourceCall("planetary_computer", "unavailable", time.Second)

	if got := testutil.ToFloat64(m.aggregateOps.WithLabelValues("Treatment.Accept", "invalid_state")); got != 1 {
		t.Fatalf("invalid_state count: got %v", got)
	}
	if got := testutil.ToFloat64(m.acquisitions.WithLabelValues("mock", "mock")); got != 1 {
		t.Fatalf("acquisition count: got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "fc_ndvi_source_calls_total") || !strings.Contains(body, `source="planetary_computer"`) {
		t.Fatalf("exposition missing source calls:\n%s", body)
	}
}
