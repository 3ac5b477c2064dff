package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewServerExposesMetrics(t *testing.T) {
	srv := NewServer("127.0.0.1:0")
	if srv.Addr != "127.0.0.1:0" || srv.Handler == nil {
		t.Fatalf("unexpected server %+v", srv)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("unexpected /metrics status %d", rec.Code)
	}
}

func TestCountersRegistered(t *testing.T) {

	WebhooksTotal.WithLabelValues(OutcomeExecuted).Inc()
	OrdersTotal.WithLabelValues("BTC", "buy", "entry").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	want := map[string]bool{"webhooks_total": false, "orders_total": false}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("%s metric not found", name)
		}
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	MidsTotal.Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mids_total") {
		t.Fatalf("mids_total missing from exposition")
	}
}
