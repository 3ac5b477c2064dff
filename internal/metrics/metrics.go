package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhooks_total", Help: "Webhook deliveries by outcome"},
		[]string{"outcome"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted to the venue"},
		[]string{"coin", "side", "leg"},
	)
	OrderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_failures_total", Help: "Orders the venue rejected or that failed in transit"},
		[]string{"leg"},
	)
	MidsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "mids_total", Help: "Mid price snapshots received over the websocket"},
	)
)

// Outcome labels for WebhooksTotal.
const (
	OutcomeExecuted = "executed"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

func init() {
	prometheus.MustRegister(WebhooksTotal, OrdersTotal, OrderFailuresTotal, MidsTotal)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// NewServer builds an unstarted server exposing /metrics on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
