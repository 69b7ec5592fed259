// Package metrics exposes prometheus instrumentation for the ledger and the
// HTTP surface on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by name and outcome.",
		},
		[]string{"operation", "result"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger operations including the journal commit.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)

	EscrowHeld = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "marketplace",
		Subsystem: "escrow",
		Name:      "held",
		Help:      "Value currently held in escrow across all sellers.",
	})

	Withdrawn = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "escrow",
		Name:      "withdrawn_total",
		Help:      "Value paid out to sellers since process start.",
	})

	BreakerActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "marketplace",
		Subsystem: "breaker",
		Name:      "active",
		Help:      "1 when value-moving operations are enabled.",
	})

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(
		Operations,
		OperationDuration,
		EscrowHeld,
		Withdrawn,
		BreakerActive,
		RequestDuration,
	)
}

func ObserveOperation(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Operations.WithLabelValues(operation, result).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func SetBreaker(active bool) {
	if active {
		BreakerActive.Set(1)
		return
	}
	BreakerActive.Set(0)
}

func ObserveRequest(method, route string, status int, d time.Duration) {
	RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
