package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frostctl",
			Subsystem: "device",
			Name:      "exchanges_total",
			Help:      "Logical device exchanges by operation and outcome.",
		},
		[]string{"op", "outcome", "status"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "frostctl",
			Subsystem: "device",
			Name:      "exchange_duration_seconds",
			Help:      "Logical device exchange duration in seconds.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"op"},
	)
	apdus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frostctl",
			Subsystem: "device",
			Name:      "apdus_total",
			Help:      "APDU frames exchanged by purpose.",
		},
		[]string{"op", "kind"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frostctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"bridge", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "frostctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"bridge", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(exchanges, exchangeDuration, apdus, httpRequests, httpDuration)
	})
}

// Exchange summarizes one logical device exchange.
type Exchange struct {
	Op       string
	Chunks   int
	Pages    int
	Status   uint16
	Failed   bool
	Duration time.Duration
}

func RecordExchange(e Exchange) {
	RegisterMetrics()
	outcome := "complete"
	if e.Failed {
		outcome = "failed"
	}
	status := "none"
	if e.Status != 0 {
		status = "0x" + strconv.FormatUint(uint64(e.Status), 16)
	}
	exchanges.WithLabelValues(e.Op, outcome, status).Inc()
	exchangeDuration.WithLabelValues(e.Op).Observe(e.Duration.Seconds())
	if e.Chunks > 0 {
		apdus.WithLabelValues(e.Op, "chunk").Add(float64(e.Chunks))
	}
	if e.Pages > 0 {
		apdus.WithLabelValues(e.Op, "page").Add(float64(e.Pages))
	}
}

func RecordHTTPRequest(bridge, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(bridge, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(bridge, method, path, statusLabel).Observe(duration.Seconds())
}
