// Package metrics provides Prometheus metrics for the REST transport.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector records one sample per REST request. It satisfies rest.Observer.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cbpro_rest_requests_total",
			Help: "REST requests sent to the exchange by method and status code (0 = no response)",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cbpro_rest_request_duration_seconds",
			Help:    "REST request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(c.requests, c.duration)

	return c
}

func (c *Collector) ObserveRequest(method string, code int, duration time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	c.duration.WithLabelValues(method).Observe(duration.Seconds())
}

// StartServer exposes the registry on addr under /metrics. Listen and serve
// failures are logged; closing the returned server is not an error.
func StartServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()

	return srv
}
