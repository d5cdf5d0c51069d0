// Package metrics exposes the gateway's Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the slice of the collector the session layer uses.
type Recorder interface {
	RecordLogin(outcome string)
	RecordRefresh(outcome string)
}

// Collector registers and feeds all gateway metrics.
type Collector struct {
	requests  *prometheus.CounterVec
	latency   prometheus.Histogram
	logins    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spellbook_gateway_requests_total",
			Help: "Requests handled, by method and status code.",
		}, []string{"method", "status_code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spellbook_gateway_request_latency_seconds",
			Help:    "Request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spellbook_gateway_logins_total",
			Help: "Login attempts, by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spellbook_gateway_refreshes_total",
			Help: "Token refresh attempts, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(c.requests, c.latency, c.logins, c.refreshes)
	return c
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRefresh(outcome string) {
	c.refreshes.WithLabelValues(outcome).Inc()
}

// GinMiddleware feeds the request counter and latency histogram.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(g *gin.Context) {
		ts := time.Now()
		g.Next()

		c.requests.WithLabelValues(
			g.Request.Method,
			strconv.Itoa(g.Writer.Status()),
		).Inc()
		c.latency.Observe(time.Since(ts).Seconds())
	}
}

// NopRecorder satisfies Recorder when metrics are not wired, e.g. in
// tests.
type NopRecorder struct{}

func (NopRecorder) RecordLogin(string)   {}
func (NopRecorder) RecordRefresh(string) {}
