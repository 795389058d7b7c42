package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusHooks exports hook events as Prometheus collectors.
type PrometheusHooks struct {
	stageDuration *prometheus.HistogramVec
	loadedNodes   prometheus.Histogram
	cacheOps      *prometheus.CounterVec
	windowOps     *prometheus.CounterVec
	windowNodes   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewPrometheusHooks creates the collectors and registers them with reg.
// Registering twice with the same registry panics.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	h := &PrometheusHooks{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pangraph",
			Subsystem: "load",
			Name:      "stage_duration_seconds",
			Help:      "Duration of load stages in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage", "status"}),
		loadedNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pangraph",
			Subsystem: "load",
			Name:      "nodes",
			Help:      "Number of nodes per parsed graph",
			Buckets:   prometheus.ExponentialBuckets(10, 10, 7),
		}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pangraph",
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache hits, misses, and writes",
		}, []string{"kind", "result"}),
		windowOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pangraph",
			Subsystem: "window",
			Name:      "operations_total",
			Help:      "Window operations by kind",
		}, []string{"op"}),
		windowNodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pangraph",
			Subsystem: "window",
			Name:      "nodes_total",
			Help:      "Nodes added to or removed from windows",
		}, []string{"change"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pangraph",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP API requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pangraph",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP API latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		h.stageDuration, h.loadedNodes, h.cacheOps,
		h.windowOps, h.windowNodes, h.httpRequests, h.httpDuration,
	)
	return h
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (h *PrometheusHooks) OnParseStart(context.Context, string) {}

func (h *PrometheusHooks) OnParseComplete(_ context.Context, _ string, nodeCount int, d time.Duration, err error) {
	h.stageDuration.WithLabelValues("parse", status(err)).Observe(d.Seconds())
	if err == nil {
		h.loadedNodes.Observe(float64(nodeCount))
	}
}

func (h *PrometheusHooks) OnLayoutStart(context.Context, int) {}

func (h *PrometheusHooks) OnLayoutComplete(_ context.Context, d time.Duration, err error) {
	h.stageDuration.WithLabelValues("layout", status(err)).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, kind string) {
	h.cacheOps.WithLabelValues(kind, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, kind string) {
	h.cacheOps.WithLabelValues(kind, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, kind string, _ int) {
	h.cacheOps.WithLabelValues(kind, "set").Inc()
}

func (h *PrometheusHooks) OnWindowChange(_ context.Context, op string, added, removed int) {
	h.windowOps.WithLabelValues(op).Inc()
	h.windowNodes.WithLabelValues("added").Add(float64(added))
	h.windowNodes.WithLabelValues("removed").Add(float64(removed))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, statusCode int, d time.Duration) {
	h.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	h.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ LoadHooks   = (*PrometheusHooks)(nil)
	_ CacheHooks  = (*PrometheusHooks)(nil)
	_ WindowHooks = (*PrometheusHooks)(nil)
	_ HTTPHooks   = (*PrometheusHooks)(nil)
)
