package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/matzehuels/pangraph")

// OTelHooks records every hook event as an OpenTelemetry instrument on the
// global meter provider. Instruments are created on first use; if creation
// fails the events are dropped.
type OTelHooks struct {
	once sync.Once
	err  error

	parseDuration  metric.Float64Histogram
	layoutDuration metric.Float64Histogram
	loadedNodes    metric.Int64Histogram
	loadErrors     metric.Int64Counter
	cacheLookups   metric.Int64Counter
	windowOps      metric.Int64Counter
	windowNodes    metric.Int64Counter
	httpDuration   metric.Float64Histogram
}

// NewOTelHooks creates hooks backed by otel.Meter.
func NewOTelHooks() *OTelHooks { return &OTelHooks{} }

func (h *OTelHooks) init() error {
	h.once.Do(func() {
		var err error
		defer func() { h.err = err }()

		if h.parseDuration, err = meter.Float64Histogram("pangraph_parse_duration_seconds",
			metric.WithDescription("Duration of GFA parsing"),
			metric.WithUnit("s")); err != nil {
			return
		}
		if h.layoutDuration, err = meter.Float64Histogram("pangraph_layout_duration_seconds",
			metric.WithDescription("Duration of layout assignment"),
			metric.WithUnit("s")); err != nil {
			return
		}
		if h.loadedNodes, err = meter.Int64Histogram("pangraph_loaded_nodes",
			metric.WithDescription("Number of nodes per parsed graph")); err != nil {
			return
		}
		if h.loadErrors, err = meter.Int64Counter("pangraph_load_errors_total",
			metric.WithDescription("Failed parse and layout stages")); err != nil {
			return
		}
		if h.cacheLookups, err = meter.Int64Counter("pangraph_cache_operations_total",
			metric.WithDescription("Cache hits, misses, and writes")); err != nil {
			return
		}
		if h.windowOps, err = meter.Int64Counter("pangraph_window_operations_total",
			metric.WithDescription("Window operations by kind")); err != nil {
			return
		}
		if h.windowNodes, err = meter.Int64Counter("pangraph_window_nodes_total",
			metric.WithDescription("Nodes added to or removed from windows")); err != nil {
			return
		}
		h.httpDuration, err = meter.Float64Histogram("pangraph_http_request_duration_seconds",
			metric.WithDescription("HTTP API latency"),
			metric.WithUnit("s"))
	})
	return h.err
}

func (h *OTelHooks) OnParseStart(context.Context, string) {}

func (h *OTelHooks) OnParseComplete(ctx context.Context, source string, nodeCount int, d time.Duration, err error) {
	if h.init() != nil {
		return
	}
	h.parseDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("success", err == nil)))
	if err != nil {
		h.loadErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "parse")))
		return
	}
	h.loadedNodes.Record(ctx, int64(nodeCount))
}

func (h *OTelHooks) OnLayoutStart(context.Context, int) {}

func (h *OTelHooks) OnLayoutComplete(ctx context.Context, d time.Duration, err error) {
	if h.init() != nil {
		return
	}
	h.layoutDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("success", err == nil)))
	if err != nil {
		h.loadErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "layout")))
	}
}

func (h *OTelHooks) OnCacheHit(ctx context.Context, kind string)  { h.cacheOp(ctx, kind, "hit") }
func (h *OTelHooks) OnCacheMiss(ctx context.Context, kind string) { h.cacheOp(ctx, kind, "miss") }
func (h *OTelHooks) OnCacheSet(ctx context.Context, kind string, _ int) {
	h.cacheOp(ctx, kind, "set")
}

func (h *OTelHooks) cacheOp(ctx context.Context, kind, result string) {
	if h.init() != nil {
		return
	}
	h.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
}

func (h *OTelHooks) OnWindowChange(ctx context.Context, op string, added, removed int) {
	if h.init() != nil {
		return
	}
	h.windowOps.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	h.windowNodes.Add(ctx, int64(added), metric.WithAttributes(attribute.String("change", "added")))
	h.windowNodes.Add(ctx, int64(removed), metric.WithAttributes(attribute.String("change", "removed")))
}

func (h *OTelHooks) OnRequest(context.Context, string, string) {}

func (h *OTelHooks) OnResponse(ctx context.Context, method, route string, status int, d time.Duration) {
	if h.init() != nil {
		return
	}
	h.httpDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

var (
	_ LoadHooks   = (*OTelHooks)(nil)
	_ CacheHooks  = (*OTelHooks)(nil)
	_ WindowHooks = (*OTelHooks)(nil)
	_ HTTPHooks   = (*OTelHooks)(nil)
)
