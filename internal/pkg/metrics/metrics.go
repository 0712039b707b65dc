package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cumulus",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cumulus",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cumulus",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Detection metrics
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cumulus",
		Subsystem: "cycle",
		Name:      "runs_total",
		Help:      "Detection cycles by outcome",
	}, []string{"outcome"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cumulus",
		Subsystem: "cycle",
		Name:      "duration_seconds",
		Help:      "Duration of a full detection cycle",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
	})

	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cumulus",
		Subsystem: "detection",
		Name:      "results_total",
		Help:      "Classified crossings by detection type",
	}, []string{"type"})

	OutOfBounds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cumulus",
		Subsystem: "detection",
		Name:      "out_of_bounds_total",
		Help:      "Crossings that projected outside the image frame",
	})

	HighResRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cumulus",
		Subsystem: "highres",
		Name:      "requests_total",
		Help:      "High-resolution follow-up requests by outcome",
	}, []string{"outcome"})

	ImageryFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cumulus",
		Subsystem: "imagery",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of imagery downloads",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	ImageryFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cumulus",
		Subsystem: "imagery",
		Name:      "fetch_errors_total",
		Help:      "Total failed imagery downloads",
	}, []string{"kind"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cumulus",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cumulus",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cumulus",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cumulus",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cumulus",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cumulus",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// normalizePath reduces path cardinality for metrics.
func normalizePath(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready" || path == "/v1/crossings" ||
		path == "/v1/detections/latest" || path == "/v1/selection" ||
		path == "/graphql" || path == "/metrics":
		return path
	case strings.HasPrefix(path, "/output/"):
		return "/output/*"
	default:
		// /v1/detections/:name, /v1/highres/:borderNumber, etc.
		return path // fiber already resolves to route pattern
	}
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		path = normalizePath(path)
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	// Structural match keeps pgxpool out of this package.
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
