package metrics

import (
	"strconv"
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
		Namespace: "routeguide",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routeguide",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// RPC metrics, fed by DispatchHook
	rpcCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routeguide",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total dispatched calls by method, kind and outcome",
	}, []string{"method", "kind", "outcome"})

	rpcCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routeguide",
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "Duration of dispatched calls; streams are measured open to close",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
	}, []string{"method", "kind"})

	rpcInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "routeguide",
		Subsystem: "rpc",
		Name:      "calls_in_flight",
		Help:      "Calls currently being served",
	}, []string{"method"})

	// Chat metrics
	ChatSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routeguide",
		Subsystem: "chat",
		Name:      "sessions",
		Help:      "Current number of RouteChat sessions",
	})

	chatNotesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "routeguide",
		Subsystem: "chat",
		Name:      "notes_delivered_total",
		Help:      "Notes enqueued for delivery to a session",
	})

	chatNotesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "routeguide",
		Subsystem: "chat",
		Name:      "notes_dropped_total",
		Help:      "Notes dropped because a session queue was full",
	})

	RelayedNotes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routeguide",
		Subsystem: "chat",
		Name:      "relayed_notes_total",
		Help:      "Notes exchanged with other replicas",
	}, []string{"direction"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routeguide",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	// Catalog
	CatalogFeatures = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routeguide",
		Subsystem: "catalog",
		Name:      "features",
		Help:      "Number of features loaded into the index",
	})

	CatalogLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routeguide",
		Subsystem: "catalog",
		Name:      "load_duration_seconds",
		Help:      "Duration of catalog loads by source",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"source"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routeguide",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routeguide",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routeguide",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// ObserveBroadcast records the outcome of one chat broadcast.
func ObserveBroadcast(delivered, dropped int) {
	chatNotesDelivered.Add(float64(delivered))
	chatNotesDropped.Add(float64(dropped))
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

// poolStat is the subset of pgxpool.Stat the pool gauges need.
type poolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics updates database pool gauges from a *pgxpool.Stat.
func UpdateDBPoolMetrics(stat any) {
	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
