package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds the HTTP-level Prometheus collectors. The ranking services keep
// their own in service.Metrics.
var Metrics = struct {
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	DBPoolActive     prometheus.GaugeFunc
	DBPoolIdle       prometheus.GaugeFunc
}{}

// InitMetrics creates and registers the HTTP collectors. Call once at startup;
// pool may be nil.
func InitMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	Metrics.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ese_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ese_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	collectors := []prometheus.Collector{Metrics.RequestDuration, Metrics.RequestsInFlight}

	if pool != nil {
		Metrics.DBPoolActive = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "ese_db_connection_pool_active",
				Help: "Number of active database connections.",
			},
			func() float64 {
				return float64(pool.Stat().AcquiredConns())
			},
		)

		Metrics.DBPoolIdle = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "ese_db_connection_pool_idle",
				Help: "Number of idle database connections.",
			},
			func() float64 {
				return float64(pool.Stat().IdleConns())
			},
		)
		collectors = append(collectors, Metrics.DBPoolActive, Metrics.DBPoolIdle)
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MetricsMiddleware records request duration and in-flight count. It is a no-op
// until InitMetrics has run.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if Metrics.RequestDuration == nil || c.Path() == "/metrics" {
			return c.Next()
		}

		// Fiber returns strings backed by the fasthttp buffer; copy before Next.
		method := strings.Clone(c.Method())
		endpoint := sanitizeEndpoint(strings.Clone(c.Path()))

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		Metrics.RequestsInFlight.Dec()

		return err
	}
}

// sanitizeEndpoint collapses creator IDs to keep label cardinality bounded.
func sanitizeEndpoint(path string) string {
	const prefix = "/api/creators/"
	if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return path
	}
	if strings.HasSuffix(path, "/refresh") {
		return prefix + ":id/refresh"
	}
	return prefix + ":id"
}

// MetricsHandler serves the Prometheus text format for gatherer.
func MetricsHandler(gatherer prometheus.Gatherer) fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
