package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one API instance. Each instance owns its
// registry so tests can build as many routers as they like.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	reviewsCreated   prometheus.Counter
	reviewConflicts  prometheus.Counter
	watchlistChanges *prometheus.CounterVec
	registrations    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moviereviews",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviereviews",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "moviereviews",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "path"}),
		reviewsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moviereviews",
			Subsystem: "reviews",
			Name:      "created_total",
			Help:      "Reviews stored.",
		}),
		reviewConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moviereviews",
			Subsystem: "reviews",
			Name:      "conflicts_total",
			Help:      "Review writes rejected because the user already reviewed the movie.",
		}),
		watchlistChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviereviews",
			Subsystem: "watchlist",
			Name:      "changes_total",
			Help:      "Watchlist additions and removals.",
		}, []string{"op"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviereviews",
			Subsystem: "users",
			Name:      "registrations_total",
			Help:      "Accounts created, by role.",
		}, []string{"role"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.reviewsCreated,
		m.reviewConflicts,
		m.watchlistChanges,
		m.registrations,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the route template,
// so /api/movies/:id is one series regardless of the id.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ReviewCreated()  { m.reviewsCreated.Inc() }
func (m *Metrics) ReviewConflict() { m.reviewConflicts.Inc() }

func (m *Metrics) WatchlistAdded()   { m.watchlistChanges.WithLabelValues("add").Inc() }
func (m *Metrics) WatchlistRemoved() { m.watchlistChanges.WithLabelValues("remove").Inc() }

func (m *Metrics) UserRegistered(role string) { m.registrations.WithLabelValues(role).Inc() }
