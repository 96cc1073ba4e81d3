// Package metrics exposes Prometheus collectors for the poller, the alert
// center and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blueprintdash/blueprintdash/pkg/types"
)

// Tick results recorded by RecordTick.
const (
	TickOK         = "ok"
	TickError      = "error"
	TickSuperseded = "superseded"
)

var (
	// Poller metrics
	pollerTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blueprintdash",
			Subsystem: "poller",
			Name:      "ticks_total",
			Help:      "Total number of poll ticks by outcome",
		},
		[]string{"result"},
	)

	pollerFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "blueprintdash",
			Subsystem: "poller",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one blueprints fetch including normalization",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	pollerSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blueprintdash",
			Subsystem: "poller",
			Name:      "subscribers",
			Help:      "Number of attached poller subscribers",
		},
	)

	pollerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blueprintdash",
			Subsystem: "poller",
			Name:      "running",
			Help:      "1 while the poll loop is ticking",
		},
	)

	// Blueprint metrics
	blueprintsCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blueprintdash",
			Subsystem: "blueprints",
			Name:      "count",
			Help:      "Number of blueprints in the last collection",
		},
	)

	stageBadges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "blueprintdash",
			Subsystem: "blueprints",
			Name:      "stage_badges",
			Help:      "Stages per badge bucket summed over the last collection",
		},
		[]string{"bucket"},
	)

	// Alert metrics
	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blueprintdash",
			Subsystem: "alerts",
			Name:      "reported_total",
			Help:      "Total number of alerts reported",
		},
		[]string{"kind"},
	)

	// WebSocket metrics
	wsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blueprintdash",
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Number of connected WebSocket clients",
		},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blueprintdash",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blueprintdash",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path", "status"},
	)
)

// RecordTick counts one tick outcome and, for completed fetches, its duration.
func RecordTick(result string, duration time.Duration) {
	pollerTicksTotal.WithLabelValues(result).Inc()
	if result != TickSuperseded {
		pollerFetchDuration.Observe(duration.Seconds())
	}
}

// SetSubscribers records the number of attached subscribers.
func SetSubscribers(n int) {
	pollerSubscribers.Set(float64(n))
}

// SetRunning records whether the poll loop is active.
func SetRunning(running bool) {
	if running {
		pollerRunning.Set(1)
		return
	}
	pollerRunning.Set(0)
}

// SetBlueprints records the size and badge totals of a collection.
func SetBlueprints(bps []types.Blueprint) {
	var sum types.BadgeSummary
	for _, bp := range bps {
		b := bp.UI.StagesStatesBadges
		sum.Green += b.Green
		sum.Orange += b.Orange
		sum.Grey += b.Grey
	}
	blueprintsCount.Set(float64(len(bps)))
	stageBadges.WithLabelValues("green").Set(float64(sum.Green))
	stageBadges.WithLabelValues("orange").Set(float64(sum.Orange))
	stageBadges.WithLabelValues("grey").Set(float64(sum.Grey))
}

// RecordAlert counts one reported alert. Alerts without a message are
// counted as "generic".
func RecordAlert(hasMessage bool) {
	if hasMessage {
		alertsTotal.WithLabelValues("detail").Inc()
		return
	}
	alertsTotal.WithLabelValues("generic").Inc()
}

// SetWSClients records the number of connected WebSocket clients.
func SetWSClients(n int) {
	wsClients.Set(float64(n))
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency per chi route pattern.
// It must not wrap WebSocket routes: the wrapper does not support Hijack.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)
		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
