package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI completion requests by operation",
		},
		[]string{"operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI completion request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
	AIPromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens",
			Help:    "Distribution of prompt token counts per completion call",
			Buckets: []float64{100, 500, 1000, 2500, 5000, 10000, 20000, 30000},
		},
		[]string{"operation"},
	)

	DocumentJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_jobs_total",
			Help: "Total number of document operations by type and path",
		},
		[]string{"type", "path"},
	)
	DocumentJobProgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "document_job_progress_percent",
			Help: "Progress of the most recent document operation by type",
		},
		[]string{"type"},
	)
	SectionsPerDocument = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "document_sections",
			Help:    "Distribution of section counts for chunked documents",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AIPromptTokens)
	prometheus.MustRegister(DocumentJobsTotal)
	prometheus.MustRegister(DocumentJobProgress)
	prometheus.MustRegister(SectionsPerDocument)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveJob records a completed document operation.
func ObserveJob(jobType, path string) {
	DocumentJobsTotal.WithLabelValues(jobType, path).Inc()
}

// ObserveProgress records the latest progress percentage for a job type.
func ObserveProgress(jobType string, percent int) {
	DocumentJobProgress.WithLabelValues(jobType).Set(float64(percent))
}
