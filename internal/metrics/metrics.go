package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "crewflow",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crewflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crewflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	phaseCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crewflow",
			Subsystem: "onboarding",
			Name:      "phase_completions_total",
			Help:      "Total number of phase completions.",
		},
		[]string{"phase_type"},
	)

	workflowCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crewflow",
			Subsystem: "onboarding",
			Name:      "workflow_completions_total",
			Help:      "Total number of workflow instance completions.",
		},
	)

	quizAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crewflow",
			Subsystem: "onboarding",
			Name:      "quiz_attempts_total",
			Help:      "Total number of quiz submissions.",
		},
		[]string{"passed"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		phaseCompletions,
		workflowCompletions,
		quizAttempts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordPhaseCompletion counts one phase completion by phase type.
func RecordPhaseCompletion(phaseType string) {
	if phaseType == "" {
		phaseType = "unknown"
	}
	phaseCompletions.WithLabelValues(phaseType).Inc()
}

// RecordWorkflowCompletion counts one workflow instance completion.
func RecordWorkflowCompletion() {
	workflowCompletions.Inc()
}

// RecordQuizAttempt counts one quiz submission.
func RecordQuizAttempt(passed bool) {
	quizAttempts.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses IDs out of request paths to keep label
// cardinality bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" || len(parts) == 1 {
		return "/" + parts[0]
	}
	// /api/{resource}[/{id}[/{action}...]]
	resource := parts[1]
	if len(parts) == 2 {
		return "/api/" + resource
	}
	if len(parts) == 3 {
		return "/api/" + resource + "/:id"
	}
	return "/api/" + resource + "/:id/" + parts[3]
}
