package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacksenechal/humanebench-eval/internal/pipeline"
)

const namespace = "humanebench"

// Metrics owns a private Prometheus registry for the service.
type Metrics struct {
	registry *prometheus.Registry

	turns          *prometheus.CounterVec
	aggregate      *prometheus.HistogramVec
	dimensionScore *prometheus.HistogramVec
	violations     prometheus.Counter

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var _ pipeline.Sink = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Recorded turns by schema and whether the fallback record was used.",
		}, []string{"schema", "fallback"}),
		aggregate: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_aggregate_score",
			Help:      "Aggregate score of recorded turns.",
			Buckets:   prometheus.LinearBuckets(-1, 0.25, 9),
		}, []string{"schema"}),
		dimensionScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dimension_score",
			Help:      "Per-dimension scores of recorded turns.",
			Buckets:   prometheus.LinearBuckets(-1, 0.25, 9),
		}, []string{"dimension"}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "global_violations_total",
			Help:      "Global violations reported by the evaluator.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.turns, m.aggregate, m.dimensionScore, m.violations,
		m.requests, m.requestDuration,
	)
	return m
}

// Export records one turn. It never fails.
func (m *Metrics) Export(_ context.Context, evt pipeline.TurnEvent) error {
	m.turns.WithLabelValues(evt.Schema, strconv.FormatBool(evt.Eval.Fallback)).Inc()
	m.aggregate.WithLabelValues(evt.Schema).Observe(evt.Eval.Aggregate)
	for _, s := range evt.Eval.Scores {
		m.dimensionScore.WithLabelValues(s.Dimension).Observe(s.Score)
	}
	m.violations.Add(float64(len(evt.Eval.GlobalViolations)))
	return nil
}

// Middleware counts requests by chi route pattern, so path parameters such
// as session ids do not become label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
