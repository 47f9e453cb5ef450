package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shelfsense"

// Recorder exports pipeline and HTTP metrics on its own registry so tests
// and multiple servers in one process do not collide.
type Recorder struct {
	registry *prometheus.Registry

	pagesExtracted     prometheus.Counter
	prefilterRankings  *prometheus.CounterVec
	assemblyAttempts   *prometheus.CounterVec
	identityRuns       prometheus.Counter
	identityPairs      prometheus.Counter
	identityClusters   prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec
}

// NewRecorder registers all collectors, plus Go runtime and process metrics
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		pagesExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "pages_total",
			Help:      "Pages run through signal extraction",
		}),
		prefilterRankings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefilter",
			Name:      "rankings_total",
			Help:      "Category rankings by mode (ranked or fallback)",
		}, []string{"mode"}),
		assemblyAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assembler",
			Name:      "attempts_total",
			Help:      "Structured generation attempts by outcome",
		}, []string{"outcome"}),
		identityRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "runs_total",
			Help:      "Identity resolution runs",
		}),
		identityPairs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "pairs_compared_total",
			Help:      "Record pairs scored by the identity resolver",
		}),
		identityClusters: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "clusters",
			Help:      "Canonical products formed per resolution run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpRequestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (r *Recorder) PageExtracted() {
	r.pagesExtracted.Inc()
}

func (r *Recorder) PrefilterRanked(fallback bool) {
	mode := "ranked"
	if fallback {
		mode = "fallback"
	}
	r.prefilterRankings.WithLabelValues(mode).Inc()
}

func (r *Recorder) IdentityResolved(records, pairs, clusters int) {
	r.identityRuns.Inc()
	r.identityPairs.Add(float64(pairs))
	r.identityClusters.Observe(float64(clusters))
}

func (r *Recorder) AssemblyAttempt(outcome string) {
	r.assemblyAttempts.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one served HTTP request
func (r *Recorder) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpRequestSeconds.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for tests and extra collectors
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
