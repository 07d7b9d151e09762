// Package metrics holds the Prometheus collectors shared by the identity
// service and the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing, so components can be built without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Credential lifecycle
	ReaperDeletedTotal  *prometheus.CounterVec
	ReaperSweepErrors   *prometheus.CounterVec
	CredentialOutcomes  *prometheus.CounterVec
	OTPAttemptsRejected prometheus.Counter
	NotificationsSent   *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
	TokensIssuedTotal   prometheus.Counter

	// Gateway
	FilterDecisionsTotal *prometheus.CounterVec
	VerifyDuration       *prometheus.HistogramVec
	VerifyCacheHits      prometheus.Counter
	VerifyCacheMisses    prometheus.Counter
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectrux_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "projectrux_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ReaperDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectrux_reaper_deleted_total",
				Help: "Expired ephemeral credentials removed by the reaper",
			},
			[]string{"kind"},
		),
		ReaperSweepErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectrux_reaper_sweep_errors_total",
				Help: "Failed reaper sweeps",
			},
			[]string{"kind"},
		),
		CredentialOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectrux_credential_outcomes_total",
				Help: "Ephemeral credential redemption outcomes",
			},
			[]string{"kind", "outcome"},
		),
		OTPAttemptsRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "projectrux_otp_attempts_rejected_total",
				Help: "OTP verifications rejected by the attempt limiter",
			},
		),
		NotificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectrux_notifications_total",
				Help: "Notification deliveries by kind and status",
			},
			[]string{"kind", "status"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectrux_identity_events_total",
				Help: "Identity events published by type and status",
			},
			[]string{"type", "status"},
		),
		TokensIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "projectrux_session_tokens_issued_total",
				Help: "Session tokens issued",
			},
		),
		FilterDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectrux_gateway_filter_decisions_total",
				Help: "Authentication filter decisions",
			},
			[]string{"decision"},
		),
		VerifyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "projectrux_gateway_verify_duration_seconds",
				Help:    "Token verification latency as seen by the gateway",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 3},
			},
			[]string{"result"},
		),
		VerifyCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "projectrux_gateway_verify_cache_hits_total",
				Help: "Verification cache hits",
			},
		),
		VerifyCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "projectrux_gateway_verify_cache_misses_total",
				Help: "Verification cache misses",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReaperDeletedTotal,
		m.ReaperSweepErrors,
		m.CredentialOutcomes,
		m.OTPAttemptsRejected,
		m.NotificationsSent,
		m.EventsPublished,
		m.TokensIssuedTotal,
		m.FilterDecisionsTotal,
		m.VerifyDuration,
		m.VerifyCacheHits,
		m.VerifyCacheMisses,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ReaperDeleted(kind string, n int64) {
	if m == nil {
		return
	}
	m.ReaperDeletedTotal.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) ReaperFailed(kind string) {
	if m == nil {
		return
	}
	m.ReaperSweepErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) CredentialOutcome(kind, outcome string) {
	if m == nil {
		return
	}
	m.CredentialOutcomes.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) OTPAttemptRejected() {
	if m == nil {
		return
	}
	m.OTPAttemptsRejected.Inc()
}

func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(kind, statusLabel(err)).Inc()
}

func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, statusLabel(err)).Inc()
}

func (m *Metrics) TokenIssued() {
	if m == nil {
		return
	}
	m.TokensIssuedTotal.Inc()
}

func (m *Metrics) FilterDecision(decision string) {
	if m == nil {
		return
	}
	m.FilterDecisionsTotal.WithLabelValues(decision).Inc()
}

func (m *Metrics) ObserveVerify(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.VerifyDuration.WithLabelValues(statusLabel(err)).Observe(d.Seconds())
}

func (m *Metrics) VerifyCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.VerifyCacheHits.Inc()
		return
	}
	m.VerifyCacheMisses.Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming proxies working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware instruments requests. The route label is the matched mux path
// template, so raw ids in paths do not blow up label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := routeLabel(r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routeLabel(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
