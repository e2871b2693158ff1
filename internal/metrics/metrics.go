package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the collectors exported on /metrics.
type Registry struct {
	registry *prometheus.Registry

	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	SubmissionCounter  *prometheus.CounterVec
	CheckoutCounter    *prometheus.CounterVec
	OTPCounter         *prometheus.CounterVec
	PurchaseSuccessful prometheus.Counter
}

func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		SubmissionCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Quiz submissions by coverage status",
			},
			[]string{"coverage_status"},
		),
		CheckoutCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_sessions_total",
				Help: "Checkout sessions opened, by trigger",
			},
			[]string{"trigger"},
		),
		OTPCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otp_requests_total",
				Help: "OTP send and confirm attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		PurchaseSuccessful: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "purchases_completed_total",
				Help: "Completed checkout sessions reported by the gateway",
			},
		),
	}

	r.registry.MustRegister(
		r.RequestCounter,
		r.RequestDuration,
		r.SubmissionCounter,
		r.CheckoutCounter,
		r.OTPCounter,
		r.PurchaseSuccessful,
	)

	return r
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) ObserveSubmission(status string) {
	r.SubmissionCounter.WithLabelValues(status).Inc()
}

func (r *Registry) ObserveCheckout(trigger string) {
	r.CheckoutCounter.WithLabelValues(trigger).Inc()
}

func (r *Registry) ObserveOTP(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.OTPCounter.WithLabelValues(operation, outcome).Inc()
}

func (r *Registry) ObservePurchase() {
	r.PurchaseSuccessful.Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware records request count and latency. Endpoint labels use the
// matched route pattern so path values do not explode cardinality.
func (r *Registry) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next(sw, req)

		endpoint := req.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}

		r.RequestCounter.WithLabelValues(req.Method, endpoint, strconv.Itoa(sw.status)).Inc()
		r.RequestDuration.WithLabelValues(req.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
