package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/felixgeelhaar/candidash/internal/gate"
)

// Metrics holds all Prometheus metrics for candidash
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// Session lifecycle metrics
	LoginAttempts    *prometheus.CounterVec
	StateTransitions *prometheus.CounterVec
	Validations      *prometheus.CounterVec
	ExpirySignals    prometheus.Counter

	// Authorization gate metrics
	GateDecisions *prometheus.CounterVec

	// Backend API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	// Signup flow metrics
	SignupSteps *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidash_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candidash_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidash_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		StateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidash_auth_state_transitions_total",
				Help: "Session state machine transitions",
			},
			[]string{"from", "to", "reason"},
		),
		Validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidash_session_validations_total",
				Help: "Startup validations of a persisted session by outcome",
			},
			[]string{"outcome"},
		),
		ExpirySignals: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "candidash_session_expiry_signals_total",
				Help: "Session-expiry signals raised by backend rejections",
			},
		),

		GateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidash_gate_decisions_total",
				Help: "Authorization gate decisions",
			},
			[]string{"kind", "decision"},
		),

		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidash_api_requests_total",
				Help: "Backend API requests by status code",
			},
			[]string{"method", "path", "code"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candidash_api_latency_seconds",
				Help:    "Backend API latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "path"},
		),

		SignupSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidash_signup_steps_total",
				Help: "Candidate signup steps by step and success",
			},
			[]string{"step", "success"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidash_errors_total",
				Help: "Total errors by error code",
			},
			[]string{"error_code"},
		),
	}
}

// RecordCommand records a command execution and its duration.
func (m *Metrics) RecordCommand(command string, success bool, d time.Duration) {
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(success)).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// RecordLogin records a login attempt. result is "success" or an auth error code.
func (m *Metrics) RecordLogin(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveTransition records a state machine transition. Bootstrap outcomes
// are additionally counted as validations.
func (m *Metrics) ObserveTransition(from, to, reason string) {
	m.StateTransitions.WithLabelValues(from, to, reason).Inc()
	switch reason {
	case "validated", "validated_offline", "validation_failed":
		m.Validations.WithLabelValues(reason).Inc()
	}
}

// RecordExpirySignal counts one session-expiry signal. It has the shape of an
// expiry bus handler.
func (m *Metrics) RecordExpirySignal() {
	m.ExpirySignals.Inc()
}

// ObserveDecision records a gate decision.
func (m *Metrics) ObserveDecision(kind string, d gate.Decision) {
	m.GateDecisions.WithLabelValues(kind, string(d)).Inc()
}

// ObserveResponse records a backend round trip. Transport failures are
// counted with code "error".
func (m *Metrics) ObserveResponse(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	code := "error"
	if err == nil && resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	m.APIRequests.WithLabelValues(req.Method, req.URL.Path, code).Inc()
	m.APILatency.WithLabelValues(req.Method, req.URL.Path).Observe(elapsed.Seconds())
}

// RecordSignupStep records a signup step outcome.
func (m *Metrics) RecordSignupStep(step string, success bool) {
	m.SignupSteps.WithLabelValues(step, strconv.FormatBool(success)).Inc()
}

// RecordError counts an error by its code.
func (m *Metrics) RecordError(code string) {
	if code == "" {
		code = "unknown"
	}
	m.Errors.WithLabelValues(code).Inc()
}
