// Package health runs the environment checks behind 'candidash doctor'.
//
// Each Checker verifies one thing the CLI depends on (the configuration, the
// session store, the backend) and reports a Result. The Manager runs them in
// parallel with a per-check timeout:
//
//	m := health.NewManager()
//	m.AddChecker(health.NewConfigChecker(cfg))
//	m.AddChecker(health.NewBackendChecker(client, cfg.APIURL))
//	reports := m.Check(ctx)
package health

import (
	"context"
	"time"
)

// Checker is a single health check.
type Checker interface {
	// Name is a short lowercase identifier such as "backend".
	Name() string

	// Check must respect the context deadline.
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check.
type Status string

const (
	// StatusHealthy means the checked dependency works.
	StatusHealthy Status = "healthy"

	// StatusDegraded means the CLI works with reduced functionality, for
	// example with a session that has to be renewed.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means commands depending on the check will fail.
	StatusUnhealthy Status = "unhealthy"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Result is the outcome of one check.
type Result struct {
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration  `json:"latency" yaml:"latency"`
}

// NewResult creates a result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail and returns r for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithLatency sets the latency and returns r for chaining.
func (r *Result) WithLatency(latency time.Duration) *Result {
	r.Latency = latency
	return r
}

// Healthy creates a healthy result with the given message.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result with the given message.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result with the given message.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}

// CheckFunc adapts a function to a Checker.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) *Result
}

// Name returns the check name.
func (c CheckFunc) Name() string { return c.CheckName }

// Check runs the function.
func (c CheckFunc) Check(ctx context.Context) *Result { return c.Fn(ctx) }
