package health

import (
	"context"
	"testing"
	"time"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.String(); got != tt.expected {
				t.Errorf("Status.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResultChaining(t *testing.T) {
	result := Degraded("slow")
	returned := result.WithDetail("api_url", "http://localhost:8080").WithLatency(120 * time.Millisecond)

	if returned != result {
		t.Error("WithDetail/WithLatency should return the same result")
	}
	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want %v", result.Status, StatusDegraded)
	}
	if result.Details["api_url"] != "http://localhost:8080" {
		t.Errorf("Details[api_url] = %v", result.Details["api_url"])
	}
	if result.Latency != 120*time.Millisecond {
		t.Errorf("Latency = %v, want 120ms", result.Latency)
	}
}

func TestCheckFunc(t *testing.T) {
	c := CheckFunc{CheckName: "ping", Fn: func(context.Context) *Result { return Healthy("fine") }}

	if c.Name() != "ping" {
		t.Errorf("Name() = %q, want %q", c.Name(), "ping")
	}
	if got := c.Check(context.Background()); got.Message != "fine" {
		t.Errorf("Check().Message = %q, want %q", got.Message, "fine")
	}
}
