package monitoring

import (
	"context"
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker runs named readiness checks
type HealthChecker struct {
	checks []HealthCheck
	mu     sync.RWMutex
}

// HealthCheck is a single named check bounded by Timeout
type HealthCheck struct {
	Name    string
	Check   func(ctx context.Context) error
	Timeout time.Duration
}

// HealthStatus is the aggregated result served by /health and /ready
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// NewHealthChecker creates a checker with no checks
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// AddCheck registers a check; a non-positive timeout defaults to one second
func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if timeout <= 0 {
		timeout = time.Second
	}
	h.checks = append(h.checks, HealthCheck{Name: name, Check: check, Timeout: timeout})
}

// CheckAll runs every check concurrently, each bounded by its own timeout.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(checks)),
	}

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(checks))
	for _, check := range checks {
		go func(check HealthCheck) {
			checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
			defer cancel()
			results <- result{name: check.Name, err: check.Check(checkCtx)}
		}(check)
	}

	for range checks {
		r := <-results
		if r.err != nil {
			status.Status = StatusUnhealthy
			status.Checks[r.name] = r.err.Error()
			continue
		}
		status.Checks[r.name] = StatusHealthy
	}
	return status
}

// IsReady reports whether every check passes
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == StatusHealthy
}
