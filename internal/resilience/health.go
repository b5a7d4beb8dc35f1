package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthCheckFunc represents a function that checks a dependency
type HealthCheckFunc func(ctx context.Context) error

const (
	HealthOK          = "ok"
	HealthDegraded    = "degraded"
	HealthUnavailable = "unavailable"
)

// DependencyHealth is the last observed state of one dependency
type DependencyHealth struct {
	Status    string    `json:"status"`
	Critical  bool      `json:"critical"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

type registeredCheck struct {
	check    HealthCheckFunc
	critical bool
}

// HealthChecker checks registered dependencies. A failing critical dependency
// makes the service unavailable, a failing optional one only degrades it.
type HealthChecker struct {
	mu      sync.RWMutex
	checks  map[string]registeredCheck
	timeout time.Duration
}

func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthChecker{
		checks:  make(map[string]registeredCheck),
		timeout: timeout,
	}
}

// Register adds or replaces a named check
func (h *HealthChecker) Register(name string, critical bool, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = registeredCheck{check: check, critical: critical}
}

// Check runs every check concurrently and returns the overall status with per-dependency detail
func (h *HealthChecker) Check(ctx context.Context) (string, map[string]DependencyHealth) {
	h.mu.RLock()
	checks := make(map[string]registeredCheck, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]DependencyHealth, len(checks))
		g       errgroup.Group
	)

	for name, c := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()

			start := time.Now()
			err := c.check(checkCtx)
			res := DependencyHealth{
				Status:    HealthOK,
				Critical:  c.critical,
				LatencyMs: time.Since(start).Milliseconds(),
				CheckedAt: start,
			}
			if err != nil {
				res.Status = HealthUnavailable
				res.Error = err.Error()
				slog.Warn("Health check failed", "dependency", name, "critical", c.critical, "error", err)
			}

			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := HealthOK
	for _, res := range results {
		if res.Status == HealthOK {
			continue
		}
		if res.Critical {
			return HealthUnavailable, results
		}
		overall = HealthDegraded
	}
	return overall, results
}
