// Package health aggregates dependency probes into a single report.
package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an AI provider is failing but storage works.
	Degraded Status = "degraded"
	// Unhealthy indicates the backing store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult struct {
	Result    string `json:"result"` // "ok" / "error"
	LatencyMs int64  `json:"latencyMs"`
}

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks across the store and AI providers.
type Service struct {
	store     StorePinger
	providers map[string]ProviderChecker
}

// New creates a Service. providers may be empty; nil entries are skipped.
func New(store StorePinger, providers map[string]ProviderChecker) *Service {
	return &Service{store: store, providers: providers}
}

// Check runs all probes. A store failure makes the whole service unhealthy;
// provider failures only degrade it, since recall still works without chat.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	storeOK := probe(ctx, s.store.Ping, "store", checks)

	providersOK := true
	for name, p := range s.providers {
		if p == nil {
			continue
		}
		if !probe(ctx, p.HealthCheck, name, checks) {
			providersOK = false
		}
	}

	status := Healthy
	switch {
	case !storeOK:
		status = Unhealthy
	case !providersOK:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func probe(ctx context.Context, fn func(context.Context) error, name string, checks map[string]CheckResult) bool {
	start := time.Now()
	err := fn(ctx)
	latency := time.Since(start).Milliseconds()

	result := "ok"
	if err != nil {
		result = "error"
	}
	checks[name] = CheckResult{Result: result, LatencyMs: latency}
	return err == nil
}
