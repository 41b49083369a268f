package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Critical  bool          `json:"critical"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"-"`
	LatencyMS float64       `json:"latency_ms"`
}

// HealthReport aggregates probe results for a liveness or readiness evaluation.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Probe describes one dependency check.
type Probe struct {
	Name string
	// Critical probes take the report down when they fail. Other failures only degrade it.
	Critical bool
	// Timeout bounds a single run. Zero leaves the caller's deadline in place.
	Timeout time.Duration
	// Check returns optional details on success or the failure cause.
	Check func(ctx context.Context) (string, error)
}

// Run executes the probe. A panic inside Check is reported as a failure.
func (p Probe) Run(ctx context.Context) (result ProbeResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := time.Now()
	result = ProbeResult{Component: p.Name, Critical: p.Critical}
	defer func() {
		if rec := recover(); rec != nil {
			result.Status = p.failureStatus()
			result.Details = fmt.Sprint(rec)
		}
		result.Duration = time.Since(start)
		result.LatencyMS = float64(result.Duration.Microseconds()) / 1000
	}()

	if p.Check == nil {
		result.Status = p.failureStatus()
		result.Details = "probe not implemented"
		return result
	}

	details, err := p.Check(ctx)
	if err != nil {
		result.Status = p.failureStatus()
		result.Details = err.Error()
		return result
	}
	result.Status = StatusUp
	result.Details = details
	return result
}

func (p Probe) failureStatus() ProbeStatus {
	if p.Critical {
		return StatusDown
	}
	return StatusDegraded
}

// HealthManager coordinates liveness and readiness probes. Registration happens during
// start-up; evaluation is safe for concurrent use afterwards.
type HealthManager struct {
	liveness  []Probe
	readiness []Probe
	metrics   *collectors
}

// NewHealthManager constructs an empty health manager that records no metrics.
func NewHealthManager() *HealthManager {
	return &HealthManager{}
}

func newHealthManager(metrics *collectors) *HealthManager {
	return &HealthManager{metrics: metrics}
}

// RegisterLiveness appends a liveness probe. Unnamed probes are ignored.
func (m *HealthManager) RegisterLiveness(probe Probe) {
	if probe.Name != "" {
		m.liveness = append(m.liveness, probe)
	}
}

// RegisterReadiness appends a readiness probe. Unnamed probes are ignored.
func (m *HealthManager) RegisterReadiness(probe Probe) {
	if probe.Name != "" {
		m.readiness = append(m.readiness, probe)
	}
}

// EvaluateLiveness runs the liveness probes.
func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	return m.evaluate(ctx, m.liveness)
}

// EvaluateReadiness runs the readiness probes.
func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	return m.evaluate(ctx, m.readiness)
}

// evaluate runs probes concurrently. Results keep registration order.
func (m *HealthManager) evaluate(ctx context.Context, probes []Probe) HealthReport {
	results := make([]ProbeResult, len(probes))

	var wg sync.WaitGroup
	for i, probe := range probes {
		wg.Add(1)
		go func(i int, probe Probe) {
			defer wg.Done()
			results[i] = probe.Run(ctx)
		}(i, probe)
	}
	wg.Wait()

	report := HealthReport{Success: true, Status: StatusUp, Checks: results}
	for _, result := range results {
		if m.metrics != nil {
			m.metrics.observeProbe(result)
		}
		switch result.Status {
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
	}
	report.Success = report.Status == StatusUp
	return report
}
