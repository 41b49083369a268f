package monitoring

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// JobSummary is a point-in-time view of a maintenance job.
type JobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

type jobStore struct {
	jobs sync.Map // string -> *jobStats
}

func newJobStore() *jobStore {
	return &jobStore{}
}

func (s *jobStore) entry(job string) *jobStats {
	if value, ok := s.jobs.Load(job); ok {
		return value.(*jobStats)
	}
	actual, _ := s.jobs.LoadOrStore(job, &jobStats{})
	return actual.(*jobStats)
}

func (s *jobStore) snapshot() []JobSummary {
	summaries := []JobSummary{}
	s.jobs.Range(func(key, value any) bool {
		summaries = append(summaries, value.(*jobStats).snapshot(key.(string)))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Job < summaries[j].Job })
	return summaries
}

type jobStats struct {
	lastStatus          atomic.Value // string
	lastError           atomic.Value // string
	lastRun             atomic.Int64 // unix nano
	lastDuration        atomic.Int64
	lastSuccessfulRun   atomic.Int64
	consecutiveFailures atomic.Uint64
	totalRuns           atomic.Uint64
}

func (j *jobStats) record(result, message string, duration time.Duration, now time.Time) {
	j.lastStatus.Store(result)
	j.lastError.Store(message)
	j.lastRun.Store(now.UnixNano())
	j.lastDuration.Store(int64(duration))
	j.totalRuns.Add(1)

	if result == "success" {
		j.consecutiveFailures.Store(0)
		j.lastSuccessfulRun.Store(now.UnixNano())
		return
	}
	j.consecutiveFailures.Add(1)
}

func (j *jobStats) snapshot(job string) JobSummary {
	status, _ := j.lastStatus.Load().(string)
	errMsg, _ := j.lastError.Load().(string)

	summary := JobSummary{
		Job:                 job,
		LastStatus:          status,
		LastDuration:        time.Duration(j.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: j.consecutiveFailures.Load(),
		TotalRuns:           j.totalRuns.Load(),
	}
	if ts := j.lastRun.Load(); ts != 0 {
		summary.LastRunAt = time.Unix(0, ts)
	}
	if ts := j.lastSuccessfulRun.Load(); ts != 0 {
		summary.LastSuccessAt = time.Unix(0, ts)
	}
	return summary
}

// RecordMaintenanceRun records the completion of a maintenance job.
func (m *Module) RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	if m == nil {
		return
	}
	job = normalizeLabel(job)
	result = normalizeLabel(result)
	if duration < 0 {
		duration = 0
	}
	now := time.Now()

	m.metrics.maintenanceRuns.WithLabelValues(job, result).Inc()
	observeDuration(m.metrics.maintenanceDuration.WithLabelValues(job), duration)
	if result == "success" {
		m.metrics.maintenanceLastRun.WithLabelValues(job).Set(float64(now.Unix()))
	}
	m.jobs.entry(job).record(result, strings.TrimSpace(message), duration, now)
}

// MaintenanceJobs returns the recorded state of every maintenance job.
func (m *Module) MaintenanceJobs() []JobSummary {
	if m == nil {
		return nil
	}
	return m.jobs.snapshot()
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
