package checks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charlesng35/authcore/internal/monitoring"
)

const defaultMaintenanceMaxAge = 26 * time.Hour

// Maintenance degrades readiness while a retention job keeps failing or has been idle
// longer than maxAge.
func Maintenance(module *monitoring.Module, maxAge time.Duration) monitoring.Probe {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.Probe{
		Name: "maintenance",
		Check: func(context.Context) (string, error) {
			jobs := module.MaintenanceJobs()
			if len(jobs) == 0 {
				return "no maintenance runs recorded", nil
			}

			now := time.Now()
			var problems []error
			for _, job := range jobs {
				switch {
				case job.ConsecutiveFailures > 0:
					problems = append(problems, fmt.Errorf("%s: %s", job.Job, job.LastError))
				case !job.LastRunAt.IsZero() && now.Sub(job.LastRunAt) > maxAge:
					problems = append(problems, fmt.Errorf("%s: last run %s", job.Job, job.LastRunAt.UTC().Format(time.RFC3339)))
				}
			}
			return fmt.Sprintf("%d jobs tracked", len(jobs)), errors.Join(problems...)
		},
	}
}
