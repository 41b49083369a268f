// Package checks provides readiness probes for the authcore dependencies.
package checks

import "time"

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
