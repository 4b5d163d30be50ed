package mantadmin

import (
	"context"
	"time"

	healthuc "github.com/kailas-cloud/mantadmin/internal/usecase/health"
)

// HealthReport aggregates the backend and embedding checks.
type HealthReport = healthuc.Report

// Health statuses.
const (
	StatusHealthy   = healthuc.Healthy
	StatusDegraded  = healthuc.Degraded
	StatusUnhealthy = healthuc.Unhealthy
)

// Health checks the backend and, when configured, the embedding service.
func (c *Client) Health(ctx context.Context) HealthReport {
	start := time.Now()
	report := c.healthSvc.Check(ctx)

	var err error
	if report.Status == healthuc.Unhealthy {
		err = errUnhealthy
	}
	c.obs.observe("health", "", start, err)
	return report
}
