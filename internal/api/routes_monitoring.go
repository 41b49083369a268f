package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/app"
	"github.com/charlesng35/authcore/internal/monitoring"
)

func registerMonitoringRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}

	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(mon.Handler()))
}
