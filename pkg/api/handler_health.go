package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/dpp-verifier/pkg/version"
)

// healthHandler handles GET /health: readiness, carrying store reachability
// and pool health, mirroring tarsy's pkg/api liveness/readiness handler.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := map[string]HealthCheck{}
	status := "healthy"
	httpStatus := http.StatusOK

	if err := s.store.Ping(reqCtx); err != nil {
		checks["store"] = HealthCheck{Status: "unhealthy", Message: err.Error()}
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = HealthCheck{Status: "healthy"}
	}

	resp := &HealthResponse{
		Status:  status,
		Version: version.Full(),
		Checks:  checks,
	}

	if s.pool != nil {
		h := s.pool.Health()
		resp.Pool = &PoolHealthResponse{
			ActiveSessions: h.ActiveSessions,
			MaxConcurrent:  h.MaxConcurrent,
			Healthy:        h.IsHealthy,
		}
		if !h.IsHealthy && status == "healthy" {
			resp.Status = "degraded"
		}
	}

	return c.JSON(httpStatus, resp)
}
