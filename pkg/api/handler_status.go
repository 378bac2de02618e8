package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// statusHandler handles GET /status: a lightweight liveness
// indicator distinct from /health, reporting whether the challenge oracle
// is running in mock mode.
func (s *Server) statusHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &StatusResponse{
		Status:   "ok",
		Service:  "dpp-verifier",
		MockMode: s.mockMode,
	})
}
