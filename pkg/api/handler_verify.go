package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// verifyHandler handles GET /verify?token=…: decodes a bearer
// token minted on ACCEPT and returns its claims, or 401 on invalid/expired.
func (s *Server) verifyHandler(c *echo.Context) error {
	tok := c.QueryParam("token")
	if tok == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token query parameter is required")
	}

	claims, err := s.signer.Verify(tok)
	if err != nil {
		return mapTokenError(err)
	}

	return c.JSON(http.StatusOK, &VerifyResponse{
		AgentID:      claims.AgentID,
		VerifiedAt:   claims.VerifiedAt,
		ExpiresIn:    claims.ExpiresIn,
		StagesPassed: claims.StagesPassed,
	})
}
