package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/dpp-verifier/pkg/token"
)

// ErrNotFound is the sentinel mapStoreError translates to 404. The pkg/store
// implementations do not return it; they report a missing agent as an empty
// result, which the handlers turn into 404 themselves.
var ErrNotFound = errors.New("not found")

// mapTokenError maps a token.Verify failure to its HTTP response: 401 for
// invalid, expired, and any other verify error.
func mapTokenError(err error) *echo.HTTPError {
	if errors.Is(err, token.ErrExpired) {
		return echo.NewHTTPError(http.StatusUnauthorized, "expired")
	}
	if errors.Is(err, token.ErrInvalid) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid")
	}
	slog.Error("api: unexpected token verify error", "error", err)
	return echo.NewHTTPError(http.StatusUnauthorized, "invalid")
}

// mapStoreError maps a store lookup failure to its HTTP response.
func mapStoreError(err error) *echo.HTTPError {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	slog.Error("api: unexpected store error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
