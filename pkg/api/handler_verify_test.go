package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyHandler(t *testing.T) {
	s, _, signer := newTestServer(t)

	t.Run("missing token is a 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/verify", nil)
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid token is a 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/verify?token=not-a-real-token", nil)
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token returns claims", func(t *testing.T) {
		tok, err := signer.Sign("agent-123", []int{1, 2, 3, 4})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/verify?token="+tok, nil)
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"agent_id":"agent-123"`)
		assert.Contains(t, rec.Body.String(), `"stages_passed":[1,2,3,4]`)
	})
}
