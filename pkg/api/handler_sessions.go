package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"
)

// listSessionsHandler handles GET /sessions/{agent_id}: the
// agent's verification sessions ordered by timestamp ascending, 404 if
// none exist.
func (s *Server) listSessionsHandler(c *echo.Context) error {
	agentID := c.Param("agent_id")
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_id is required")
	}

	rows, err := s.store.FetchSessionsByAgent(c.Request().Context(), agentID)
	if err != nil {
		return mapStoreError(err)
	}
	if len(rows) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no sessions for agent_id")
	}

	resp := make([]SessionResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, SessionResponse{
			ID:           r.ID,
			AgentID:      r.AgentID,
			StageReached: r.StageReached,
			Timestamp:    r.Timestamp,
			Passed:       r.Passed,
			RejectReason: r.RejectReason,
			Timings:      r.Timings,
		})
	}

	return c.JSON(http.StatusOK, resp)
}

// sessionHistoryHandler handles
// GET /sessions/{agent_id}/history/{session_id}: the per-round
// challenge history for one session, ordered by round_num ascending.
func (s *Server) sessionHistoryHandler(c *echo.Context) error {
	agentID := c.Param("agent_id")
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_id is required")
	}

	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id must be an integer")
	}

	// Confirm the session belongs to agent_id before returning its history,
	// so one agent cannot enumerate another's round-level answers by id.
	sessions, err := s.store.FetchSessionsByAgent(c.Request().Context(), agentID)
	if err != nil {
		return mapStoreError(err)
	}
	found := false
	for _, sess := range sessions {
		if sess.ID == sessionID {
			found = true
			break
		}
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "session not found for agent_id")
	}

	rows, err := s.store.FetchChallengeHistory(c.Request().Context(), sessionID)
	if err != nil {
		return mapStoreError(err)
	}

	resp := make([]ChallengeRoundResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, ChallengeRoundResponse{
			RoundNum:      r.RoundNum,
			ChallengeText: r.ChallengeText,
			ResponseText:  r.ResponseText,
			Correct:       r.Correct,
			ResponseTimeS: r.ResponseTimeS,
		})
	}

	return c.JSON(http.StatusOK, resp)
}
