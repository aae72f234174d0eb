package api

import (
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/firstround/interviewd/pkg/models"
)

// precheckHandler handles POST /interview/:id/precheck under ACET. The event
// batch goes through the anti-cheat engine before the checks are evaluated,
// so a pre-check submission moves the chain tail like any other batch.
func (s *Server) precheckHandler(c *echo.Context) error {
	var req AntiCheatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	res, err := s.sessions.SubmitPrecheck(c.Request().Context(), c.Param("id"), req.Checks, req.Events)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &PrecheckResponse{
		PrecheckID:    uuid.NewString(),
		OverallStatus: res.OverallStatus,
		CanProceed:    res.CanProceed,
		State:         res.State,
	})
}

// antiCheatHandler handles POST /interview/:id/anti-cheat under ACET.
func (s *Server) antiCheatHandler(c *echo.Context) error {
	var req AntiCheatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if len(req.Events) == 0 {
		return newAPIError(http.StatusBadRequest, "validation_failed", "events are required")
	}

	tail, err := s.sessions.HandleAntiCheat(c.Request().Context(), c.Param("id"), req.Events)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &AntiCheatResponse{TailSeq: tail.Seq, TailHash: tail.Hash})
}

// tailHandler handles GET /interview/:id/anti-cheat/tail.
func (s *Server) tailHandler(c *echo.Context) error {
	tail, err := s.sessions.Tail(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.ChainTail{Seq: tail.Seq, Hash: tail.Hash})
}
