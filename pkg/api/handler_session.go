package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/firstround/interviewd/pkg/models"
)

// createSessionHandler handles POST /interview/sessions.
func (s *Server) createSessionHandler(c *echo.Context) error {
	var cfg models.SessionConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	sess, ist, err := s.sessions.Create(c.Request().Context(), userID(c), cfg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &CreateSessionResponse{
		SessionID: sess.ID,
		IST:       ist,
		NextStep:  "precheck",
	})
}

// listSessionsHandler handles GET /interview/sessions.
func (s *Server) listSessionsHandler(c *echo.Context) error {
	sessions, err := s.sessions.List(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

// getSessionHandler handles GET /interview/:id.
func (s *Server) getSessionHandler(c *echo.Context) error {
	sess, err := s.sessions.Get(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

// stateHandler handles GET /interview/:id/state.
func (s *Server) stateHandler(c *echo.Context) error {
	sess, err := s.sessions.Get(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &StateResponse{State: sess.State, AskedCount: sess.AskedCount})
}

// summaryHandler handles GET /interview/:id/summary.
func (s *Server) summaryHandler(c *echo.Context) error {
	sum, err := s.sessions.Summary(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

// reviewHandler handles GET /interview/:id/review.
func (s *Server) reviewHandler(c *echo.Context) error {
	sum, err := s.sessions.Summary(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	review := sum.Review
	if review == nil {
		review = []models.ReviewItem{}
	}
	return c.JSON(http.StatusOK, review)
}

// mintACETHandler handles POST /interview/:id/token/acet.
func (s *Server) mintACETHandler(c *echo.Context) error {
	acet, err := s.sessions.MintACET(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"acet": acet})
}

// mintAIPTHandler handles POST /interview/:id/token/aipt.
func (s *Server) mintAIPTHandler(c *echo.Context) error {
	aipt, err := s.sessions.MintAIPT(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"aipt": aipt})
}

// refreshHandler handles POST /interview/:id/token/refresh. The body is the
// set of tokens still applicable in the current state; terminal sessions get
// an empty object.
func (s *Server) refreshHandler(c *echo.Context) error {
	toks, err := s.sessions.Refresh(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toks)
}

// startHandler handles POST /interview/:id/start.
func (s *Server) startHandler(c *echo.Context) error {
	wst, aipt, upt, err := s.sessions.Start(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &StartResponse{WST: wst, AIPT: aipt, UPT: upt})
}
