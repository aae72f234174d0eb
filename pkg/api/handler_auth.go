package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/firstround/interviewd/pkg/token"
)

// loginHandler handles POST /auth/login. Identity is the verified upstream
// concern (SSO in front of this service); here the email becomes the user id,
// a session cookie is set, and a bearer user token is returned for
// non-browser clients.
func (s *Server) loginHandler(c *echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return newAPIError(http.StatusBadRequest, "validation_failed", "a valid email is required")
	}

	userTok, _, err := s.tokens.Mint(token.MintSpec{Subject: email, Audience: token.AudienceUser})
	if err != nil {
		return err
	}
	cookieTok, _, err := s.tokens.Mint(token.MintSpec{Subject: email, Audience: token.AudienceSession})
	if err != nil {
		return err
	}
	s.setSessionCookie(c, cookieTok, s.cfg.Auth.TTLs.Session)

	return c.JSON(http.StatusOK, &LoginResponse{Token: userTok, UserID: email})
}
