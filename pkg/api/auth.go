package api

import (
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/firstround/interviewd/pkg/token"
)

// sessionCookieName carries the HttpOnly session token for user-level calls.
const sessionCookieName = "interviewd_session"

const (
	ctxUserID = "auth.userID"
	ctxClaims = "auth.claims"
)

func bearerToken(c *echo.Context) string {
	h := c.Request().Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireUser authenticates user-level endpoints: the HttpOnly session
// cookie, or a bearer user token for non-browser clients.
func (s *Server) requireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if cookie, err := c.Request().Cookie(sessionCookieName); err == nil && cookie.Value != "" {
				claims, err := s.tokens.Verify(cookie.Value, token.AudienceSession, "")
				if err != nil {
					return newAPIError(http.StatusUnauthorized, "unauthenticated", "session cookie rejected")
				}
				c.Set(ctxUserID, claims.Subject)
				return next(c)
			}
			if raw := bearerToken(c); raw != "" {
				claims, err := s.tokens.Verify(raw, token.AudienceUser, "")
				if err != nil {
					return err
				}
				c.Set(ctxUserID, claims.Subject)
				return next(c)
			}
			return newAPIError(http.StatusUnauthorized, "unauthenticated", "missing session cookie")
		}
	}
}

// requireToken authenticates capability-token endpoints. The token must carry
// the wanted audience and, when the route has a session path parameter, be
// bound to that session.
func (s *Server) requireToken(aud token.Audience) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			claims, err := s.tokens.Verify(bearerToken(c), aud, c.Param("id"))
			if err != nil {
				return err
			}
			c.Set(ctxClaims, claims)
			c.Set(ctxUserID, claims.Subject)
			return next(c)
		}
	}
}

// userID returns the authenticated user id set by requireUser/requireToken.
func userID(c *echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}

// tokenClaims returns the verified capability-token claims.
func tokenClaims(c *echo.Context) token.Claims {
	claims, _ := c.Get(ctxClaims).(token.Claims)
	return claims
}

// setSessionCookie installs the HttpOnly session cookie.
func (s *Server) setSessionCookie(c *echo.Context, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.cfg.Server.CookieDomain,
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   s.cfg.Server.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
