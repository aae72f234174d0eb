package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"

	"github.com/firstround/interviewd/pkg/events"
	"github.com/firstround/interviewd/pkg/token"
)

// streamHandler handles GET /interview/:id/stream. The WST is verified from
// the query string before the upgrade, so an invalid token is a plain HTTP
// error the client can parse.
func (s *Server) streamHandler(c *echo.Context) error {
	sessionID := c.Param("id")

	raw := c.QueryParam("token")
	if raw == "" {
		return token.ErrMissing
	}
	claims, err := s.tokens.Verify(raw, token.AudienceWST, sessionID)
	if err != nil {
		return err
	}

	var since int64
	if v := c.QueryParam("since"); v != "" {
		since, err = strconv.ParseInt(v, 10, 64)
		if err != nil || since < 0 {
			return newAPIError(http.StatusBadRequest, "validation_failed", "since must be a non-negative integer")
		}
	}

	sub, err := s.bus.Subscribe(sessionID, since)
	if err != nil {
		if errors.Is(err, events.ErrSessionClosed) {
			return newAPIError(http.StatusConflict, "invalid_state", "session stream is closed")
		}
		return err
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: s.cfg.Server.AllowedOrigins,
	})
	if err != nil {
		sub.Cancel()
		return err
	}

	slog.Debug("Stream subscriber connected",
		"session_id", sessionID, "user_id", claims.Subject, "since", since)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Reader goroutine: the client only ever sends pings, but reading is what
	// surfaces a client-side close.
	go func() {
		defer cancel()
		defer sub.Cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for evt := range sub.Events {
		data, err := json.Marshal(evt)
		if err != nil {
			slog.Error("Failed to marshal stream event",
				"session_id", sessionID, "event_id", evt.ID, "error", err)
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			sub.Cancel()
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return nil
		}
	}

	// Channel closed by the bus: report why before closing.
	switch sub.Reason() {
	case events.ReasonSlowConsumer:
		_ = conn.Close(websocket.StatusPolicyViolation, "slow_consumer")
	default:
		_ = conn.Close(websocket.StatusNormalClosure, string(sub.Reason()))
	}
	return nil
}
