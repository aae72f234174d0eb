package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/firstround/interviewd/pkg/ai"
	"github.com/firstround/interviewd/pkg/anticheat"
	"github.com/firstround/interviewd/pkg/codeeval"
	"github.com/firstround/interviewd/pkg/session"
	"github.com/firstround/interviewd/pkg/store"
	"github.com/firstround/interviewd/pkg/token"
)

// apiError is the wire error: {error: {kind, message, details?}}. Kind
// strings are a stable contract with clients.
type apiError struct {
	Status  int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *apiError) Error() string {
	return e.Kind + ": " + e.Message
}

func newAPIError(status int, kind, message string) *apiError {
	return &apiError{Status: status, Kind: kind, Message: message}
}

// mapError folds every component error into the public taxonomy exactly
// once. Component error strings never reach clients verbatim for 5xx.
func mapError(err error) *apiError {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	// Token Authority rejections.
	switch {
	case errors.Is(err, token.ErrMissing):
		return newAPIError(http.StatusUnauthorized, "token_missing", "authentication token required")
	case errors.Is(err, token.ErrExpired):
		return newAPIError(http.StatusUnauthorized, "token_expired", "token has expired")
	case errors.Is(err, token.ErrInvalid):
		return newAPIError(http.StatusUnauthorized, "token_invalid", "token is invalid")
	case errors.Is(err, token.ErrWrongAudience):
		return newAPIError(http.StatusForbidden, "token_wrong_audience", "token not valid for this operation")
	case errors.Is(err, token.ErrWrongSession):
		return newAPIError(http.StatusForbidden, "token_wrong_session", "token bound to a different session")
	case errors.Is(err, token.ErrWrongGen):
		return newAPIError(http.StatusForbidden, "token_invalid", "token superseded by a session state change")
	case errors.Is(err, token.ErrAlreadyUsed), errors.Is(err, store.ErrTokenConsumed):
		return newAPIError(http.StatusUnauthorized, "token_already_used", "upload token already consumed")
	}

	var validErr *session.ValidationError
	if errors.As(err, &validErr) {
		return newAPIError(http.StatusBadRequest, "validation_failed", validErr.Msg)
	}
	if errors.Is(err, codeeval.ErrDisallowedCode) {
		return newAPIError(http.StatusBadRequest, "validation_failed", "disallowed_code")
	}

	var chainErr *anticheat.ChainError
	if errors.As(err, &chainErr) {
		return &apiError{
			Status:  http.StatusConflict,
			Kind:    "chain_broken",
			Message: "batch does not extend the current chain",
			Details: chainErr.Tail,
		}
	}

	switch {
	case errors.Is(err, session.ErrInvalidState), errors.Is(err, store.ErrTerminal),
		errors.Is(err, store.ErrStateConflict), errors.Is(err, session.ErrPrecheckRequired):
		return newAPIError(http.StatusConflict, "invalid_state", "operation not allowed in current session state")
	case errors.Is(err, session.ErrNoQuestionsRemaining):
		return newAPIError(http.StatusConflict, "invalid_state", "question budget exhausted")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, session.ErrNotOwner):
		// Ownership failures are deliberately indistinguishable from
		// missing ids.
		return newAPIError(http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, store.ErrAlreadyExists):
		return newAPIError(http.StatusConflict, "already_exists", "resource already exists")
	case errors.Is(err, ai.ErrBusy):
		return newAPIError(http.StatusTooManyRequests, "rate_limited", "a generation for this session is already in flight")
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		kind := "validation_failed"
		if httpErr.Code >= 500 {
			kind = "internal"
		}
		msg := httpErr.Message
		if msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return newAPIError(httpErr.Code, kind, msg)
	}

	slog.Error("Unexpected error", "error", err)
	return newAPIError(http.StatusInternalServerError, "internal", "internal server error")
}

// errorHandler renders every handler error as the taxonomy body.
func errorHandler(c *echo.Context, err error) {
	if res, uerr := echo.UnwrapResponse(c.Response()); uerr == nil && res.Committed {
		return
	}
	apiErr := mapError(err)
	if werr := c.JSON(apiErr.Status, map[string]any{"error": apiErr}); werr != nil {
		slog.Error("Failed to write error response", "error", werr)
	}
}
