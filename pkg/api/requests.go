package api

import "github.com/firstround/interviewd/pkg/models"

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email string `json:"email"`
}

// AntiCheatRequest is the shared body of /precheck and /anti-cheat. The
// pre-check evaluates Checks; the steady-state endpoint ignores them.
type AntiCheatRequest struct {
	SessionID string                          `json:"sessionId"`
	Checks    map[string]models.PrecheckCheck `json:"checks,omitempty"`
	Events    []models.AntiCheatEvent         `json:"events,omitempty"`
}
