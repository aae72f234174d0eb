// Package events is the per-session fan-out bus. Every state transition,
// question, answer, strike, and feedback item is published to the session's
// topic and delivered in publish order to every subscribed WebSocket client.
//
// Delivery contract:
//   - Per-session total order. Event IDs are monotonic per session.
//   - Reconnect replay: subscribers pass the last event id they saw and the
//     ring buffer replays everything newer that is still retained.
//   - Publishing never blocks. A subscriber whose channel is full is dropped
//     and its stream closed with a slow_consumer reason.
//   - Terminal transitions close all subscriber streams after the terminal
//     frame.
//
// The bus is single-process. For a multi-instance deployment an external
// broker must preserve exactly this contract (per-session ordering,
// replay-from-id, lossy-on-slow) per session topic.
package events

import (
	"encoding/json"
	"time"
)

// Event types delivered on the session stream.
const (
	EventTypeQuestionCreated  = "QUESTION_CREATED"
	EventTypeAnswerRecorded   = "ANSWER_RECORDED"
	EventTypeFeedbackCreated  = "FEEDBACK_CREATED"
	EventTypeStrikeCreated    = "STRIKE_CREATED"
	EventTypeSessionPaused    = "SESSION_PAUSED"
	EventTypeSessionResumed   = "SESSION_RESUMED"
	EventTypeSessionEnded     = "SESSION_ENDED"
	EventTypeSessionCompleted = "SESSION_COMPLETED"
)

// Event is one frame on a session stream.
type Event struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Timestamp string          `json:"timestamp"` // RFC3339Nano
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// CloseReason explains why a subscription's channel was closed.
type CloseReason string

const (
	ReasonSlowConsumer CloseReason = "slow_consumer"
	ReasonTerminal     CloseReason = "session_terminal"
	ReasonCancelled    CloseReason = "cancelled"
)

// ClientMessage is the JSON structure for client → server stream messages.
// The stream is mostly server→client; clients send only pings.
type ClientMessage struct {
	Action string `json:"action"` // "ping"
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
