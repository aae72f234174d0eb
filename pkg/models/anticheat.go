package models

import (
	"encoding/json"
	"time"
)

// Anti-cheat event types reported by the proctoring client.
const (
	EventFaceMissing       = "FACE_MISSING"
	EventFacePresent       = "FACE_PRESENT"
	EventMultiFace         = "MULTI_FACE"
	EventBlur              = "BLUR"
	EventBlurCleared       = "BLUR_CLEARED"
	EventFSExit            = "FS_EXIT"
	EventFSReady           = "FS_READY"
	EventTabSwitch         = "TAB_SWITCH"
	EventBgVoice           = "BG_VOICE"
	EventScreenshotAttempt = "SCREENSHOT_ATTEMPT"
)

// AntiCheatEvent is one link in the per-session tamper-evident chain.
// Seq starts at 1; Hash covers the canonical encoding of the event including
// PrevHash, so any retroactive edit breaks every later link.
type AntiCheatEvent struct {
	SessionID string          `json:"sessionId"`
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	TS        string          `json:"ts"` // client RFC3339 timestamp, hashed verbatim
	Details   json.RawMessage `json:"details,omitempty"`
	PrevHash  string          `json:"prevHash"`
	Hash      string          `json:"hash"`
}

// ChainTail is the server's view of the newest accepted link.
type ChainTail struct {
	Seq  int64  `json:"seq"`
	Hash string `json:"hash"`
}

// Strike severities and actions taken when one is issued.
const (
	SeverityMinor = "minor"
	SeverityMajor = "major"

	StrikeActionNone  = "none"
	StrikeActionPause = "pause"
	StrikeActionEnd   = "end"
)

// Strike is a policy violation derived from one accepted anti-cheat event.
type Strike struct {
	ID        string    `json:"strikeId"`
	SessionID string    `json:"sessionId"`
	EventSeq  int64     `json:"eventSeq"`
	EventType string    `json:"eventType"`
	Severity  string    `json:"severity"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"createdAt"`
}
