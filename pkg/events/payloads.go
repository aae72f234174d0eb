package events

import "github.com/firstround/interviewd/pkg/models"

// QuestionCreatedPayload is the payload for QUESTION_CREATED events.
// Published when the AI proxy (or its fallback) produces a new question.
type QuestionCreatedPayload struct {
	QuestionID string `json:"questionId"`
	Ordinal    int    `json:"ordinal"`
	Type       string `json:"questionType"`
	Text       string `json:"text"`
	Fallback   bool   `json:"fallback,omitempty"`
}

// AnswerRecordedPayload is the payload for ANSWER_RECORDED events.
type AnswerRecordedPayload struct {
	AnswerID   string `json:"answerId"`
	QuestionID string `json:"questionId"`
	AnswerType string `json:"answerType"`
}

// FeedbackCreatedPayload is the payload for FEEDBACK_CREATED events.
// Published when immediate per-answer analysis completes.
type FeedbackCreatedPayload struct {
	AnswerID   string `json:"answerId"`
	QuestionID string `json:"questionId"`
	Score      int    `json:"score"`
	Fallback   bool   `json:"fallback,omitempty"`
}

// StrikeCreatedPayload is the payload for STRIKE_CREATED events.
type StrikeCreatedPayload struct {
	StrikeID  string `json:"strikeId"`
	EventType string `json:"eventType"`
	EventSeq  int64  `json:"eventSeq"`
	Severity  string `json:"severity"`
	Action    string `json:"action"` // none, pause, end
}

// SessionStatePayload is the payload for SESSION_PAUSED / SESSION_RESUMED /
// SESSION_ENDED / SESSION_COMPLETED events.
type SessionStatePayload struct {
	State models.SessionState `json:"state"`
	// Cause names what forced the transition (strike event type, "candidate",
	// "resume_timeout"). Empty for candidate-driven completion.
	Cause string `json:"cause,omitempty"`
	// CountdownSeconds is set on SESSION_PAUSED when an auto-end countdown is
	// running.
	CountdownSeconds int `json:"countdownSeconds,omitempty"`
}
