package models

import "time"

// Answer records the candidate's response to one question. At most one answer
// exists per question; a second submission is rejected.
type Answer struct {
	ID           string            `json:"answerId"`
	SessionID    string            `json:"sessionId"`
	QuestionID   string            `json:"questionId"`
	AnswerType   string            `json:"answerType"`
	ResponseText string            `json:"responseText,omitempty"`
	AudioRef     string            `json:"audioRef,omitempty"`
	CodeRef      string            `json:"codeRef,omitempty"`
	MCQSelected  string            `json:"mcqSelected,omitempty"`
	FIBEntries   map[string]string `json:"fibEntries,omitempty"`
	Transcripts  []string          `json:"transcripts,omitempty"`
	TimeSpent    int               `json:"timeSpent,omitempty"` // seconds
	Feedback     *Feedback         `json:"feedback,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Feedback is the immediate per-answer analysis attached after submission.
type Feedback struct {
	Score       int    `json:"score"` // 0..100
	Feedback    string `json:"feedback"`
	ModelAnswer string `json:"modelAnswer,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// SubmitAnswerRequest is the wire shape for answer submission.
type SubmitAnswerRequest struct {
	QuestionID   string            `json:"questionId" validate:"required"`
	AnswerType   string            `json:"answerType" validate:"required,oneof=voice text code mcq fib"`
	ResponseText string            `json:"responseText,omitempty"`
	AudioRef     string            `json:"audioRef,omitempty"`
	CodeRef      string            `json:"codeRef,omitempty"`
	MCQSelected  string            `json:"mcqSelected,omitempty"`
	FIBEntries   map[string]string `json:"fibEntries,omitempty"`
	Transcripts  []string          `json:"transcripts,omitempty"`
	TimeSpent    int               `json:"timeSpent,omitempty"`
}
