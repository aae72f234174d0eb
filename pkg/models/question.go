package models

import "time"

// QuestionType mirrors the configurable interview modes.
const (
	QuestionBehavioral = "behavioral"
	QuestionCoding     = "coding"
	QuestionScenario   = "scenario"
	QuestionMCQ        = "mcq"
	QuestionFIB        = "fib"
)

// CodeTest is a single function-call test case attached to a coding question.
type CodeTest struct {
	Input    []any `json:"input"`
	Expected any   `json:"expected"`
}

// Question is one asked question. Ordinal is 1-based and gapless per session.
type Question struct {
	ID           string     `json:"questionId"`
	SessionID    string     `json:"sessionId"`
	Ordinal      int        `json:"ordinal"`
	Type         string     `json:"type"`
	Text         string     `json:"text"`
	Difficulty   string     `json:"difficulty,omitempty"`
	FunctionName string     `json:"functionName,omitempty"` // coding only
	Signature    string     `json:"signature,omitempty"`    // coding only
	Tests        []CodeTest `json:"tests,omitempty"`        // coding only
	Options      []string   `json:"options,omitempty"`      // mcq only
	Slots        []string   `json:"slots,omitempty"`        // fib only
	Fallback     bool       `json:"fallback,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
