package models

import "time"

// ReviewItem is the per-question entry in the final summary.
type ReviewItem struct {
	QuestionID  string `json:"questionId"`
	Ordinal     int    `json:"ordinal"`
	Question    string `json:"question"`
	AnswerText  string `json:"answerText,omitempty"`
	Score       int    `json:"score"`
	Feedback    string `json:"feedback"`
	ModelAnswer string `json:"modelAnswer,omitempty"`
}

// AntiCheatVerdict summarizes the session's strike record.
type AntiCheatVerdict struct {
	Verdict string   `json:"verdict"` // pass, warning, failed
	Strikes []Strike `json:"strikes,omitempty"`
}

// Summary is the sealed end-of-interview report. Written exactly once.
type Summary struct {
	ID          string           `json:"summaryId"`
	SessionID   string           `json:"sessionId"`
	Overall     int              `json:"overall"` // 0..100
	Rubric      map[string]int   `json:"rubric"`  // sub-scores 1..5
	Strengths   []string         `json:"strengths,omitempty"`
	Gaps        []string         `json:"gaps,omitempty"`
	Review      []ReviewItem     `json:"review"`
	AntiCheat   AntiCheatVerdict `json:"antiCheat"`
	Fallback    bool             `json:"fallback,omitempty"`
	FinalizedBy string           `json:"finalizedBy"` // "candidate" or "system"
	CreatedAt   time.Time        `json:"createdAt"`
}
