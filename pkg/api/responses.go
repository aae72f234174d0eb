package api

import "github.com/firstround/interviewd/pkg/models"

// LoginResponse is returned by POST /auth/login alongside the HttpOnly
// session cookie.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// CreateSessionResponse is returned by POST /interview/sessions.
type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	IST       string `json:"ist"`
	NextStep  string `json:"nextStep"`
}

// PrecheckResponse is returned by POST /interview/:id/precheck.
type PrecheckResponse struct {
	PrecheckID    string              `json:"precheckId"`
	OverallStatus string              `json:"overallStatus"`
	CanProceed    bool                `json:"canProceed"`
	State         models.SessionState `json:"state"`
}

// StartResponse is returned by POST /interview/:id/start.
type StartResponse struct {
	WST  string `json:"wst"`
	AIPT string `json:"aipt"`
	UPT  string `json:"upt"`
}

// QuestionResponse is returned by POST /interview/:id/next-question.
// Variant fields (coding tests, MCQ options, FIB slots) ride in Metadata.
type QuestionResponse struct {
	QuestionID     string         `json:"questionId"`
	QuestionNumber int            `json:"questionNumber"`
	TotalQuestions int            `json:"totalQuestions"`
	Type           string         `json:"type"`
	Text           string         `json:"text"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// AnswerResponse is returned by POST /interview/:id/answer.
type AnswerResponse struct {
	Status            string           `json:"status"`
	AnswerID          string           `json:"answerId"`
	ImmediateFeedback *models.Feedback `json:"immediateFeedback,omitempty"`
}

// AntiCheatResponse is returned by POST /interview/:id/anti-cheat.
type AntiCheatResponse struct {
	TailSeq  int64  `json:"tailSeq"`
	TailHash string `json:"tailHash"`
}

// FinalizeResponse is returned by POST /interview/:id/finalize.
type FinalizeResponse struct {
	SummaryID string `json:"summaryId"`
	Status    string `json:"status"`
}

// StateResponse is returned by GET /interview/:id/state.
type StateResponse struct {
	State      models.SessionState `json:"state"`
	AskedCount int                 `json:"askedCount"`
}

// UploadResponse is returned by POST /media/upload.
type UploadResponse struct {
	Ref string `json:"ref"`
}

// HealthCheck is one component's health in the /healthz body.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]HealthCheck `json:"checks"`
}
