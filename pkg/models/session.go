// Package models contains the interview domain types shared across packages.
package models

import "time"

// SessionState is the lifecycle state of an interview session.
type SessionState string

const (
	StatePendingPrecheck SessionState = "pending_precheck"
	StateReady           SessionState = "ready"
	StateActive          SessionState = "active"
	StatePaused          SessionState = "paused"
	StateCompleted       SessionState = "completed"
	StateEnded           SessionState = "ended"
)

// Terminal reports whether the state admits no further transitions.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateEnded
}

// SessionConfig is the candidate-supplied interview configuration, captured
// verbatim at creation and immutable afterwards.
type SessionConfig struct {
	RoleCategory            string   `json:"roleCategory" validate:"required"`
	RoleSubType             string   `json:"roleSubType,omitempty"`
	ExperienceYears         int      `json:"experienceYears" validate:"min=0,max=50"`
	ExperienceMonths        int      `json:"experienceMonths" validate:"min=0,max=11"`
	Modes                   []string `json:"modes" validate:"required,min=1,dive,oneof=behavioral coding scenario mcq fib random"`
	QuestionCount           int      `json:"questionCount" validate:"required,min=5,max=20"`
	DurationLimit           int      `json:"durationLimit" validate:"required,min=15,max=90"`
	Language                string   `json:"language,omitempty"`
	AccentPreference        string   `json:"accentPreference,omitempty"`
	Difficulty              string   `json:"difficulty" validate:"required,oneof=easy medium hard adaptive"`
	JobDescription          string   `json:"jobDescription,omitempty"`
	ResumeFileRef           string   `json:"resumeFileRef,omitempty"`
	CompanyTargets          []string `json:"companyTargets,omitempty"`
	IncludeCuratedQuestions bool     `json:"includeCuratedQuestions"`
	AllowAIGenerated        bool     `json:"allowAIGenerated"`
	EnableMCQ               bool     `json:"enableMCQ"`
	EnableFIB               bool     `json:"enableFIB"`
	ConsentRecording        bool     `json:"consentRecording"`
	ConsentAntiCheat        bool     `json:"consentAntiCheat"`
	ConsentTimestamp        string   `json:"consentTimestamp,omitempty"`
}

// Session is the authoritative record for one interview run.
//
// TokenGeneration is bumped every time the session leaves Active; AI-proxy and
// upload tokens embed the generation at mint time and are refused once it
// moves on. ChainSeq/ChainHash are the anti-cheat chain tail (seq 0 and the
// empty-string hash before the first event).
type Session struct {
	ID              string        `json:"sessionId"`
	UserID          string        `json:"userId"`
	State           SessionState  `json:"state"`
	Config          SessionConfig `json:"config"`
	TokenGeneration int           `json:"-"`
	PrecheckPassed  bool          `json:"precheckPassed"`
	AskedCount      int           `json:"askedCount"`
	AnsweredCount   int           `json:"answeredCount"`
	StrikeMinor     int           `json:"strikeMinorCount"`
	StrikeMajor     int           `json:"strikeMajorCount"`
	ChainSeq        int64         `json:"chainSeq"`
	ChainHash       string        `json:"chainHash"`
	EndReason       string        `json:"endReason,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// PrecheckCheck is one device/environment check result reported by the client.
type PrecheckCheck struct {
	Status string `json:"status" validate:"required,oneof=pass warning fail"`
	Detail string `json:"detail,omitempty"`
}

// PrecheckResult is the server's verdict on a pre-check submission.
type PrecheckResult struct {
	OverallStatus string       `json:"overallStatus"`
	CanProceed    bool         `json:"canProceed"`
	State         SessionState `json:"state"`
}
