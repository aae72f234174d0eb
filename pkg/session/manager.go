// Package session owns the interview lifecycle. The Manager is the only
// component that transitions a session between states; everything else (the
// anti-cheat engine, the gateway, the countdown timers) requests transitions
// through it. A per-session mutex serializes every mutating operation, so
// invariants hold without the store needing cross-row transactions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/firstround/interviewd/pkg/ai"
	"github.com/firstround/interviewd/pkg/anticheat"
	"github.com/firstround/interviewd/pkg/events"
	"github.com/firstround/interviewd/pkg/models"
	"github.com/firstround/interviewd/pkg/policy"
	"github.com/firstround/interviewd/pkg/store"
	"github.com/firstround/interviewd/pkg/token"
)

// Manager drives the session state machine.
type Manager struct {
	store     store.Store
	publisher *events.Publisher
	tokens    *token.Authority
	proxy     *ai.Proxy
	engine    *anticheat.Engine
	policy    policy.Policy
	validate  *validator.Validate

	locks sync.Map // session id → *sync.Mutex
}

// NewManager wires the state machine. It registers itself with the engine so
// strike actions can request transitions.
func NewManager(st store.Store, pub *events.Publisher, auth *token.Authority, proxy *ai.Proxy, engine *anticheat.Engine, pol policy.Policy) *Manager {
	m := &Manager{
		store:     st,
		publisher: pub,
		tokens:    auth,
		proxy:     proxy,
		engine:    engine,
		policy:    pol,
		validate:  validator.New(),
	}
	engine.SetMachine(m)
	return m
}

func (m *Manager) lock(sessionID string) func() {
	v, _ := m.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// owned fetches the session and enforces ownership for user-authenticated
// paths. userID may be empty for capability-token paths, which bind the
// session id in the token instead.
func (m *Manager) owned(ctx context.Context, sessionID, userID string) (models.Session, error) {
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	if userID != "" && sess.UserID != userID {
		return models.Session{}, ErrNotOwner
	}
	return sess, nil
}

// Create validates the config and persists a new session in
// PendingPrecheck, returning it with a freshly minted interview session
// token.
func (m *Manager) Create(ctx context.Context, userID string, cfg models.SessionConfig) (models.Session, string, error) {
	if err := m.validate.Struct(cfg); err != nil {
		return models.Session{}, "", NewValidationError("%v", err)
	}
	if !cfg.ConsentRecording || !cfg.ConsentAntiCheat {
		return models.Session{}, "", NewValidationError("consent_required: recording and anti-cheat consent are mandatory")
	}

	sess := models.Session{
		ID:     uuid.NewString(),
		UserID: userID,
		State:  models.StatePendingPrecheck,
		Config: cfg,
	}
	if err := m.store.CreateSession(ctx, &sess); err != nil {
		return models.Session{}, "", fmt.Errorf("creating session: %w", err)
	}

	ist, _, err := m.tokens.Mint(token.MintSpec{
		Subject:   userID,
		Audience:  token.AudienceIST,
		SessionID: sess.ID,
	})
	if err != nil {
		return models.Session{}, "", fmt.Errorf("minting ist: %w", err)
	}

	slog.Info("Session created", "session_id", sess.ID, "user_id", userID,
		"question_count", cfg.QuestionCount, "modes", cfg.Modes)
	return sess, ist, nil
}

// Get returns the session, enforcing ownership when userID is non-empty.
func (m *Manager) Get(ctx context.Context, sessionID, userID string) (models.Session, error) {
	return m.owned(ctx, sessionID, userID)
}

// List returns the user's sessions, newest first.
func (m *Manager) List(ctx context.Context, userID string) ([]models.Session, error) {
	return m.store.ListSessionsByUser(ctx, userID)
}

// overallStatus folds individual check results: any fail fails the
// pre-check, any warning downgrades it, otherwise it passes.
func overallStatus(checks map[string]models.PrecheckCheck) string {
	status := "pass"
	for _, c := range checks {
		switch c.Status {
		case "fail":
			return "fail"
		case "warning":
			status = "warning"
		}
	}
	return status
}

// SubmitPrecheck ingests the accompanying anti-cheat events (pre-check
// batches extend the chain like any other) and evaluates the device checks.
// A passing submission moves PendingPrecheck to Ready; on a Paused session it
// acts as the re-check that resumes the interview. Repeated submissions are
// additive for the chain but only the latest checks decide canProceed.
func (m *Manager) SubmitPrecheck(ctx context.Context, sessionID string, checks map[string]models.PrecheckCheck, batch []models.AntiCheatEvent) (models.PrecheckResult, error) {
	if len(checks) == 0 {
		return models.PrecheckResult{}, NewValidationError("at least one check result is required")
	}
	for name, c := range checks {
		if err := m.validate.Struct(c); err != nil {
			return models.PrecheckResult{}, NewValidationError("check %q: %v", name, err)
		}
	}

	unlock := m.lock(sessionID)
	defer unlock()

	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return models.PrecheckResult{}, err
	}
	if sess.State != models.StatePendingPrecheck && sess.State != models.StatePaused {
		return models.PrecheckResult{}, ErrInvalidState
	}

	if len(batch) > 0 {
		if _, _, err := m.engine.IngestBatch(ctx, &sess, batch); err != nil {
			return models.PrecheckResult{}, err
		}
	}

	result := models.PrecheckResult{
		OverallStatus: overallStatus(checks),
		State:         sess.State,
	}
	result.CanProceed = result.OverallStatus != "fail"

	if result.CanProceed {
		switch sess.State {
		case models.StatePendingPrecheck:
			from := sess.State
			sess.State = models.StateReady
			sess.PrecheckPassed = true
			if err := m.store.UpdateSession(ctx, sess, from); err != nil {
				return models.PrecheckResult{}, fmt.Errorf("promoting to ready: %w", err)
			}
		case models.StatePaused:
			m.engine.CancelCountdown(sessionID)
			if err := m.AutoResume(ctx, &sess, "precheck"); err != nil {
				return models.PrecheckResult{}, err
			}
		}
	} else if err := m.store.UpdateSession(ctx, sess, sess.State); err != nil {
		// Persist chain tail movement even when the checks failed.
		return models.PrecheckResult{}, fmt.Errorf("recording pre-check: %w", err)
	}

	result.State = sess.State
	return result, nil
}

// Start hands the client its working token set once the session is Ready (or
// again while Active/Paused, e.g. after a reload). The Active transition
// itself happens on the first question request.
func (m *Manager) Start(ctx context.Context, sessionID, userID string) (wst, aipt, upt string, err error) {
	unlock := m.lock(sessionID)
	defer unlock()

	sess, err := m.owned(ctx, sessionID, userID)
	if err != nil {
		return "", "", "", err
	}
	if sess.State.Terminal() || sess.State == models.StatePendingPrecheck {
		return "", "", "", ErrInvalidState
	}
	if !sess.PrecheckPassed {
		return "", "", "", ErrPrecheckRequired
	}

	wst, _, err = m.tokens.Mint(token.MintSpec{Subject: sess.UserID, Audience: token.AudienceWST, SessionID: sess.ID})
	if err != nil {
		return "", "", "", fmt.Errorf("minting wst: %w", err)
	}
	aipt, _, err = m.tokens.Mint(token.MintSpec{Subject: sess.UserID, Audience: token.AudienceAIPT, SessionID: sess.ID, Generation: sess.TokenGeneration})
	if err != nil {
		return "", "", "", fmt.Errorf("minting aipt: %w", err)
	}
	upt, _, err = m.tokens.Mint(token.MintSpec{Subject: sess.UserID, Audience: token.AudienceUPT, SessionID: sess.ID, Generation: sess.TokenGeneration})
	if err != nil {
		return "", "", "", fmt.Errorf("minting upt: %w", err)
	}
	return wst, aipt, upt, nil
}

// MintACET issues an anti-cheat emission token for the session.
func (m *Manager) MintACET(ctx context.Context, sessionID, userID string) (string, error) {
	sess, err := m.owned(ctx, sessionID, userID)
	if err != nil {
		return "", err
	}
	if sess.State.Terminal() {
		return "", ErrInvalidState
	}
	acet, _, err := m.tokens.Mint(token.MintSpec{Subject: sess.UserID, Audience: token.AudienceACET, SessionID: sess.ID})
	if err != nil {
		return "", fmt.Errorf("minting acet: %w", err)
	}
	return acet, nil
}

// MintAIPT reissues an AI-proxy token carrying the current generation.
// Only valid while Active; tokens for paused sessions come back after the
// resume through a fresh Start/refresh cycle.
func (m *Manager) MintAIPT(ctx context.Context, sessionID, userID string) (string, error) {
	sess, err := m.owned(ctx, sessionID, userID)
	if err != nil {
		return "", err
	}
	if sess.State != models.StateActive {
		return "", ErrInvalidState
	}
	aipt, _, err := m.tokens.Mint(token.MintSpec{Subject: sess.UserID, Audience: token.AudienceAIPT, SessionID: sess.ID, Generation: sess.TokenGeneration})
	if err != nil {
		return "", fmt.Errorf("minting aipt: %w", err)
	}
	return aipt, nil
}

// Refresh reissues the tokens still applicable to the session's state under
// the user's cookie. Terminal sessions get nothing.
func (m *Manager) Refresh(ctx context.Context, sessionID, userID string) (map[string]string, error) {
	sess, err := m.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if sess.State.Terminal() {
		return out, nil
	}

	ist, _, err := m.tokens.Mint(token.MintSpec{Subject: sess.UserID, Audience: token.AudienceIST, SessionID: sess.ID})
	if err != nil {
		return nil, fmt.Errorf("minting ist: %w", err)
	}
	out["ist"] = ist

	if sess.State == models.StateActive {
		wst, _, err := m.tokens.Mint(token.MintSpec{Subject: sess.UserID, Audience: token.AudienceWST, SessionID: sess.ID})
		if err != nil {
			return nil, fmt.Errorf("minting wst: %w", err)
		}
		out["wst"] = wst
	}
	return out, nil
}

// checkGeneration refuses capability tokens minted before the session last
// left Active.
func checkGeneration(sess models.Session, gen int) error {
	if gen != sess.TokenGeneration {
		return token.ErrWrongGen
	}
	return nil
}

// NextQuestion asks the AI proxy for the next question. The first question
// moves a Ready session to Active. tokenGen is the generation claim from the
// caller's AIPT.
func (m *Manager) NextQuestion(ctx context.Context, sessionID string, tokenGen int) (models.Question, error) {
	unlock := m.lock(sessionID)
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		unlock()
		return models.Question{}, err
	}
	if err := checkGeneration(sess, tokenGen); err != nil {
		unlock()
		return models.Question{}, err
	}
	switch sess.State {
	case models.StateReady:
		if !sess.PrecheckPassed {
			unlock()
			return models.Question{}, ErrPrecheckRequired
		}
		from := sess.State
		sess.State = models.StateActive
		if err := m.store.UpdateSession(ctx, sess, from); err != nil {
			unlock()
			return models.Question{}, fmt.Errorf("activating session: %w", err)
		}
		slog.Info("Session activated", "session_id", sess.ID)
	case models.StateActive:
		// already underway
	default:
		unlock()
		return models.Question{}, ErrInvalidState
	}
	if sess.AskedCount >= sess.Config.QuestionCount {
		unlock()
		return models.Question{}, ErrNoQuestionsRemaining
	}
	asked, err := m.store.GetQuestions(ctx, sessionID)
	if err != nil {
		unlock()
		return models.Question{}, fmt.Errorf("loading asked questions: %w", err)
	}
	ordinal := sess.AskedCount + 1
	unlock()

	// Generation happens outside the lock so a strike can still end the
	// session; the proxy rejects concurrent duplicates for this session.
	q, err := m.proxy.GenerateQuestion(ctx, sess, ordinal, asked)
	if err != nil {
		return models.Question{}, err
	}

	unlock = m.lock(sessionID)
	defer unlock()
	sess, err = m.store.GetSession(ctx, sessionID)
	if err != nil {
		return models.Question{}, err
	}
	if sess.State != models.StateActive {
		// A strike (or the resume timeout) won the race.
		return models.Question{}, ErrInvalidState
	}
	if err := m.store.AppendQuestion(ctx, &q); err != nil {
		return models.Question{}, fmt.Errorf("persisting question: %w", err)
	}
	sess.AskedCount++
	if err := m.store.UpdateSession(ctx, sess, models.StateActive); err != nil {
		return models.Question{}, fmt.Errorf("recording asked count: %w", err)
	}
	m.publisher.PublishQuestionCreated(q)
	return q, nil
}

// SubmitAnswer records the candidate's answer (one per question) and runs
// immediate analysis on it. Analysis failures degrade to the heuristic
// fallback inside the proxy and never fail the submission.
func (m *Manager) SubmitAnswer(ctx context.Context, sessionID string, req models.SubmitAnswerRequest) (models.Answer, error) {
	if err := m.validate.Struct(req); err != nil {
		return models.Answer{}, NewValidationError("%v", err)
	}

	unlock := m.lock(sessionID)
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		unlock()
		return models.Answer{}, err
	}
	if sess.State != models.StateActive {
		unlock()
		return models.Answer{}, ErrInvalidState
	}

	answer := models.Answer{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		QuestionID:   req.QuestionID,
		AnswerType:   req.AnswerType,
		ResponseText: req.ResponseText,
		AudioRef:     req.AudioRef,
		CodeRef:      req.CodeRef,
		MCQSelected:  req.MCQSelected,
		FIBEntries:   req.FIBEntries,
		Transcripts:  req.Transcripts,
		TimeSpent:    req.TimeSpent,
	}
	if err := m.store.AppendAnswer(ctx, &answer); err != nil {
		unlock()
		return models.Answer{}, err
	}
	sess.AnsweredCount++
	if err := m.store.UpdateSession(ctx, sess, models.StateActive); err != nil {
		unlock()
		return models.Answer{}, fmt.Errorf("recording answered count: %w", err)
	}
	m.publisher.PublishAnswerRecorded(answer)

	var question models.Question
	if qs, err := m.store.GetQuestions(ctx, sessionID); err == nil {
		for _, q := range qs {
			if q.ID == req.QuestionID {
				question = q
				break
			}
		}
	}
	unlock()

	fb, err := m.proxy.AnalyzeAnswer(ctx, sess, question, answer)
	if err != nil {
		// The answer stands without immediate feedback, whether another
		// analysis is in flight (ErrBusy) or the fallback itself failed.
		slog.Debug("Immediate analysis skipped", "session_id", sessionID,
			"answer_id", answer.ID, "busy", errors.Is(err, ai.ErrBusy), "error", err)
		return answer, nil
	}
	if err := m.store.AttachFeedback(ctx, sessionID, answer.ID, fb); err != nil {
		slog.Warn("Failed to attach feedback", "session_id", sessionID, "answer_id", answer.ID, "error", err)
		return answer, nil
	}
	answer.Feedback = &fb
	m.publisher.PublishFeedbackCreated(answer)
	return answer, nil
}

// collectQA pairs every asked question with its answer.
func (m *Manager) collectQA(ctx context.Context, sessionID string) ([]ai.QA, error) {
	questions, err := m.store.GetQuestions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading questions: %w", err)
	}
	answers, err := m.store.GetAnswers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading answers: %w", err)
	}
	byQuestion := make(map[string]models.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	qa := make([]ai.QA, 0, len(questions))
	for _, q := range questions {
		item := ai.QA{Question: q}
		if a, ok := byQuestion[q.ID]; ok {
			cp := a
			item.Answer = &cp
		}
		qa = append(qa, item)
	}
	return qa, nil
}

// verdictFor folds the strike timeline into the summary verdict per the
// policy's major-strike budget.
func (m *Manager) verdictFor(strikes []models.Strike) models.AntiCheatVerdict {
	v := models.AntiCheatVerdict{Verdict: "pass", Strikes: strikes}
	majors := 0
	for _, s := range strikes {
		if s.Severity == models.SeverityMajor {
			majors++
		}
	}
	switch {
	case m.policy.FailedVerdictMajors > 0 && majors >= m.policy.FailedVerdictMajors:
		v.Verdict = "failed"
	case len(strikes) > 0:
		v.Verdict = "warning"
	}
	return v
}

// Finalize generates the summary and seals the session as Completed. Summary
// generation runs outside the lock; a major strike landing meanwhile wins
// the race and the finalize is rejected.
func (m *Manager) Finalize(ctx context.Context, sessionID string) (models.Summary, error) {
	unlock := m.lock(sessionID)
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		unlock()
		return models.Summary{}, err
	}
	if sess.State != models.StateActive && sess.State != models.StatePaused {
		unlock()
		return models.Summary{}, ErrInvalidState
	}
	qa, err := m.collectQA(ctx, sessionID)
	if err != nil {
		unlock()
		return models.Summary{}, err
	}
	strikes, err := m.store.GetStrikes(ctx, sessionID)
	if err != nil {
		unlock()
		return models.Summary{}, fmt.Errorf("loading strikes: %w", err)
	}
	unlock()

	summary, err := m.proxy.GenerateSummary(ctx, ai.SummaryRequest{Session: sess, QA: qa, Strikes: strikes})
	if err != nil {
		return models.Summary{}, fmt.Errorf("generating summary: %w", err)
	}
	summary.AntiCheat = m.verdictFor(strikes)
	summary.FinalizedBy = "candidate"

	unlock = m.lock(sessionID)
	defer unlock()
	sess, err = m.store.GetSession(ctx, sessionID)
	if err != nil {
		return models.Summary{}, err
	}
	if sess.State != models.StateActive && sess.State != models.StatePaused {
		// A strike ended the session while the summary was generating.
		return models.Summary{}, ErrInvalidState
	}
	if err := m.store.WriteSummary(ctx, &summary); err != nil {
		return models.Summary{}, fmt.Errorf("writing summary: %w", err)
	}

	from := sess.State
	sess.State = models.StateCompleted
	sess.TokenGeneration++
	if err := m.store.UpdateSession(ctx, sess, from); err != nil {
		return models.Summary{}, fmt.Errorf("sealing session: %w", err)
	}
	m.engine.CancelCountdown(sessionID)
	m.publisher.PublishSessionState(sessionID, models.StateCompleted, "candidate", 0)
	slog.Info("Session completed", "session_id", sessionID, "overall", summary.Overall,
		"fallback", summary.Fallback)
	return summary, nil
}

// Summary returns the sealed report.
func (m *Manager) Summary(ctx context.Context, sessionID, userID string) (models.Summary, error) {
	if _, err := m.owned(ctx, sessionID, userID); err != nil {
		return models.Summary{}, err
	}
	return m.store.GetSummary(ctx, sessionID)
}

// HandleAntiCheat ingests one proctoring batch under the session lock and
// persists whatever counters and transitions it caused.
func (m *Manager) HandleAntiCheat(ctx context.Context, sessionID string, batch []models.AntiCheatEvent) (models.ChainTail, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return models.ChainTail{}, err
	}
	tail, _, err := m.engine.IngestBatch(ctx, &sess, batch)
	if err != nil {
		return tail, err
	}
	// Transitions inside the ingest already persisted the state; this write
	// lands the strike counters against it.
	if err := m.store.UpdateSession(ctx, sess, sess.State); err != nil {
		return tail, fmt.Errorf("recording strike counters: %w", err)
	}
	return tail, nil
}

// Tail returns the current chain tail for client resynchronization.
func (m *Manager) Tail(ctx context.Context, sessionID, userID string) (models.ChainTail, error) {
	sess, err := m.owned(ctx, sessionID, userID)
	if err != nil {
		return models.ChainTail{}, err
	}
	return models.ChainTail{Seq: sess.ChainSeq, Hash: sess.ChainHash}, nil
}

// ---- anticheat.Machine implementation ----
// AutoPause, AutoEnd, and AutoResume run inside IngestBatch, which already
// holds the session lock; they must not re-lock. CountdownExpired arrives
// from a timer goroutine and locks for itself.

var _ anticheat.Machine = (*Manager)(nil)

// AutoPause moves an Active session to Paused on a strike, invalidating
// AIPT/UPT by bumping the generation.
func (m *Manager) AutoPause(ctx context.Context, sess *models.Session, cause string, countdownSeconds int) error {
	if sess.State != models.StateActive {
		return ErrInvalidState
	}
	from := sess.State
	sess.State = models.StatePaused
	sess.TokenGeneration++
	if err := m.store.UpdateSession(ctx, *sess, from); err != nil {
		return fmt.Errorf("pausing session: %w", err)
	}
	m.publisher.PublishSessionState(sess.ID, models.StatePaused, cause, countdownSeconds)
	slog.Info("Session auto-paused", "session_id", sess.ID, "cause", cause)
	return nil
}

// AutoEnd seals the session as Ended and writes a best-effort system summary
// carrying the strike timeline.
func (m *Manager) AutoEnd(ctx context.Context, sess *models.Session, cause string) error {
	if sess.State.Terminal() {
		return nil
	}
	from := sess.State
	sess.State = models.StateEnded
	sess.TokenGeneration++
	sess.EndReason = cause
	if err := m.store.UpdateSession(ctx, *sess, from); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	m.writeSystemSummary(ctx, *sess)
	m.publisher.PublishSessionState(sess.ID, models.StateEnded, cause, 0)
	slog.Info("Session auto-ended", "session_id", sess.ID, "cause", cause)
	return nil
}

// AutoResume returns a Paused session to Active after a rescinding event or
// a passing re-check.
func (m *Manager) AutoResume(ctx context.Context, sess *models.Session, cause string) error {
	if sess.State != models.StatePaused {
		return ErrInvalidState
	}
	from := sess.State
	sess.State = models.StateActive
	if err := m.store.UpdateSession(ctx, *sess, from); err != nil {
		return fmt.Errorf("resuming session: %w", err)
	}
	m.publisher.PublishSessionState(sess.ID, models.StateActive, cause, 0)
	slog.Info("Session resumed", "session_id", sess.ID, "cause", cause)
	return nil
}

// CountdownExpired fires when a paused session's rescission window lapses.
func (m *Manager) CountdownExpired(sessionID, cause string) {
	ctx := context.Background()
	unlock := m.lock(sessionID)
	defer unlock()

	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		slog.Warn("Countdown expired for missing session", "session_id", sessionID, "error", err)
		return
	}
	if sess.State != models.StatePaused {
		return
	}
	if err := m.AutoEnd(ctx, &sess, "resume_timeout"); err != nil {
		slog.Error("Failed to end session on resume timeout", "session_id", sessionID, "error", err)
	}
}

// writeSystemSummary records the fallback report for sessions the system
// sealed itself. Best effort: the terminal transition stands regardless.
func (m *Manager) writeSystemSummary(ctx context.Context, sess models.Session) {
	qa, err := m.collectQA(ctx, sess.ID)
	if err != nil {
		slog.Warn("Skipping system summary", "session_id", sess.ID, "error", err)
		return
	}
	strikes, err := m.store.GetStrikes(ctx, sess.ID)
	if err != nil {
		slog.Warn("Skipping system summary", "session_id", sess.ID, "error", err)
		return
	}
	fb := &ai.Fallback{}
	summary, err := fb.GenerateSummary(ctx, ai.SummaryRequest{Session: sess, QA: qa, Strikes: strikes})
	if err != nil {
		slog.Warn("Skipping system summary", "session_id", sess.ID, "error", err)
		return
	}
	summary.AntiCheat = m.verdictFor(strikes)
	summary.FinalizedBy = "system"
	if err := m.store.WriteSummary(ctx, &summary); err != nil {
		slog.Warn("Failed to write system summary", "session_id", sess.ID, "error", err)
	}
}
