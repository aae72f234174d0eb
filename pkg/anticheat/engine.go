package anticheat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firstround/interviewd/pkg/events"
	"github.com/firstround/interviewd/pkg/models"
	"github.com/firstround/interviewd/pkg/policy"
	"github.com/firstround/interviewd/pkg/store"
)

// maxBatchSize bounds one submission; proctoring clients flush every few
// seconds, so anything larger is malformed.
const maxBatchSize = 100

// ChainError reports a batch that does not extend the persisted chain. It
// carries the current tail so the client can resynchronize.
type ChainError struct {
	Tail models.ChainTail
	Seq  int64 // offending event seq
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain broken at seq %d (tail seq %d)", e.Seq, e.Tail.Seq)
}

// Machine is the slice of the state machine the engine drives. During
// IngestBatch the caller already holds the session lock, so these mutate and
// persist the passed session directly. CountdownExpired is called later from
// the timer goroutine and must take the lock itself.
type Machine interface {
	AutoPause(ctx context.Context, sess *models.Session, cause string, countdownSeconds int) error
	AutoEnd(ctx context.Context, sess *models.Session, cause string) error
	AutoResume(ctx context.Context, sess *models.Session, cause string) error
	CountdownExpired(sessionID, cause string)
}

type countdown struct {
	cause string
	timer *time.Timer
}

// Engine validates event batches against the chain, persists them, and
// evaluates the strike policy. One Engine serves all sessions.
type Engine struct {
	store     store.Store
	policy    policy.Policy
	publisher *events.Publisher

	machine   Machine
	machineMu sync.RWMutex

	mu         sync.Mutex
	countdowns map[string]*countdown
}

// NewEngine builds an Engine. SetMachine must be called before the first
// ingest; the state machine is constructed after the engine because each
// depends on the other.
func NewEngine(st store.Store, pol policy.Policy, pub *events.Publisher) *Engine {
	return &Engine{
		store:      st,
		policy:     pol,
		publisher:  pub,
		countdowns: make(map[string]*countdown),
	}
}

// SetMachine wires the state machine. Called once during startup.
func (e *Engine) SetMachine(m Machine) {
	e.machineMu.Lock()
	defer e.machineMu.Unlock()
	e.machine = m
}

func (e *Engine) getMachine() Machine {
	e.machineMu.RLock()
	defer e.machineMu.RUnlock()
	return e.machine
}

// IngestBatch verifies and persists one event batch, then evaluates the
// strike policy for each accepted event in order. The caller holds the
// session lock and passes the authoritative session struct; counters and the
// chain tail are updated on it in place.
//
// The whole batch is rejected with *ChainError if any link fails; partial
// acceptance would leave the client unsure where the chain stands.
func (e *Engine) IngestBatch(ctx context.Context, sess *models.Session, batch []models.AntiCheatEvent) (models.ChainTail, []models.Strike, error) {
	tail := models.ChainTail{Seq: sess.ChainSeq, Hash: sess.ChainHash}
	if len(batch) == 0 {
		return tail, nil, fmt.Errorf("empty batch")
	}
	if len(batch) > maxBatchSize {
		return tail, nil, fmt.Errorf("batch too large: %d events", len(batch))
	}
	if sess.State.Terminal() {
		return tail, nil, store.ErrTerminal
	}

	// Verify every link before persisting anything.
	prevSeq, prevHash := sess.ChainSeq, sess.ChainHash
	for i := range batch {
		evt := &batch[i]
		evt.SessionID = sess.ID
		if evt.Seq != prevSeq+1 || evt.PrevHash != prevHash {
			return tail, nil, &ChainError{Tail: tail, Seq: evt.Seq}
		}
		want, err := CanonicalDigest(*evt)
		if err != nil {
			return tail, nil, fmt.Errorf("digesting seq %d: %w", evt.Seq, err)
		}
		if evt.Hash != want {
			return tail, nil, &ChainError{Tail: tail, Seq: evt.Seq}
		}
		prevSeq, prevHash = evt.Seq, evt.Hash
	}

	newTail := models.ChainTail{Seq: prevSeq, Hash: prevHash}
	if err := e.store.AppendAntiCheatBatch(ctx, sess.ID, batch, newTail); err != nil {
		return tail, nil, fmt.Errorf("persisting batch: %w", err)
	}
	sess.ChainSeq = newTail.Seq
	sess.ChainHash = newTail.Hash

	strikes, err := e.evaluate(ctx, sess, batch)
	if err != nil {
		// The batch is already accepted; policy failures must not undo it.
		slog.Error("Strike evaluation failed", "session_id", sess.ID, "error", err)
	}
	return newTail, strikes, nil
}

// eventDuration pulls details.duration (seconds) when present.
func eventDuration(details json.RawMessage) float64 {
	if len(details) == 0 {
		return 0
	}
	var d struct {
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(details, &d); err != nil {
		return 0
	}
	return d.Duration
}

func (e *Engine) evaluate(ctx context.Context, sess *models.Session, batch []models.AntiCheatEvent) ([]models.Strike, error) {
	machine := e.getMachine()
	var issued []models.Strike

	for _, evt := range batch {
		if sess.State.Terminal() {
			break
		}

		// Rescinding events cancel a pending countdown and resume.
		if causes := e.policy.RescindsFor(evt.Type); len(causes) > 0 {
			if e.rescind(sess.ID, causes) && sess.State == models.StatePaused {
				if err := machine.AutoResume(ctx, sess, evt.Type); err != nil {
					return issued, fmt.Errorf("resuming after %s: %w", evt.Type, err)
				}
			}
			continue
		}

		rule, ok := e.policy.RuleFor(evt.Type)
		if !ok {
			continue
		}
		if rule.MinDuration > 0 && eventDuration(evt.Details) <= rule.MinDuration {
			continue
		}

		strike := models.Strike{
			ID:        uuid.NewString(),
			SessionID: sess.ID,
			EventSeq:  evt.Seq,
			EventType: evt.Type,
			Severity:  rule.Severity,
			Action:    models.StrikeActionNone,
		}
		if rule.Severity == models.SeverityMajor {
			sess.StrikeMajor++
		} else {
			sess.StrikeMinor++
		}

		action := e.decideAction(ctx, sess, evt.Type, rule)
		switch action {
		case models.StrikeActionEnd:
			strike.Action = models.StrikeActionEnd
		case models.StrikeActionPause:
			strike.Action = models.StrikeActionPause
		}

		if err := e.store.InsertStrike(ctx, &strike); err != nil {
			return issued, fmt.Errorf("persisting strike: %w", err)
		}
		issued = append(issued, strike)
		e.publisher.PublishStrikeCreated(strike)

		// Transitions only bite once the interview is underway; strikes
		// during pre-check are recorded but never pause or end anything.
		if sess.State != models.StateActive && sess.State != models.StatePaused {
			continue
		}

		switch action {
		case models.StrikeActionEnd:
			e.cancelCountdown(sess.ID)
			if err := machine.AutoEnd(ctx, sess, evt.Type); err != nil {
				return issued, fmt.Errorf("auto-ending after %s: %w", evt.Type, err)
			}
		case models.StrikeActionPause:
			if sess.State != models.StateActive {
				continue
			}
			if err := machine.AutoPause(ctx, sess, evt.Type, e.policy.PauseCountdownSeconds); err != nil {
				return issued, fmt.Errorf("auto-pausing after %s: %w", evt.Type, err)
			}
			e.startCountdown(sess.ID, evt.Type)
		}
	}
	return issued, nil
}

// decideAction picks the strongest applicable action for one strike:
// threshold escalation beats the rule's immediate action, and the combined
// minor-strike budget can force a pause on its own.
func (e *Engine) decideAction(ctx context.Context, sess *models.Session, eventType string, rule policy.Rule) string {
	if rule.Threshold > 0 {
		count := 1 // the strike being issued
		if prior, err := e.store.GetStrikes(ctx, sess.ID); err == nil {
			for _, s := range prior {
				if s.EventType == eventType {
					count++
				}
			}
		}
		if count >= rule.Threshold {
			return rule.ThresholdAction
		}
	}
	if rule.Severity == models.SeverityMinor && sess.StrikeMinor >= e.policy.MinorPauseThreshold {
		return models.StrikeActionPause
	}
	return rule.Immediate
}

// startCountdown arms the auto-end timer for an auto-paused session. A timer
// already running for the session is left alone.
func (e *Engine) startCountdown(sessionID, cause string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.countdowns[sessionID]; ok {
		return
	}
	cd := &countdown{cause: cause}
	cd.timer = time.AfterFunc(e.policy.Countdown(), func() {
		e.mu.Lock()
		if e.countdowns[sessionID] != cd {
			e.mu.Unlock()
			return
		}
		delete(e.countdowns, sessionID)
		e.mu.Unlock()

		if m := e.getMachine(); m != nil {
			m.CountdownExpired(sessionID, cause)
		}
	})
	e.countdowns[sessionID] = cd
}

// rescind cancels the session's countdown when its cause is one of causes.
// Reports whether a countdown was actually cancelled.
func (e *Engine) rescind(sessionID string, causes []string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cd, ok := e.countdowns[sessionID]
	if !ok {
		return false
	}
	for _, c := range causes {
		if cd.cause == c {
			cd.timer.Stop()
			delete(e.countdowns, sessionID)
			return true
		}
	}
	return false
}

// cancelCountdown drops any pending countdown, e.g. when the session ends.
func (e *Engine) cancelCountdown(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cd, ok := e.countdowns[sessionID]; ok {
		cd.timer.Stop()
		delete(e.countdowns, sessionID)
	}
}

// CancelCountdown exposes countdown cancellation to the state machine for
// candidate-driven terminal transitions.
func (e *Engine) CancelCountdown(sessionID string) {
	e.cancelCountdown(sessionID)
}

// Stop cancels every pending countdown. Called during shutdown.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, cd := range e.countdowns {
		cd.timer.Stop()
		delete(e.countdowns, id)
	}
}
