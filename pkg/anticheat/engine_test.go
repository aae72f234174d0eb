package anticheat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstround/interviewd/pkg/events"
	"github.com/firstround/interviewd/pkg/models"
	"github.com/firstround/interviewd/pkg/policy"
	"github.com/firstround/interviewd/pkg/store"
)

// fakeMachine records transition requests and applies them to the session
// the way the real state machine would.
type fakeMachine struct {
	pauses  []string
	ends    []string
	resumes []string
	expired chan string
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{expired: make(chan string, 4)}
}

func (f *fakeMachine) AutoPause(_ context.Context, sess *models.Session, cause string, _ int) error {
	sess.State = models.StatePaused
	sess.TokenGeneration++
	f.pauses = append(f.pauses, cause)
	return nil
}

func (f *fakeMachine) AutoEnd(_ context.Context, sess *models.Session, cause string) error {
	sess.State = models.StateEnded
	sess.TokenGeneration++
	sess.EndReason = cause
	f.ends = append(f.ends, cause)
	return nil
}

func (f *fakeMachine) AutoResume(_ context.Context, sess *models.Session, cause string) error {
	sess.State = models.StateActive
	f.resumes = append(f.resumes, cause)
	return nil
}

func (f *fakeMachine) CountdownExpired(sessionID, cause string) {
	f.expired <- cause
}

type engineFixture struct {
	engine  *Engine
	machine *fakeMachine
	store   *store.Memory
	sess    models.Session
}

func newFixture(t *testing.T, pol policy.Policy) *engineFixture {
	t.Helper()
	mem := store.NewMemory()
	sess := models.Session{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		State:     models.StateActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, mem.CreateSession(context.Background(), &sess))

	eng := NewEngine(mem, pol, events.NewPublisher(events.NewBus()))
	m := newFakeMachine()
	eng.SetMachine(m)
	t.Cleanup(eng.Stop)
	return &engineFixture{engine: eng, machine: m, store: mem, sess: sess}
}

// chain builds a valid batch extending the session's current tail.
func chain(t *testing.T, sess *models.Session, specs ...[2]string) []models.AntiCheatEvent {
	t.Helper()
	prevSeq, prevHash := sess.ChainSeq, sess.ChainHash
	out := make([]models.AntiCheatEvent, 0, len(specs))
	for _, sp := range specs {
		evt := models.AntiCheatEvent{
			SessionID: sess.ID,
			Seq:       prevSeq + 1,
			Type:      sp[0],
			TS:        time.Now().UTC().Format(time.RFC3339),
			PrevHash:  prevHash,
		}
		if sp[1] != "" {
			evt.Details = json.RawMessage(sp[1])
		}
		h, err := CanonicalDigest(evt)
		require.NoError(t, err)
		evt.Hash = h
		out = append(out, evt)
		prevSeq, prevHash = evt.Seq, evt.Hash
	}
	return out
}

func TestIngestAcceptsValidChain(t *testing.T) {
	f := newFixture(t, policy.Default())
	ctx := context.Background()

	batch := chain(t, &f.sess, [2]string{models.EventBlur, ""}, [2]string{models.EventBlurCleared, ""})
	tail, strikes, err := f.engine.IngestBatch(ctx, &f.sess, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tail.Seq)
	assert.Equal(t, batch[1].Hash, tail.Hash)
	assert.Len(t, strikes, 1) // BLUR strikes, BLUR_CLEARED is informational

	// Round trip: persisted events re-verify against the stored tail.
	stored, err := f.store.GetEvents(ctx, f.sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, evt := range stored {
		h, err := CanonicalDigest(evt)
		require.NoError(t, err)
		assert.Equal(t, evt.Hash, h)
	}
}

func TestIngestRejectsBrokenChainWithCurrentTail(t *testing.T) {
	f := newFixture(t, policy.Default())
	ctx := context.Background()

	good := chain(t, &f.sess, [2]string{models.EventBlur, ""})
	tail, _, err := f.engine.IngestBatch(ctx, &f.sess, good)
	require.NoError(t, err)

	// Wrong prevHash.
	bad := chain(t, &f.sess, [2]string{models.EventBlur, ""})
	bad[0].PrevHash = "forged"
	h, err := CanonicalDigest(bad[0])
	require.NoError(t, err)
	bad[0].Hash = h

	_, _, err = f.engine.IngestBatch(ctx, &f.sess, bad)
	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, tail, chainErr.Tail)

	// Nothing persisted from the rejected batch.
	stored, err := f.store.GetEvents(ctx, f.sess.ID, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, tail.Seq, f.sess.ChainSeq)
}

func TestIngestRejectsSeqGap(t *testing.T) {
	f := newFixture(t, policy.Default())
	batch := chain(t, &f.sess, [2]string{models.EventBlur, ""})
	batch[0].Seq = 5
	h, err := CanonicalDigest(batch[0])
	require.NoError(t, err)
	batch[0].Hash = h

	_, _, err = f.engine.IngestBatch(context.Background(), &f.sess, batch)
	var chainErr *ChainError
	assert.ErrorAs(t, err, &chainErr)
}

func TestIngestRejectsTamperedHash(t *testing.T) {
	f := newFixture(t, policy.Default())
	batch := chain(t, &f.sess, [2]string{models.EventBlur, ""})
	batch[0].Hash = "0000000000000000000000000000000000000000000000000000000000000000"

	_, _, err := f.engine.IngestBatch(context.Background(), &f.sess, batch)
	var chainErr *ChainError
	assert.ErrorAs(t, err, &chainErr)
}

func TestScreenshotAttemptEndsOnFirst(t *testing.T) {
	f := newFixture(t, policy.Default())

	batch := chain(t, &f.sess, [2]string{models.EventScreenshotAttempt, ""})
	_, strikes, err := f.engine.IngestBatch(context.Background(), &f.sess, batch)
	require.NoError(t, err)

	require.Len(t, strikes, 1)
	assert.Equal(t, models.StrikeActionEnd, strikes[0].Action)
	assert.Equal(t, models.StateEnded, f.sess.State)
	assert.Equal(t, []string{models.EventScreenshotAttempt}, f.machine.ends)
	assert.Equal(t, 1, f.sess.TokenGeneration, "leaving Active bumps the generation")
}

func TestFSExitPausesThenSecondEnds(t *testing.T) {
	f := newFixture(t, policy.Default())
	ctx := context.Background()

	_, strikes, err := f.engine.IngestBatch(ctx, &f.sess, chain(t, &f.sess, [2]string{models.EventFSExit, ""}))
	require.NoError(t, err)
	assert.Equal(t, models.StrikeActionPause, strikes[0].Action)
	assert.Equal(t, models.StatePaused, f.sess.State)

	_, strikes, err = f.engine.IngestBatch(ctx, &f.sess, chain(t, &f.sess, [2]string{models.EventFSExit, ""}))
	require.NoError(t, err)
	assert.Equal(t, models.StrikeActionEnd, strikes[0].Action)
	assert.Equal(t, models.StateEnded, f.sess.State)
}

func TestFSReadyRescindsPauseWithinWindow(t *testing.T) {
	f := newFixture(t, policy.Default())
	ctx := context.Background()

	_, _, err := f.engine.IngestBatch(ctx, &f.sess, chain(t, &f.sess, [2]string{models.EventFSExit, ""}))
	require.NoError(t, err)
	require.Equal(t, models.StatePaused, f.sess.State)

	_, _, err = f.engine.IngestBatch(ctx, &f.sess, chain(t, &f.sess, [2]string{models.EventFSReady, ""}))
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, f.sess.State)
	assert.Equal(t, []string{models.EventFSReady}, f.machine.resumes)

	// Countdown was cancelled: nothing fires.
	select {
	case cause := <-f.machine.expired:
		t.Fatalf("countdown fired after rescission: %s", cause)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownExpiryRequestsEnd(t *testing.T) {
	pol := policy.Default()
	pol.PauseCountdownSeconds = 0 // fire immediately
	f := newFixture(t, pol)

	_, _, err := f.engine.IngestBatch(context.Background(), &f.sess, chain(t, &f.sess, [2]string{models.EventFSExit, ""}))
	require.NoError(t, err)

	select {
	case cause := <-f.machine.expired:
		assert.Equal(t, models.EventFSExit, cause)
	case <-time.After(time.Second):
		t.Fatal("countdown never fired")
	}
}

func TestTabSwitchWarnsThenEnds(t *testing.T) {
	f := newFixture(t, policy.Default())
	ctx := context.Background()

	_, strikes, err := f.engine.IngestBatch(ctx, &f.sess, chain(t, &f.sess, [2]string{models.EventTabSwitch, ""}))
	require.NoError(t, err)
	assert.Equal(t, models.StrikeActionNone, strikes[0].Action)
	assert.Equal(t, models.StateActive, f.sess.State)

	_, strikes, err = f.engine.IngestBatch(ctx, &f.sess, chain(t, &f.sess, [2]string{models.EventTabSwitch, ""}))
	require.NoError(t, err)
	assert.Equal(t, models.StrikeActionEnd, strikes[0].Action)
	assert.Equal(t, models.StateEnded, f.sess.State)
}

func TestFaceMissingDurationFilterAndMinorEscalation(t *testing.T) {
	f := newFixture(t, policy.Default())
	ctx := context.Background()

	// Short glances produce no strike.
	_, strikes, err := f.engine.IngestBatch(ctx, &f.sess,
		chain(t, &f.sess, [2]string{models.EventFaceMissing, `{"duration":1.5}`}))
	require.NoError(t, err)
	assert.Empty(t, strikes)

	// Three long absences: third minor pauses.
	for i := 0; i < 2; i++ {
		_, strikes, err = f.engine.IngestBatch(ctx, &f.sess,
			chain(t, &f.sess, [2]string{models.EventFaceMissing, `{"duration":3}`}))
		require.NoError(t, err)
		require.Len(t, strikes, 1)
		assert.Equal(t, models.StrikeActionNone, strikes[0].Action)
	}
	_, strikes, err = f.engine.IngestBatch(ctx, &f.sess,
		chain(t, &f.sess, [2]string{models.EventFaceMissing, `{"duration":3}`}))
	require.NoError(t, err)
	require.Len(t, strikes, 1)
	assert.Equal(t, models.StrikeActionPause, strikes[0].Action)
	assert.Equal(t, models.StatePaused, f.sess.State)
	assert.Equal(t, 3, f.sess.StrikeMinor)
}

func TestStrikesDuringPrecheckDoNotTransition(t *testing.T) {
	f := newFixture(t, policy.Default())
	f.sess.State = models.StatePendingPrecheck

	_, strikes, err := f.engine.IngestBatch(context.Background(), &f.sess,
		chain(t, &f.sess, [2]string{models.EventTabSwitch, ""}))
	require.NoError(t, err)
	assert.Len(t, strikes, 1)
	assert.Equal(t, models.StatePendingPrecheck, f.sess.State)
	assert.Empty(t, f.machine.ends)
}

func TestTerminalSessionRejectsBatches(t *testing.T) {
	f := newFixture(t, policy.Default())
	f.sess.State = models.StateEnded

	_, _, err := f.engine.IngestBatch(context.Background(), &f.sess,
		[]models.AntiCheatEvent{{Seq: 1}})
	assert.ErrorIs(t, err, store.ErrTerminal)
}
