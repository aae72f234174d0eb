package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstround/interviewd/pkg/models"
)

func newSession(t *testing.T, m *Memory, state models.SessionState) models.Session {
	t.Helper()
	s := models.Session{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		State:     state,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, m.CreateSession(context.Background(), &s))
	return s
}

func TestUpdateSessionCAS(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s := newSession(t, m, models.StateReady)

	s.State = models.StateActive
	require.NoError(t, m.UpdateSession(ctx, s, models.StateReady))

	// stale expectation loses
	s.State = models.StateCompleted
	err := m.UpdateSession(ctx, s, models.StateReady)
	assert.ErrorIs(t, err, ErrStateConflict)

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, got.State)
}

func TestAppendQuestionOrdinalsGaplessUnderConcurrency(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s := newSession(t, m, models.StateActive)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := models.Question{ID: uuid.NewString(), SessionID: s.ID, Type: models.QuestionBehavioral}
			assert.NoError(t, m.AppendQuestion(ctx, &q))
		}()
	}
	wg.Wait()

	qs, err := m.GetQuestions(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, qs, n)
	seen := make(map[int]bool)
	for _, q := range qs {
		seen[q.Ordinal] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[i], "ordinal %d missing", i)
	}
}

func TestAppendAnswerDuplicateRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s := newSession(t, m, models.StateActive)

	q := models.Question{ID: uuid.NewString(), SessionID: s.ID, Type: models.QuestionBehavioral}
	require.NoError(t, m.AppendQuestion(ctx, &q))

	a1 := models.Answer{ID: uuid.NewString(), SessionID: s.ID, QuestionID: q.ID, AnswerType: "text"}
	require.NoError(t, m.AppendAnswer(ctx, &a1))

	a2 := models.Answer{ID: uuid.NewString(), SessionID: s.ID, QuestionID: q.ID, AnswerType: "text"}
	assert.ErrorIs(t, m.AppendAnswer(ctx, &a2), ErrAlreadyExists)
}

func TestAppendAnswerUnknownQuestion(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s := newSession(t, m, models.StateActive)

	a := models.Answer{ID: uuid.NewString(), SessionID: s.ID, QuestionID: uuid.NewString(), AnswerType: "text"}
	assert.ErrorIs(t, m.AppendAnswer(ctx, &a), ErrNotFound)
}

func TestTerminalSessionRejectsWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s := newSession(t, m, models.StateEnded)

	q := models.Question{ID: uuid.NewString(), SessionID: s.ID}
	assert.ErrorIs(t, m.AppendQuestion(ctx, &q), ErrTerminal)

	err := m.AppendAntiCheatBatch(ctx, s.ID, []models.AntiCheatEvent{{Seq: 1}}, models.ChainTail{Seq: 1, Hash: "x"})
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestAntiCheatBatchAdvancesTail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s := newSession(t, m, models.StateActive)

	events := []models.AntiCheatEvent{
		{SessionID: s.ID, Seq: 1, Type: models.EventTabSwitch, Hash: "h1"},
		{SessionID: s.ID, Seq: 2, Type: models.EventBlur, Hash: "h2"},
	}
	require.NoError(t, m.AppendAntiCheatBatch(ctx, s.ID, events, models.ChainTail{Seq: 2, Hash: "h2"}))

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ChainSeq)
	assert.Equal(t, "h2", got.ChainHash)

	since, err := m.GetEvents(ctx, s.ID, 1)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, int64(2), since[0].Seq)
}

func TestWriteSummaryIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s := newSession(t, m, models.StateActive)

	first := models.Summary{ID: uuid.NewString(), SessionID: s.ID, Overall: 80}
	require.NoError(t, m.WriteSummary(ctx, &first))

	second := models.Summary{ID: uuid.NewString(), SessionID: s.ID, Overall: 10}
	require.NoError(t, m.WriteSummary(ctx, &second))

	got, err := m.GetSummary(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 80, got.Overall)
}

func TestConsumeUploadTokenOneShot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.ConsumeUploadToken(ctx, "jti-1"))
	assert.ErrorIs(t, m.ConsumeUploadToken(ctx, "jti-1"), ErrTokenConsumed)
	require.NoError(t, m.ConsumeUploadToken(ctx, "jti-2"))
}

func TestRetentionListingAndCascade(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	old := newSession(t, m, models.StateActive)
	old.State = models.StateEnded
	require.NoError(t, m.UpdateSession(ctx, old, models.StateActive))
	fresh := newSession(t, m, models.StateEnded)
	_ = fresh

	ids, err := m.ListSealedBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	ids, err = m.ListSealedBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, m.DeleteSessionCascade(ctx, old.ID))
	_, err = m.GetSession(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
