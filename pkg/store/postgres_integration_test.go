//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/firstround/interviewd/pkg/database"
	"github.com/firstround/interviewd/pkg/models"
)

// newTestStore spins up a throwaway PostgreSQL container, applies the
// embedded migrations, and returns a Postgres store against it.
func newTestStore(t *testing.T) *Postgres {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("interviewd_test"),
		tcpostgres.WithUsername("interviewd"),
		tcpostgres.WithPassword("interviewd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	client, err := database.NewClientDSN(ctx, dsn, database.Config{
		Database:        "interviewd_test",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewPostgres(client.DB())
}

func createTestSession(t *testing.T, p *Postgres, state models.SessionState) models.Session {
	t.Helper()
	s := models.Session{
		ID:     uuid.NewString(),
		UserID: "user-1",
		State:  state,
		Config: models.SessionConfig{
			RoleCategory:  "software_engineering",
			Modes:         []string{"behavioral"},
			QuestionCount: 5,
			DurationLimit: 30,
			Difficulty:    "medium",
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, p.CreateSession(context.Background(), &s))
	return s
}

func TestPostgresSessionRoundTrip(t *testing.T) {
	p := newTestStore(t)
	ctx := context.Background()

	s := createTestSession(t, p, models.StatePendingPrecheck)

	got, err := p.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, models.StatePendingPrecheck, got.State)
	assert.Equal(t, "software_engineering", got.Config.RoleCategory)

	_, err = p.GetSession(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := p.ListSessionsByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgresUpdateSessionCAS(t *testing.T) {
	p := newTestStore(t)
	ctx := context.Background()

	s := createTestSession(t, p, models.StateReady)
	s.State = models.StateActive
	require.NoError(t, p.UpdateSession(ctx, s, models.StateReady))

	s.State = models.StateCompleted
	assert.ErrorIs(t, p.UpdateSession(ctx, s, models.StateReady), ErrStateConflict)
}

func TestPostgresQuestionOrdinalsAndAnswerUniqueness(t *testing.T) {
	p := newTestStore(t)
	ctx := context.Background()

	s := createTestSession(t, p, models.StateActive)

	q1 := models.Question{ID: uuid.NewString(), SessionID: s.ID, Type: models.QuestionBehavioral, Text: "q1"}
	q2 := models.Question{ID: uuid.NewString(), SessionID: s.ID, Type: models.QuestionCoding, Text: "q2"}
	require.NoError(t, p.AppendQuestion(ctx, &q1))
	require.NoError(t, p.AppendQuestion(ctx, &q2))
	assert.Equal(t, 1, q1.Ordinal)
	assert.Equal(t, 2, q2.Ordinal)

	a := models.Answer{ID: uuid.NewString(), SessionID: s.ID, QuestionID: q1.ID, AnswerType: "text", ResponseText: "hi"}
	require.NoError(t, p.AppendAnswer(ctx, &a))
	dup := models.Answer{ID: uuid.NewString(), SessionID: s.ID, QuestionID: q1.ID, AnswerType: "text"}
	assert.ErrorIs(t, p.AppendAnswer(ctx, &dup), ErrAlreadyExists)

	require.NoError(t, p.AttachFeedback(ctx, s.ID, a.ID, models.Feedback{Score: 70, Feedback: "ok"}))
	answers, err := p.GetAnswers(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	require.NotNil(t, answers[0].Feedback)
	assert.Equal(t, 70, answers[0].Feedback.Score)
}

func TestPostgresAntiCheatBatchAtomicity(t *testing.T) {
	p := newTestStore(t)
	ctx := context.Background()

	s := createTestSession(t, p, models.StateActive)

	events := []models.AntiCheatEvent{
		{SessionID: s.ID, Seq: 1, Type: models.EventTabSwitch, TS: "2026-01-01T00:00:00Z", PrevHash: "", Hash: "h1"},
		{SessionID: s.ID, Seq: 2, Type: models.EventBlur, TS: "2026-01-01T00:00:01Z", PrevHash: "h1", Hash: "h2"},
	}
	require.NoError(t, p.AppendAntiCheatBatch(ctx, s.ID, events, models.ChainTail{Seq: 2, Hash: "h2"}))

	// Replaying a seq must fail and leave the tail untouched.
	err := p.AppendAntiCheatBatch(ctx, s.ID,
		[]models.AntiCheatEvent{{SessionID: s.ID, Seq: 2, Type: models.EventBlur, TS: "t", Hash: "x"}},
		models.ChainTail{Seq: 2, Hash: "x"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err := p.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ChainSeq)
	assert.Equal(t, "h2", got.ChainHash)

	since, err := p.GetEvents(ctx, s.ID, 0)
	require.NoError(t, err)
	assert.Len(t, since, 2)
}

func TestPostgresSummarySealedOnce(t *testing.T) {
	p := newTestStore(t)
	ctx := context.Background()

	s := createTestSession(t, p, models.StateActive)

	first := models.Summary{ID: uuid.NewString(), SessionID: s.ID, Overall: 80}
	require.NoError(t, p.WriteSummary(ctx, &first))
	second := models.Summary{ID: uuid.NewString(), SessionID: s.ID, Overall: 10}
	require.NoError(t, p.WriteSummary(ctx, &second))

	got, err := p.GetSummary(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.Overall)
}

func TestPostgresUploadTokenOneShotAndCascade(t *testing.T) {
	p := newTestStore(t)
	ctx := context.Background()

	s := createTestSession(t, p, models.StateActive)

	require.NoError(t, p.ConsumeUploadToken(ctx, "jti-1"))
	assert.ErrorIs(t, p.ConsumeUploadToken(ctx, "jti-1"), ErrTokenConsumed)

	u := models.Upload{Ref: uuid.NewString(), SessionID: s.ID, Filename: "clip.webm", Size: 3, Checksum: "abc"}
	require.NoError(t, p.SaveUpload(ctx, &u))

	s.State = models.StateEnded
	require.NoError(t, p.UpdateSession(ctx, s, models.StateActive))

	ids, err := p.ListSealedBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Contains(t, ids, s.ID)

	require.NoError(t, p.DeleteSessionCascade(ctx, s.ID))
	uploads, err := p.GetUploads(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, uploads)
}
