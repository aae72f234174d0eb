package cleanup

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstround/interviewd/pkg/events"
	"github.com/firstround/interviewd/pkg/media"
	"github.com/firstround/interviewd/pkg/models"
	"github.com/firstround/interviewd/pkg/store"
)

func seedSession(t *testing.T, st *store.Memory, state models.SessionState) models.Session {
	t.Helper()
	sess := models.Session{ID: uuid.NewString(), UserID: "u1", State: models.StatePendingPrecheck}
	require.NoError(t, st.CreateSession(context.Background(), &sess))
	if state != models.StatePendingPrecheck {
		from := sess.State
		sess.State = state
		require.NoError(t, st.UpdateSession(context.Background(), sess, from))
	}
	return sess
}

func TestSweepRemovesOnlyExpiredSealedSessions(t *testing.T) {
	st := store.NewMemory()
	bus := events.NewBus()
	blobs, err := media.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	sealed := seedSession(t, st, models.StateCompleted)
	live := seedSession(t, st, models.StateActive)

	blob, err := blobs.Save(ctx, sealed.ID, strings.NewReader("recording"))
	require.NoError(t, err)

	// Zero retention makes anything updated before "now" expired.
	svc := NewService(Config{RetentionDays: 0, Interval: time.Hour}, st, bus, blobs)
	time.Sleep(5 * time.Millisecond)
	svc.Sweep(ctx)

	_, err = st.GetSession(ctx, sealed.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "sealed session removed")
	_, err = blobs.Open(ctx, blob.Ref)
	assert.ErrorIs(t, err, media.ErrNotFound, "its blobs removed too")

	_, err = st.GetSession(ctx, live.ID)
	assert.NoError(t, err, "live sessions are never swept")
}

func TestSweepIsIdempotent(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(Config{RetentionDays: 0, Interval: time.Hour}, st, events.NewBus(), nil)

	sealed := seedSession(t, st, models.StateEnded)
	time.Sleep(5 * time.Millisecond)
	ctx := context.Background()
	svc.Sweep(ctx)
	svc.Sweep(ctx)

	_, err := st.GetSession(ctx, sealed.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStartDisabledWithoutRetention(t *testing.T) {
	svc := NewService(Config{RetentionDays: 0, Interval: time.Hour}, store.NewMemory(), events.NewBus(), nil)
	svc.Start(context.Background())
	assert.Nil(t, svc.cancel, "zero retention never starts the loop")
	svc.Stop() // no-op, must not panic
}

func TestStartStop(t *testing.T) {
	svc := NewService(Config{RetentionDays: 30, Interval: time.Hour}, store.NewMemory(), events.NewBus(), nil)
	svc.Start(context.Background())
	svc.Stop()
}
