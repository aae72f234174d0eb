// Package cleanup enforces data retention: sealed sessions past the retention
// window are removed entirely, including their media blobs and any in-process
// stream state.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/firstround/interviewd/pkg/events"
	"github.com/firstround/interviewd/pkg/media"
	"github.com/firstround/interviewd/pkg/store"
)

// Config controls the sweeper.
type Config struct {
	// RetentionDays keeps sealed sessions for this many days after their
	// last update. Zero or negative disables the sweeper.
	RetentionDays int
	// Interval between sweeps.
	Interval time.Duration
}

// Service is the background retention sweeper. All operations are idempotent;
// a sweep interrupted mid-way finishes the remainder on the next tick.
type Service struct {
	config Config
	store  store.Store
	bus    *events.Bus
	blobs  media.BlobStore

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates the sweeper. blobs may be nil when media storage is not
// configured.
func NewService(cfg Config, st store.Store, bus *events.Bus, blobs media.BlobStore) *Service {
	return &Service{config: cfg, store: st, bus: bus, blobs: blobs}
}

// Start launches the background loop. A non-positive retention disables it.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil || s.config.RetentionDays <= 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Retention sweeper started",
		"retention_days", s.config.RetentionDays,
		"interval", s.config.Interval)
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	slog.Info("Retention sweeper stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep removes every sealed session older than the retention window.
// Exported so operators can trigger it out of band.
func (s *Service) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.config.RetentionDays)
	ids, err := s.store.ListSealedBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: listing sealed sessions failed", "error", err)
		return
	}

	removed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if s.blobs != nil {
			if err := s.blobs.DeleteSession(ctx, id); err != nil {
				// Leave the rows in place so the blobs get retried next tick.
				slog.Error("Retention: blob removal failed", "session_id", id, "error", err)
				continue
			}
		}
		if err := s.store.DeleteSessionCascade(ctx, id); err != nil {
			slog.Error("Retention: session removal failed", "session_id", id, "error", err)
			continue
		}
		s.bus.RemoveTopic(id)
		removed++
	}
	if removed > 0 {
		slog.Info("Retention: removed expired sessions", "count", removed)
	}
}
