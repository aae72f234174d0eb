package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/firstround/interviewd/pkg/models"
)

// DefaultTimeout is the hard budget for one provider call before the proxy
// falls back.
const DefaultTimeout = 20 * time.Second

// Proxy is the only path to the Provider. It enforces at most one in-flight
// generation per kind per session, applies the hard timeout, and substitutes
// the deterministic fallback when the provider is missing, slow, or failing.
type Proxy struct {
	provider Provider // nil when no model is configured
	fallback *Fallback
	timeout  time.Duration

	mu       sync.Mutex
	inflight map[string]bool // "<sessionID>/<kind>"

	// Finalize is idempotent, so concurrent summary requests for the same
	// session share one generation instead of being rejected.
	summaries singleflight.Group
}

// NewProxy wraps provider (nil for fallback-only operation).
func NewProxy(provider Provider, timeout time.Duration) *Proxy {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Proxy{
		provider: provider,
		fallback: &Fallback{},
		timeout:  timeout,
		inflight: make(map[string]bool),
	}
}

func (p *Proxy) acquire(sessionID, kind string) error {
	key := sessionID + "/" + kind
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight[key] {
		return fmt.Errorf("%w: %s", ErrBusy, kind)
	}
	p.inflight[key] = true
	return nil
}

func (p *Proxy) release(sessionID, kind string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, sessionID+"/"+kind)
}

// SelectType picks the question type for the given ordinal: configured modes
// rotate in declaration order, and the "random" mode samples the concrete
// types with a per-session deterministic seed so retried requests agree.
func SelectType(sess models.Session, ordinal int) string {
	modes := sess.Config.Modes
	if len(modes) == 0 {
		return models.QuestionBehavioral
	}
	mode := modes[(ordinal-1)%len(modes)]
	if mode != "random" {
		return mode
	}

	candidates := []string{models.QuestionBehavioral, models.QuestionCoding, models.QuestionScenario}
	if sess.Config.EnableMCQ {
		candidates = append(candidates, models.QuestionMCQ)
	}
	if sess.Config.EnableFIB {
		candidates = append(candidates, models.QuestionFIB)
	}

	h := fnv.New64a()
	h.Write([]byte(sess.ID))
	rng := rand.New(rand.NewSource(int64(h.Sum64()) + int64(ordinal)))
	return candidates[rng.Intn(len(candidates))]
}

// GenerateQuestion produces the next question, falling back deterministically
// on provider failure. Concurrent duplicates for the session are rejected
// with ErrBusy.
func (p *Proxy) GenerateQuestion(ctx context.Context, sess models.Session, ordinal int, asked []models.Question) (models.Question, error) {
	if err := p.acquire(sess.ID, "question"); err != nil {
		return models.Question{}, err
	}
	defer p.release(sess.ID, "question")

	req := QuestionRequest{
		Session: sess,
		Ordinal: ordinal,
		Type:    SelectType(sess, ordinal),
		Asked:   asked,
	}
	if p.provider != nil {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		q, err := p.provider.GenerateQuestion(callCtx, req)
		cancel()
		if err == nil {
			return q, nil
		}
		slog.Warn("Question generation fell back",
			"session_id", sess.ID, "ordinal", ordinal, "error", err)
	}
	return p.fallback.GenerateQuestion(ctx, req)
}

// AnalyzeAnswer scores one answer for immediate feedback, with fallback.
func (p *Proxy) AnalyzeAnswer(ctx context.Context, sess models.Session, q models.Question, a models.Answer) (models.Feedback, error) {
	if err := p.acquire(sess.ID, "analyze"); err != nil {
		return models.Feedback{}, err
	}
	defer p.release(sess.ID, "analyze")

	if p.provider != nil {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		fb, err := p.provider.AnalyzeAnswer(callCtx, q, a)
		cancel()
		if err == nil {
			return fb, nil
		}
		slog.Warn("Answer analysis fell back",
			"session_id", sess.ID, "question_id", q.ID, "error", err)
	}
	return p.fallback.AnalyzeAnswer(ctx, q, a)
}

// GenerateSummary produces the final report. Concurrent calls for one session
// share a single generation.
func (p *Proxy) GenerateSummary(ctx context.Context, req SummaryRequest) (models.Summary, error) {
	v, err, _ := p.summaries.Do(req.Session.ID, func() (any, error) {
		if p.provider != nil {
			callCtx, cancel := context.WithTimeout(ctx, p.timeout)
			sum, err := p.provider.GenerateSummary(callCtx, req)
			cancel()
			if err == nil {
				return sum, nil
			}
			slog.Warn("Summary generation fell back",
				"session_id", req.Session.ID, "error", err)
		}
		return p.fallback.GenerateSummary(ctx, req)
	})
	if err != nil {
		return models.Summary{}, err
	}
	return v.(models.Summary), nil
}
