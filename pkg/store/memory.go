package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/firstround/interviewd/pkg/models"
)

// Memory is the in-process Store used by tests and by dev runs without a
// database. Everything is guarded by one mutex; the dataset is one
// interview's worth of rows per session, so contention is not a concern.
type Memory struct {
	mu        sync.Mutex
	sessions  map[string]models.Session
	questions map[string][]models.Question
	answers   map[string][]models.Answer
	events    map[string][]models.AntiCheatEvent
	strikes   map[string][]models.Strike
	summaries map[string]models.Summary
	uploads   map[string][]models.Upload
	consumed  map[string]bool // upload token jtis
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions:  make(map[string]models.Session),
		questions: make(map[string][]models.Question),
		answers:   make(map[string][]models.Answer),
		events:    make(map[string][]models.AntiCheatEvent),
		strikes:   make(map[string][]models.Strike),
		summaries: make(map[string]models.Summary),
		uploads:   make(map[string][]models.Upload),
		consumed:  make(map[string]bool),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListSessionsByUser(_ context.Context, userID string) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateSession(_ context.Context, s models.Session, expect models.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.State != expect {
		return ErrStateConflict
	}
	s.UpdatedAt = time.Now().UTC()
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) AppendQuestion(_ context.Context, q *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[q.SessionID]
	if !ok {
		return ErrNotFound
	}
	if s.State.Terminal() {
		return ErrTerminal
	}
	q.Ordinal = len(m.questions[q.SessionID]) + 1
	q.CreatedAt = time.Now().UTC()
	m.questions[q.SessionID] = append(m.questions[q.SessionID], *q)
	return nil
}

func (m *Memory) AppendAnswer(_ context.Context, a *models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[a.SessionID]
	if !ok {
		return ErrNotFound
	}
	if s.State.Terminal() {
		return ErrTerminal
	}
	var questionExists bool
	for _, q := range m.questions[a.SessionID] {
		if q.ID == a.QuestionID {
			questionExists = true
			break
		}
	}
	if !questionExists {
		return ErrNotFound
	}
	for _, prev := range m.answers[a.SessionID] {
		if prev.QuestionID == a.QuestionID {
			return ErrAlreadyExists
		}
	}
	a.CreatedAt = time.Now().UTC()
	m.answers[a.SessionID] = append(m.answers[a.SessionID], *a)
	return nil
}

func (m *Memory) AttachFeedback(_ context.Context, sessionID, answerID string, fb models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	answers := m.answers[sessionID]
	for i := range answers {
		if answers[i].ID == answerID {
			cp := fb
			answers[i].Feedback = &cp
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) GetQuestions(_ context.Context, sessionID string) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Question(nil), m.questions[sessionID]...), nil
}

func (m *Memory) GetAnswers(_ context.Context, sessionID string) ([]models.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Answer(nil), m.answers[sessionID]...), nil
}

func (m *Memory) AppendAntiCheatBatch(_ context.Context, sessionID string, events []models.AntiCheatEvent, newTail models.ChainTail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if s.State.Terminal() {
		return ErrTerminal
	}
	m.events[sessionID] = append(m.events[sessionID], events...)
	s.ChainSeq = newTail.Seq
	s.ChainHash = newTail.Hash
	s.UpdatedAt = time.Now().UTC()
	m.sessions[sessionID] = s
	return nil
}

func (m *Memory) GetEvents(_ context.Context, sessionID string, sinceSeq int64) ([]models.AntiCheatEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AntiCheatEvent
	for _, e := range m.events[sessionID] {
		if e.Seq > sinceSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) InsertStrike(_ context.Context, s *models.Strike) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.SessionID]; !ok {
		return ErrNotFound
	}
	s.CreatedAt = time.Now().UTC()
	m.strikes[s.SessionID] = append(m.strikes[s.SessionID], *s)
	return nil
}

func (m *Memory) GetStrikes(_ context.Context, sessionID string) ([]models.Strike, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Strike(nil), m.strikes[sessionID]...), nil
}

func (m *Memory) WriteSummary(_ context.Context, s *models.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.SessionID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.summaries[s.SessionID]; ok {
		return nil // sealed once; later writes are no-ops
	}
	s.CreatedAt = time.Now().UTC()
	m.summaries[s.SessionID] = *s
	return nil
}

func (m *Memory) GetSummary(_ context.Context, sessionID string) (models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[sessionID]
	if !ok {
		return models.Summary{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) ConsumeUploadToken(_ context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumed[jti] {
		return ErrTokenConsumed
	}
	m.consumed[jti] = true
	return nil
}

func (m *Memory) SaveUpload(_ context.Context, u *models.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[u.SessionID]; !ok {
		return ErrNotFound
	}
	u.CreatedAt = time.Now().UTC()
	m.uploads[u.SessionID] = append(m.uploads[u.SessionID], *u)
	return nil
}

func (m *Memory) GetUploads(_ context.Context, sessionID string) ([]models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Upload(nil), m.uploads[sessionID]...), nil
}

func (m *Memory) ListSealedBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, s := range m.sessions {
		if s.State.Terminal() && s.UpdatedAt.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *Memory) DeleteSessionCascade(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.questions, id)
	delete(m.answers, id)
	delete(m.events, id)
	delete(m.strikes, id)
	delete(m.summaries, id)
	delete(m.uploads, id)
	return nil
}
