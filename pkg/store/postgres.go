package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/firstround/interviewd/pkg/models"
)

// Postgres is the production Store. Append-only tables carry the immutable
// records; the sessions row is the single mutable record and every write to
// it is a compare-and-set on state.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps a pooled connection (see pkg/database).
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (p *Postgres) CreateSession(ctx context.Context, s *models.Session) error {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, state, config, token_generation, precheck_passed,
			asked_count, answered_count, strike_minor, strike_major, chain_seq, chain_hash,
			end_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		s.ID, s.UserID, s.State, cfg, s.TokenGeneration, s.PrecheckPassed,
		s.AskedCount, s.AnsweredCount, s.StrikeMinor, s.StrikeMajor,
		s.ChainSeq, s.ChainHash, s.EndReason, s.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func scanSession(row interface{ Scan(...any) error }) (models.Session, error) {
	var s models.Session
	var cfg []byte
	err := row.Scan(&s.ID, &s.UserID, &s.State, &cfg, &s.TokenGeneration, &s.PrecheckPassed,
		&s.AskedCount, &s.AnsweredCount, &s.StrikeMinor, &s.StrikeMajor,
		&s.ChainSeq, &s.ChainHash, &s.EndReason, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("scanning session: %w", err)
	}
	if err := json.Unmarshal(cfg, &s.Config); err != nil {
		return models.Session{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return s, nil
}

const sessionColumns = `id, user_id, state, config, token_generation, precheck_passed,
	asked_count, answered_count, strike_minor, strike_major, chain_seq, chain_hash,
	end_reason, created_at, updated_at`

func (p *Postgres) GetSession(ctx context.Context, id string) (models.Session, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (p *Postgres) ListSessionsByUser(ctx context.Context, userID string) ([]models.Session, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateSession(ctx context.Context, s models.Session, expect models.SessionState) error {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET state = $1, config = $2, token_generation = $3, precheck_passed = $4,
			asked_count = $5, answered_count = $6, strike_minor = $7, strike_major = $8,
			chain_seq = $9, chain_hash = $10, end_reason = $11, updated_at = now()
		WHERE id = $12 AND state = $13`,
		s.State, cfg, s.TokenGeneration, s.PrecheckPassed,
		s.AskedCount, s.AnsweredCount, s.StrikeMinor, s.StrikeMajor,
		s.ChainSeq, s.ChainHash, s.EndReason, s.ID, expect)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n == 0 {
		if _, err := p.GetSession(ctx, s.ID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrStateConflict
	}
	return nil
}

// guardWritable locks the session row for the transaction and rejects writes
// against terminal sessions.
func guardWritable(ctx context.Context, tx *sql.Tx, sessionID string) error {
	var state models.SessionState
	err := tx.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("locking session: %w", err)
	}
	if state.Terminal() {
		return ErrTerminal
	}
	return nil
}

func (p *Postgres) AppendQuestion(ctx context.Context, q *models.Question) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := guardWritable(ctx, tx, q.SessionID); err != nil {
		return err
	}

	q.CreatedAt = time.Now().UTC()
	// The row lock above serializes concurrent appends, keeping ordinals
	// gapless; the UNIQUE (session_id, ordinal) constraint backstops it.
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(ordinal), 0) + 1 FROM questions WHERE session_id = $1`,
		q.SessionID).Scan(&q.Ordinal)
	if err != nil {
		return fmt.Errorf("assigning ordinal: %w", err)
	}

	body, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshaling question: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO questions (id, session_id, ordinal, qtype, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		q.ID, q.SessionID, q.Ordinal, q.Type, body, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}
	return tx.Commit()
}

func (p *Postgres) AppendAnswer(ctx context.Context, a *models.Answer) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := guardWritable(ctx, tx, a.SessionID); err != nil {
		return err
	}

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1 AND session_id = $2)`,
		a.QuestionID, a.SessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking question: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	a.CreatedAt = time.Now().UTC()
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling answer: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO answers (id, session_id, question_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.SessionID, a.QuestionID, body, a.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("inserting answer: %w", err)
	}
	return tx.Commit()
}

func (p *Postgres) AttachFeedback(ctx context.Context, sessionID, answerID string, fb models.Feedback) error {
	body, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshaling feedback: %w", err)
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE answers SET feedback = $1 WHERE id = $2 AND session_id = $3`,
		body, answerID, sessionID)
	if err != nil {
		return fmt.Errorf("attaching feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetQuestions(ctx context.Context, sessionID string) ([]models.Question, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT body FROM questions WHERE session_id = $1 ORDER BY ordinal`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		var q models.Question
		if err := json.Unmarshal(body, &q); err != nil {
			return nil, fmt.Errorf("unmarshaling question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (p *Postgres) GetAnswers(ctx context.Context, sessionID string) ([]models.Answer, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT body, feedback FROM answers WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying answers: %w", err)
	}
	defer rows.Close()

	var out []models.Answer
	for rows.Next() {
		var body, feedback []byte
		if err := rows.Scan(&body, &feedback); err != nil {
			return nil, fmt.Errorf("scanning answer: %w", err)
		}
		var a models.Answer
		if err := json.Unmarshal(body, &a); err != nil {
			return nil, fmt.Errorf("unmarshaling answer: %w", err)
		}
		if len(feedback) > 0 {
			var fb models.Feedback
			if err := json.Unmarshal(feedback, &fb); err != nil {
				return nil, fmt.Errorf("unmarshaling feedback: %w", err)
			}
			a.Feedback = &fb
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) AppendAntiCheatBatch(ctx context.Context, sessionID string, events []models.AntiCheatEvent, newTail models.ChainTail) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := guardWritable(ctx, tx, sessionID); err != nil {
		return err
	}

	for _, e := range events {
		var details any
		if len(e.Details) > 0 {
			details = []byte(e.Details)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO anticheat_events (session_id, seq, etype, ts, details, prev_hash, hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sessionID, e.Seq, e.Type, e.TS, details, e.PrevHash, e.Hash)
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("inserting event seq %d: %w", e.Seq, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET chain_seq = $1, chain_hash = $2, updated_at = now() WHERE id = $3`,
		newTail.Seq, newTail.Hash, sessionID)
	if err != nil {
		return fmt.Errorf("advancing chain tail: %w", err)
	}
	return tx.Commit()
}

func (p *Postgres) GetEvents(ctx context.Context, sessionID string, sinceSeq int64) ([]models.AntiCheatEvent, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT session_id, seq, etype, ts, details, prev_hash, hash
		FROM anticheat_events WHERE session_id = $1 AND seq > $2 ORDER BY seq`,
		sessionID, sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []models.AntiCheatEvent
	for rows.Next() {
		var e models.AntiCheatEvent
		var details []byte
		if err := rows.Scan(&e.SessionID, &e.Seq, &e.Type, &e.TS, &details, &e.PrevHash, &e.Hash); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Details = details
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertStrike(ctx context.Context, s *models.Strike) error {
	s.CreatedAt = time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO strikes (id, session_id, event_seq, event_type, severity, action, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.SessionID, s.EventSeq, s.EventType, s.Severity, s.Action, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting strike: %w", err)
	}
	return nil
}

func (p *Postgres) GetStrikes(ctx context.Context, sessionID string) ([]models.Strike, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, session_id, event_seq, event_type, severity, action, created_at
		FROM strikes WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying strikes: %w", err)
	}
	defer rows.Close()

	var out []models.Strike
	for rows.Next() {
		var s models.Strike
		if err := rows.Scan(&s.ID, &s.SessionID, &s.EventSeq, &s.EventType, &s.Severity, &s.Action, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning strike: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) WriteSummary(ctx context.Context, s *models.Summary) error {
	s.CreatedAt = time.Now().UTC()
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	// Sealed once: a summary already present for the session wins.
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO summaries (id, session_id, body, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO NOTHING`,
		s.ID, s.SessionID, body, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting summary: %w", err)
	}
	return nil
}

func (p *Postgres) GetSummary(ctx context.Context, sessionID string) (models.Summary, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT body FROM summaries WHERE session_id = $1`, sessionID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Summary{}, ErrNotFound
	}
	if err != nil {
		return models.Summary{}, fmt.Errorf("querying summary: %w", err)
	}
	var s models.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		return models.Summary{}, fmt.Errorf("unmarshaling summary: %w", err)
	}
	return s, nil
}

func (p *Postgres) ConsumeUploadToken(ctx context.Context, jti string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO consumed_upload_tokens (jti) VALUES ($1)`, jti)
	if isUniqueViolation(err) {
		return ErrTokenConsumed
	}
	if err != nil {
		return fmt.Errorf("consuming upload token: %w", err)
	}
	return nil
}

func (p *Postgres) SaveUpload(ctx context.Context, u *models.Upload) error {
	u.CreatedAt = time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO uploads (ref, session_id, filename, size, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.Ref, u.SessionID, u.Filename, u.Size, u.Checksum, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting upload: %w", err)
	}
	return nil
}

func (p *Postgres) GetUploads(ctx context.Context, sessionID string) ([]models.Upload, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT ref, session_id, filename, size, checksum, created_at
		FROM uploads WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying uploads: %w", err)
	}
	defer rows.Close()

	var out []models.Upload
	for rows.Next() {
		var u models.Upload
		if err := rows.Scan(&u.Ref, &u.SessionID, &u.Filename, &u.Size, &u.Checksum, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning upload: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSealedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id FROM sessions
		WHERE state IN ('completed', 'ended') AND updated_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing sealed sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSessionCascade(ctx context.Context, id string) error {
	// Dependent tables reference sessions with ON DELETE CASCADE.
	_, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
