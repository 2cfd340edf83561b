package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// PostgresCatalog reads the catalog from PostgreSQL.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog creates a new PostgresCatalog.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// GetCandidateByUsername retrieves an account by its login name.
func (r *PostgresCatalog) GetCandidateByUsername(ctx context.Context, username string) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, is_admin, password_hash
		 FROM candidates WHERE username = $1`, username,
	).Scan(&c.ID, &c.Username, &c.Name, &c.IsAdmin, &c.PasswordHash)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// GetSession retrieves a session with its assigned candidates.
func (r *PostgresCatalog) GetSession(ctx context.Context, sessionID int) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT s.id, s.test_id, s.name, s.start_time, s.duration_minutes,
		        COALESCE(array_agg(sc.candidate_id ORDER BY sc.candidate_id)
		                 FILTER (WHERE sc.candidate_id IS NOT NULL), '{}')
		 FROM sessions s
		 LEFT JOIN session_candidates sc ON sc.session_id = s.id
		 WHERE s.id = $1
		 GROUP BY s.id`, sessionID,
	).Scan(&s.ID, &s.TestID, &s.Name, &s.StartTime, &s.DurationMinutes, &s.CandidateIDs)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// GetTest retrieves a test and its ordered question ids.
func (r *PostgresCatalog) GetTest(ctx context.Context, testID int) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.subject, t.description,
		        COALESCE(array_agg(q.id ORDER BY q.position) FILTER (WHERE q.id IS NOT NULL), '{}')
		 FROM tests t
		 LEFT JOIN questions q ON q.test_id = t.id
		 WHERE t.id = $1
		 GROUP BY t.id`, testID,
	).Scan(&t.ID, &t.Name, &t.Subject, &t.Description, &t.QuestionIDs)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ListQuestions returns the questions of a test with their options, both in position order.
func (r *PostgresCatalog) ListQuestions(ctx context.Context, testID int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.content, q.type, o.id, o.content, o.is_correct
		 FROM questions q
		 JOIN options o ON o.question_id = q.id
		 WHERE q.test_id = $1
		 ORDER BY q.position, o.position`, testID,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q model.Question
			o model.Option
		)
		if err := rows.Scan(&q.ID, &q.Content, &q.Type, &o.ID, &o.Content, &o.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if n := len(questions); n == 0 || questions[n-1].ID != q.ID {
			questions = append(questions, q)
		}
		last := &questions[len(questions)-1]
		last.Answers = append(last.Answers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		if _, err := r.GetTest(ctx, testID); err != nil {
			return nil, err
		}
	}
	return questions, nil
}

// Reschedule moves a session and returns it as stored.
func (r *PostgresCatalog) Reschedule(ctx context.Context, sessionID int, start time.Time, durationMinutes int) (*model.Session, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET start_time = $1, duration_minutes = $2, updated_at = NOW()
		 WHERE id = $3`,
		start, durationMinutes, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetSession(ctx, sessionID)
}

// ─── Submissions ────────────────────────────────────────────────────

// SaveSubmission persists a finished attempt and its answers in one transaction.
// Re-delivery of the same submission is a no-op.
func (r *PostgresCatalog) SaveSubmission(ctx context.Context, sub *model.Submission) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`INSERT INTO submissions (session_id, candidate_id, submitted_at, auto_closed)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, candidate_id) DO NOTHING`,
		sub.SessionID, sub.CandidateID, sub.SubmittedAt, sub.AutoClosed,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for key, answer := range sub.Answers {
		qid, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("question id %q: %w", key, err)
		}
		batch.Queue(
			`INSERT INTO submission_answers (session_id, candidate_id, question_id, answer)
			 VALUES ($1, $2, $3, $4)`,
			sub.SessionID, sub.CandidateID, qid, answer,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ─── Import ─────────────────────────────────────────────────────────

// Import upserts a fixture, keeping its ids. Passwords must already be hashed.
func (r *PostgresCatalog) Import(ctx context.Context, seed *Seed) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, c := range seed.Candidates {
		if _, err := tx.Exec(ctx,
			`INSERT INTO candidates (id, username, name, is_admin, password_hash)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE
			 SET username = EXCLUDED.username, name = EXCLUDED.name,
			     is_admin = EXCLUDED.is_admin, password_hash = EXCLUDED.password_hash`,
			c.ID, c.Username, c.Name, c.IsAdmin, c.PasswordHash,
		); err != nil {
			return fmt.Errorf("upsert candidate %s: %w", c.Username, err)
		}
	}

	for _, t := range seed.Tests {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tests (id, name, subject, description) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE
			 SET name = EXCLUDED.name, subject = EXCLUDED.subject, description = EXCLUDED.description`,
			t.ID, t.Name, t.Subject, t.Description,
		); err != nil {
			return fmt.Errorf("upsert test %d: %w", t.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE test_id = $1`, t.ID); err != nil {
			return fmt.Errorf("clear questions of test %d: %w", t.ID, err)
		}
		for qi, q := range t.Questions {
			if _, err := tx.Exec(ctx,
				`INSERT INTO questions (id, test_id, position, content, type) VALUES ($1, $2, $3, $4, $5)`,
				q.ID, t.ID, qi, q.Content, q.Type,
			); err != nil {
				return fmt.Errorf("insert question %d: %w", q.ID, err)
			}
			for oi, o := range q.Answers {
				if _, err := tx.Exec(ctx,
					`INSERT INTO options (id, question_id, position, content, is_correct) VALUES ($1, $2, $3, $4, $5)`,
					o.ID, q.ID, oi, o.Content, o.IsCorrect,
				); err != nil {
					return fmt.Errorf("insert option %d: %w", o.ID, err)
				}
			}
		}
	}

	for _, s := range seed.Sessions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sessions (id, test_id, name, start_time, duration_minutes)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE
			 SET test_id = EXCLUDED.test_id, name = EXCLUDED.name,
			     start_time = EXCLUDED.start_time, duration_minutes = EXCLUDED.duration_minutes,
			     updated_at = NOW()`,
			s.ID, s.TestID, s.Name, s.StartTime, s.DurationMinutes,
		); err != nil {
			return fmt.Errorf("upsert session %d: %w", s.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM session_candidates WHERE session_id = $1`, s.ID); err != nil {
			return fmt.Errorf("clear candidates of session %d: %w", s.ID, err)
		}
		for _, cid := range s.CandidateIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO session_candidates (session_id, candidate_id) VALUES ($1, $2)`,
				s.ID, cid,
			); err != nil {
				return fmt.Errorf("assign candidate %d to session %d: %w", cid, s.ID, err)
			}
		}
	}

	// Explicit ids leave the serial sequences behind.
	for _, table := range []string{"candidates", "tests", "questions", "options", "sessions"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 1))`, table,
		)); err != nil {
			return fmt.Errorf("reset sequence of %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}
