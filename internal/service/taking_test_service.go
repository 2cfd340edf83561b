package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/answercode"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/repository"
)

// Taking-test errors.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrNotAssigned       = errors.New("candidate is not assigned to this session")
	ErrSessionNotStarted = errors.New("session has not started")
	ErrSessionClosed     = errors.New("session is closed")
	ErrAlreadySubmitted  = errors.New("session already submitted")
	ErrInvalidAnswer     = errors.New("invalid answer")
	ErrInvalidSchedule   = errors.New("invalid schedule")
)

// TakingTestOptions tunes the attempt window.
type TakingTestOptions struct {
	// Location renders and parses start times.
	Location *time.Location
	// Grace extends the deadline for saves and submits in flight at time-up.
	Grace time.Duration
	// QueueSubmissions forwards submissions to the persistence worker.
	QueueSubmissions bool
	// Now overrides the wall clock (tests).
	Now func() time.Time
}

// TakingTestService serves one candidate's view of a session.
type TakingTestService struct {
	catalog  repository.Catalog
	progress *repository.ProgressStore
	opts     TakingTestOptions
	log      zerolog.Logger
}

// NewTakingTestService creates a new TakingTestService.
func NewTakingTestService(catalog repository.Catalog, progress *repository.ProgressStore, opts TakingTestOptions, log zerolog.Logger) *TakingTestService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TakingTestService{
		catalog:  catalog,
		progress: progress,
		opts:     opts,
		log:      log.With().Str("component", "taking_test_service").Logger(),
	}
}

// session loads sessionID and checks that candidateID may see it.
func (s *TakingTestService) session(ctx context.Context, sessionID, candidateID int) (*model.Session, error) {
	sess, err := s.catalog.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !sess.HasCandidate(candidateID) {
		return nil, ErrNotAssigned
	}
	return sess, nil
}

func (s *TakingTestService) status(ctx context.Context, sess *model.Session, candidateID int) (model.SessionStatus, error) {
	submitted, err := s.progress.IsSubmitted(ctx, sess.ID, candidateID)
	if err != nil {
		return "", err
	}
	now := s.opts.Now()
	switch {
	case submitted:
		return model.SessionStatusSubmitted, nil
	case now.Before(sess.StartTime):
		return model.SessionStatusUpcoming, nil
	case now.After(sess.Deadline()):
		return model.SessionStatusClosed, nil
	default:
		return model.SessionStatusOngoing, nil
	}
}

// writable rejects writes outside [start, deadline+grace] and after submission.
func (s *TakingTestService) writable(ctx context.Context, sess *model.Session, candidateID int) error {
	now := s.opts.Now()
	if now.Before(sess.StartTime) {
		return ErrSessionNotStarted
	}
	if now.After(sess.Deadline().Add(s.opts.Grace)) {
		return ErrSessionClosed
	}
	submitted, err := s.progress.IsSubmitted(ctx, sess.ID, candidateID)
	if err != nil {
		return err
	}
	if submitted {
		return ErrAlreadySubmitted
	}
	return nil
}

// ─── Reads ──────────────────────────────────────────────────────────

// GetSession returns the session metadata with the candidate's status.
func (s *TakingTestService) GetSession(ctx context.Context, sessionID, candidateID int) (model.SessionInfo, error) {
	sess, err := s.session(ctx, sessionID, candidateID)
	if err != nil {
		return model.SessionInfo{}, err
	}
	status, err := s.status(ctx, sess, candidateID)
	if err != nil {
		return model.SessionInfo{}, err
	}
	return sess.Info(s.opts.Location, status), nil
}

// GetTest returns the metadata of the session's test.
func (s *TakingTestService) GetTest(ctx context.Context, sessionID, candidateID int) (model.TestInfo, error) {
	sess, err := s.session(ctx, sessionID, candidateID)
	if err != nil {
		return model.TestInfo{}, err
	}
	test, err := s.catalog.GetTest(ctx, sess.TestID)
	if err != nil {
		return model.TestInfo{}, fmt.Errorf("get test: %w", err)
	}
	return test.Info(), nil
}

// GetQuestions returns the session's questions without correctness flags.
// Questions are available before the start time.
func (s *TakingTestService) GetQuestions(ctx context.Context, sessionID, candidateID int) ([]model.Question, error) {
	sess, err := s.session(ctx, sessionID, candidateID)
	if err != nil {
		return nil, err
	}
	questions, err := s.catalog.ListQuestions(ctx, sess.TestID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		out[i] = q.ForCandidate()
	}
	return out, nil
}

// ─── Writes ─────────────────────────────────────────────────────────

// SaveProgress replaces the candidate's saved answers with entries.
func (s *TakingTestService) SaveProgress(ctx context.Context, sessionID, candidateID int, entries []model.AnswerEntry) error {
	sess, err := s.session(ctx, sessionID, candidateID)
	if err != nil {
		return err
	}
	if err := s.writable(ctx, sess, candidateID); err != nil {
		return err
	}

	questions, err := s.catalog.ListQuestions(ctx, sess.TestID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	normalized, err := normalizeAnswers(questions, entries)
	if err != nil {
		return err
	}

	if err := s.progress.ReplaceAnswers(ctx, sessionID, candidateID, normalized); err != nil {
		if errors.Is(err, repository.ErrSubmitted) {
			return ErrAlreadySubmitted
		}
		return err
	}
	s.log.Debug().
		Int("session_id", sessionID).
		Int("candidate_id", candidateID).
		Int("answers", len(normalized)).
		Msg("Progress saved")
	return nil
}

// normalizeAnswers checks entries against the test and zero-pads multi-choice masks.
func normalizeAnswers(questions []model.Question, entries []model.AnswerEntry) ([]model.AnswerEntry, error) {
	byID := make(map[int]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	seen := make(map[int]struct{}, len(entries))
	out := make([]model.AnswerEntry, 0, len(entries))
	for _, e := range entries {
		q, ok := byID[e.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: question %d is not part of this test", ErrInvalidAnswer, e.QuestionID)
		}
		if _, dup := seen[e.QuestionID]; dup {
			return nil, fmt.Errorf("%w: question %d answered twice", ErrInvalidAnswer, e.QuestionID)
		}
		seen[e.QuestionID] = struct{}{}

		value := strings.TrimSpace(e.AnswerChosen)
		switch q.Type {
		case model.QuestionTypeSingleChoice:
			optionID, err := answercode.ParseSingle(value)
			if err != nil || q.OptionIndex(optionID) < 0 {
				return nil, fmt.Errorf("%w: %q is not an option of question %d", ErrInvalidAnswer, e.AnswerChosen, q.ID)
			}
			value = answercode.Single(optionID)
		case model.QuestionTypeMultipleChoices:
			mask, err := answercode.Decode(value, len(q.Answers))
			if err != nil {
				return nil, fmt.Errorf("%w: question %d: %v", ErrInvalidAnswer, q.ID, err)
			}
			value = answercode.Encode(mask, len(q.Answers))
		}
		out = append(out, model.AnswerEntry{QuestionID: q.ID, AnswerChosen: value})
	}
	return out, nil
}

// Submit finishes the candidate's attempt. A second submit is rejected.
func (s *TakingTestService) Submit(ctx context.Context, sessionID, candidateID int) error {
	sess, err := s.session(ctx, sessionID, candidateID)
	if err != nil {
		return err
	}
	if err := s.writable(ctx, sess, candidateID); err != nil {
		return err
	}

	first, err := s.progress.MarkSubmitted(ctx, sessionID, candidateID)
	if err != nil {
		return err
	}
	if !first {
		return ErrAlreadySubmitted
	}

	now := s.opts.Now()
	log := s.log.With().Int("session_id", sessionID).Int("candidate_id", candidateID).Logger()

	if s.opts.QueueSubmissions {
		answers, err := s.progress.Answers(ctx, sessionID, candidateID)
		if err == nil {
			err = s.progress.EnqueueSubmission(ctx, &model.Submission{
				SessionID:   sessionID,
				CandidateID: candidateID,
				Answers:     answers,
				SubmittedAt: now.UTC(),
				AutoClosed:  now.After(sess.Deadline()),
			})
		}
		if err != nil {
			if uerr := s.progress.UnmarkSubmitted(ctx, sessionID, candidateID); uerr != nil {
				log.Error().Err(uerr).Msg("Failed to clear submission marker")
			}
			return err
		}
	}

	log.Info().Bool("late", now.After(sess.Deadline())).Msg("Attempt submitted")
	return nil
}

// ─── Admin ──────────────────────────────────────────────────────────

// Reschedule moves a session and notifies connected candidates.
func (s *TakingTestService) Reschedule(ctx context.Context, sessionID int, req model.RescheduleRequest) (model.SessionInfo, error) {
	start, err := time.ParseInLocation(model.StartTimeLayout, strings.TrimSpace(req.StartTime), s.opts.Location)
	if err != nil {
		return model.SessionInfo{}, fmt.Errorf("%w: start time must look like 31/12/2030 09:00", ErrInvalidSchedule)
	}

	sess, err := s.catalog.Reschedule(ctx, sessionID, start, req.DurationMinutes)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.SessionInfo{}, ErrSessionNotFound
		}
		return model.SessionInfo{}, fmt.Errorf("reschedule: %w", err)
	}

	info := sess.Info(s.opts.Location, "")
	if err := s.progress.PublishSessionUpdate(ctx, info); err != nil {
		// The schedule is stored; clients pick it up on their next load.
		s.log.Error().Err(err).Int("session_id", sessionID).Msg("Publish session update failed")
	}
	s.log.Info().
		Int("session_id", sessionID).
		Str("start_time", info.StartTime).
		Str("time_limit", info.TimeLimit).
		Msg("Session rescheduled")
	return info, nil
}

// Subscribe streams schedule changes of a session the candidate is assigned to.
func (s *TakingTestService) Subscribe(ctx context.Context, sessionID, candidateID int) (<-chan model.SessionInfo, func(), error) {
	if _, err := s.session(ctx, sessionID, candidateID); err != nil {
		return nil, nil, err
	}
	return s.progress.SubscribeSessionUpdates(ctx, sessionID)
}
