package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/config"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// ErrSubmitted is returned when answers are written after the submission marker.
var ErrSubmitted = errors.New("attempt already submitted")

// ProgressStore keeps candidates' working answers, submission markers and the
// submission queue in Redis, and carries session updates over PubSub.
type ProgressStore struct {
	rdb *redis.Client
	// beforeWrite runs between the marker check and EXEC (tests).
	beforeWrite func()
}

// NewProgressStore creates a new ProgressStore.
func NewProgressStore(rdb *redis.Client) *ProgressStore {
	return &ProgressStore{rdb: rdb}
}

// ReplaceAnswers overwrites the saved answers with entries. Saves are full
// snapshots, so questions missing from entries are dropped. The write is
// discarded with ErrSubmitted once the submission marker is set, including when
// it is set while the write is being prepared.
func (s *ProgressStore) ReplaceAnswers(ctx context.Context, sessionID, candidateID int, entries []model.AnswerEntry) error {
	key := config.CacheKey.AnswersKey(sessionID, candidateID)
	marker := config.CacheKey.SubmittedKey(sessionID, candidateID)

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, marker).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrSubmitted
		}
		if s.beforeWrite != nil {
			s.beforeWrite()
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if len(entries) == 0 {
				return nil
			}
			values := make([]any, 0, len(entries)*2)
			for _, e := range entries {
				values = append(values, strconv.Itoa(e.QuestionID), e.AnswerChosen)
			}
			pipe.HSet(ctx, key, values...)
			return nil
		})
		return err
	}, marker)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSubmitted), errors.Is(err, redis.TxFailedErr):
		return ErrSubmitted
	default:
		return fmt.Errorf("replace answers: %w", err)
	}
}

// Answers returns the saved answers keyed by question id.
func (s *ProgressStore) Answers(ctx context.Context, sessionID, candidateID int) (map[string]string, error) {
	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.AnswersKey(sessionID, candidateID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	return answers, nil
}

// MarkSubmitted sets the submission marker. It reports false if it was already set.
func (s *ProgressStore) MarkSubmitted(ctx context.Context, sessionID, candidateID int) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, config.CacheKey.SubmittedKey(sessionID, candidateID), "1", 0).Result()
	if err != nil {
		return false, fmt.Errorf("mark submitted: %w", err)
	}
	return ok, nil
}

// UnmarkSubmitted clears the marker after a failed submission.
func (s *ProgressStore) UnmarkSubmitted(ctx context.Context, sessionID, candidateID int) error {
	return s.rdb.Del(ctx, config.CacheKey.SubmittedKey(sessionID, candidateID)).Err()
}

// IsSubmitted reports whether the candidate has submitted the session.
func (s *ProgressStore) IsSubmitted(ctx context.Context, sessionID, candidateID int) (bool, error) {
	n, err := s.rdb.Exists(ctx, config.CacheKey.SubmittedKey(sessionID, candidateID)).Result()
	if err != nil {
		return false, fmt.Errorf("check submitted: %w", err)
	}
	return n == 1, nil
}

// EnqueueSubmission queues a finished attempt for the persistence worker.
func (s *ProgressStore) EnqueueSubmission(ctx context.Context, sub *model.Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue submission: %w", err)
	}
	return nil
}

// PublishSessionUpdate announces new session metadata to connected candidates.
func (s *ProgressStore) PublishSessionUpdate(ctx context.Context, info model.SessionInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal session update: %w", err)
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.SessionUpdatesChannel(info.ID), payload).Err(); err != nil {
		return fmt.Errorf("publish session update: %w", err)
	}
	return nil
}

// SubscribeSessionUpdates streams decoded updates for a session until ctx ends
// or cancel is called. The subscription is confirmed before it returns.
func (s *ProgressStore) SubscribeSessionUpdates(ctx context.Context, sessionID int) (<-chan model.SessionInfo, func(), error) {
	pubsub := s.rdb.Subscribe(ctx, config.CacheKey.SessionUpdatesChannel(sessionID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe session updates: %w", err)
	}

	out := make(chan model.SessionInfo, 4)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var info model.SessionInfo
				if err := json.Unmarshal([]byte(msg.Payload), &info); err != nil {
					continue
				}
				select {
				case out <- info:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}
