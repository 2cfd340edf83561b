package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/config"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// SubmissionSaver persists a finished attempt. Saving the same attempt twice must
// be harmless.
type SubmissionSaver interface {
	SaveSubmission(ctx context.Context, sub *model.Submission) error
}

// SubmissionWorker consumes persist_submissions_queue and writes attempts to PostgreSQL.
type SubmissionWorker struct {
	saver      SubmissionSaver
	rdb        *redis.Client
	log        zerolog.Logger
	queue      string
	pollWait   time.Duration
	retryDelay time.Duration
}

// NewSubmissionWorker creates a new SubmissionWorker.
func NewSubmissionWorker(saver SubmissionSaver, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		saver:      saver,
		rdb:        rdb,
		log:        log.With().Str("component", "submission_worker").Logger(),
		queue:      config.WorkerKey.PersistSubmissionsQueue,
		pollWait:   time.Second,
		retryDelay: 5 * time.Second,
	}
}

// Start runs the worker loop until ctx is cancelled, then drains the queue.
// Call in a goroutine.
func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *SubmissionWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or the poll wait elapses.
	result, err := w.rdb.BLPop(ctx, w.pollWait, w.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			sleep(ctx, w.pollWait)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	sub, ok := w.decode(result[1])
	if !ok {
		return
	}

	if err := w.saver.SaveSubmission(ctx, sub); err != nil {
		w.log.Error().Err(err).
			Int("candidate_id", sub.CandidateID).
			Int("session_id", sub.SessionID).
			Dur("retry_in", w.retryDelay).
			Msg("Persist error, requeueing")
		// Requeue with a fresh context so shutdown does not lose the item.
		w.rdb.RPush(context.Background(), w.queue, result[1])
		sleep(ctx, w.retryDelay)
		return
	}

	w.log.Debug().
		Int("candidate_id", sub.CandidateID).
		Int("session_id", sub.SessionID).
		Int("answers", len(sub.Answers)).
		Msg("Submission persisted")
}

func (w *SubmissionWorker) decode(raw string) (*model.Submission, bool) {
	var sub model.Submission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		w.log.Error().Err(err).Str("payload", raw).Msg("Unmarshal error, dropping")
		return nil, false
	}
	return &sub, true
}

// drain processes all remaining items in the queue before shutdown.
func (w *SubmissionWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, w.queue).Result()
		if err != nil {
			break
		}

		sub, ok := w.decode(raw)
		if !ok {
			continue
		}

		if err := w.saver.SaveSubmission(ctx, sub); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, w.queue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
