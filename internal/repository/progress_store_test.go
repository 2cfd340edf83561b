package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/config"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

func newTestStore(t *testing.T) (*ProgressStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewProgressStore(rdb), mr, rdb
}

func TestReplaceAnswersOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	require.NoError(t, store.ReplaceAnswers(ctx, 7, 1, []model.AnswerEntry{
		{QuestionID: 11, AnswerChosen: "102"},
		{QuestionID: 12, AnswerChosen: "10"},
	}))
	require.NoError(t, store.ReplaceAnswers(ctx, 7, 1, []model.AnswerEntry{
		{QuestionID: 12, AnswerChosen: "01"},
	}))

	answers, err := store.Answers(ctx, 7, 1)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"12": "01"}, answers)

	require.NoError(t, store.ReplaceAnswers(ctx, 7, 1, nil))
	answers, err = store.Answers(ctx, 7, 1)
	require.NoError(t, err)
	require.Empty(t, answers)
}

func TestReplaceAnswersAfterSubmitIsRejected(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	require.NoError(t, store.ReplaceAnswers(ctx, 7, 1, []model.AnswerEntry{{QuestionID: 11, AnswerChosen: "102"}}))
	_, err := store.MarkSubmitted(ctx, 7, 1)
	require.NoError(t, err)

	err = store.ReplaceAnswers(ctx, 7, 1, []model.AnswerEntry{{QuestionID: 11, AnswerChosen: "101"}})
	require.ErrorIs(t, err, ErrSubmitted)

	answers, err := store.Answers(ctx, 7, 1)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"11": "102"}, answers)
}

func TestReplaceAnswersRacingSubmitIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	require.NoError(t, store.ReplaceAnswers(ctx, 7, 1, []model.AnswerEntry{{QuestionID: 11, AnswerChosen: "102"}}))

	// The submit lands after the marker check but before EXEC.
	store.beforeWrite = func() {
		first, err := store.MarkSubmitted(ctx, 7, 1)
		require.NoError(t, err)
		require.True(t, first)
	}
	err := store.ReplaceAnswers(ctx, 7, 1, []model.AnswerEntry{{QuestionID: 11, AnswerChosen: "101"}})
	require.ErrorIs(t, err, ErrSubmitted)

	answers, err := store.Answers(ctx, 7, 1)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"11": "102"}, answers)
}

func TestMarkSubmittedOnce(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	first, err := store.MarkSubmitted(ctx, 7, 1)
	require.NoError(t, err)
	require.True(t, first)

	second, err := store.MarkSubmitted(ctx, 7, 1)
	require.NoError(t, err)
	require.False(t, second)

	done, err := store.IsSubmitted(ctx, 7, 1)
	require.NoError(t, err)
	require.True(t, done)

	require.NoError(t, store.UnmarkSubmitted(ctx, 7, 1))
	done, err = store.IsSubmitted(ctx, 7, 1)
	require.NoError(t, err)
	require.False(t, done)
}

func TestEnqueueSubmission(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newTestStore(t)

	sub := &model.Submission{SessionID: 7, CandidateID: 1, Answers: map[string]string{"11": "102"}, SubmittedAt: time.Now().UTC()}
	require.NoError(t, store.EnqueueSubmission(ctx, sub))

	items, err := mr.List(config.WorkerKey.PersistSubmissionsQueue)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var got model.Submission
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	require.Equal(t, "102", got.Answers["11"])
}

func TestSessionUpdatesRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	store, _, _ := newTestStore(t)

	updates, stop, err := store.SubscribeSessionUpdates(ctx, 7)
	require.NoError(t, err)
	defer stop()

	// Other sessions are not delivered.
	require.NoError(t, store.PublishSessionUpdate(ctx, model.SessionInfo{ID: 8, TimeLimit: "PT9H"}))
	require.NoError(t, store.PublishSessionUpdate(ctx, model.SessionInfo{ID: 7, StartTime: "01/01/2030 09:00", TimeLimit: "PT2H00M"}))

	select {
	case info := <-updates:
		require.Equal(t, 7, info.ID)
		require.Equal(t, "PT2H00M", info.TimeLimit)
	case <-ctx.Done():
		t.Fatal("timed out waiting for session update")
	}

	stop()
	for range updates {
	}
}
