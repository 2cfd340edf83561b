package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Catalog is the read side of accounts, tests and sessions plus the one admin
// mutation the API exposes.
type Catalog interface {
	GetCandidateByUsername(ctx context.Context, username string) (*model.Candidate, error)
	GetSession(ctx context.Context, sessionID int) (*model.Session, error)
	GetTest(ctx context.Context, testID int) (*model.Test, error)
	// ListQuestions returns the test's questions in order, correctness flags included.
	ListQuestions(ctx context.Context, testID int) ([]model.Question, error)
	Reschedule(ctx context.Context, sessionID int, start time.Time, durationMinutes int) (*model.Session, error)
}
