package takingtest

import (
	"context"
	"errors"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// API is the part of the taking-test REST API an attempt consumes. Every call
// carries the bearer token explicitly.
type API interface {
	Session(ctx context.Context, token string, sessionID int) (model.SessionInfo, error)
	Test(ctx context.Context, token string, sessionID int) (model.TestInfo, error)
	Questions(ctx context.Context, token string, sessionID int) ([]model.Question, error)
	SaveProgress(ctx context.Context, token string, sessionID int, entries []model.AnswerEntry) error
	Submit(ctx context.Context, token string, sessionID int) error
}

// Level is the severity of a user-facing notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows toasts to the candidate.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

// Notify calls f.
func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

// Navigation moves the candidate off the test page.
type Navigation interface {
	// ToLogin is used when no token is available.
	ToLogin()
	// ToHome is used when the attempt cannot be loaded.
	ToHome()
	// ToFinished is the post-submit landing.
	ToFinished()
}

// userMessage extracts the text to show for err. Errors that carry a server message
// expose it through UserMessage.
func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
