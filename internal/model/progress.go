package model

import "time"

// AnswerEntry is one element of the save-progress body.
type AnswerEntry struct {
	QuestionID   int    `json:"questionId" binding:"required,min=1"`
	AnswerChosen string `json:"answerChosen" binding:"required,max=256"`
}

// Submission is a finished attempt waiting to be persisted.
type Submission struct {
	SessionID   int               `json:"session_id"`
	CandidateID int               `json:"candidate_id"`
	Answers     map[string]string `json:"answers"`
	SubmittedAt time.Time         `json:"submitted_at"`
	AutoClosed  bool              `json:"auto_closed"`
}
