package model

import (
	"fmt"
	"time"
)

// StartTimeLayout is the wire layout of a session start time (dd/MM/yyyy HH:mm).
const StartTimeLayout = "02/01/2006 15:04"

// SessionStatus is the lifecycle state of a session as seen by a candidate.
type SessionStatus string

const (
	SessionStatusUpcoming  SessionStatus = "UPCOMING"
	SessionStatusOngoing   SessionStatus = "ONGOING"
	SessionStatusClosed    SessionStatus = "CLOSED"
	SessionStatusSubmitted SessionStatus = "SUBMITTED"
)

// Session is a scheduled instance of a test.
type Session struct {
	ID              int       `json:"id" yaml:"id"`
	TestID          int       `json:"testId" yaml:"testId"`
	Name            string    `json:"sessionName" yaml:"name"`
	StartTime       time.Time `json:"-" yaml:"-"`
	DurationMinutes int       `json:"-" yaml:"durationMinutes"`
	CandidateIDs    []int     `json:"-" yaml:"candidates"`
}

// Deadline is the absolute end of the session.
func (s Session) Deadline() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// HasCandidate reports whether candidateID is assigned to the session.
func (s Session) HasCandidate(candidateID int) bool {
	for _, id := range s.CandidateIDs {
		if id == candidateID {
			return true
		}
	}
	return false
}

// SessionInfo is the session metadata served on GET /taking-test/{sessionId}.
type SessionInfo struct {
	ID        int           `json:"id"`
	Name      string        `json:"sessionName,omitempty"`
	StartTime string        `json:"startTime"`
	TimeLimit string        `json:"timeLimit"`
	Status    SessionStatus `json:"status,omitempty"`
}

// Info renders the session in its wire form, with times expressed in loc.
func (s Session) Info(loc *time.Location, status SessionStatus) SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		Name:      s.Name,
		StartTime: s.StartTime.In(loc).Format(StartTimeLayout),
		TimeLimit: FormatTimeLimit(s.DurationMinutes),
		Status:    status,
	}
}

// FormatTimeLimit renders minutes as PT#H#M.
func FormatTimeLimit(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("PT%dH%02dM", minutes/60, minutes%60)
}

// RescheduleRequest is the admin payload for moving a session.
type RescheduleRequest struct {
	StartTime       string `json:"startTime" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required,min=1,max=600"`
}
