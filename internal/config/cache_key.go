package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AnswersKey returns the hash holding a candidate's saved answers for a session,
// field = question id, value = encoded answer.
func (r *CacheKeyStruct) AnswersKey(sessionID, candidateID int) string {
	return fmt.Sprintf("candidate:%d:session:%d:answers", candidateID, sessionID)
}

// SubmittedKey returns the marker set once a candidate has submitted a session.
func (r *CacheKeyStruct) SubmittedKey(sessionID, candidateID int) string {
	return fmt.Sprintf("candidate:%d:session:%d:submitted", candidateID, sessionID)
}

// SessionUpdatesChannel returns the Redis PubSub channel for session schedule changes.
func (r *CacheKeyStruct) SessionUpdatesChannel(sessionID int) string {
	return fmt.Sprintf("session:%d:updates", sessionID)
}

var CacheKey = NewCacheKeyStruct()
