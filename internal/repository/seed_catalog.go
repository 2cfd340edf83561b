package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// SeedCatalog serves a Seed from memory. Passwords must already be hashed.
type SeedCatalog struct {
	mu         sync.RWMutex
	candidates map[string]model.Candidate
	sessions   map[int]model.Session
	tests      map[int]model.Test
	questions  map[int][]model.Question
}

// NewSeedCatalog indexes seed.
func NewSeedCatalog(seed *Seed) *SeedCatalog {
	c := &SeedCatalog{
		candidates: make(map[string]model.Candidate, len(seed.Candidates)),
		sessions:   make(map[int]model.Session, len(seed.Sessions)),
		tests:      make(map[int]model.Test, len(seed.Tests)),
		questions:  make(map[int][]model.Question, len(seed.Tests)),
	}
	for _, cand := range seed.Candidates {
		c.candidates[cand.Username] = cand
	}
	for _, t := range seed.Tests {
		c.tests[t.ID] = t.Test
		c.questions[t.ID] = t.Questions
	}
	for _, s := range seed.Sessions {
		c.sessions[s.ID] = s.Session
	}
	return c
}

func (c *SeedCatalog) GetCandidateByUsername(_ context.Context, username string) (*model.Candidate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cand, ok := c.candidates[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &cand, nil
}

func (c *SeedCatalog) GetSession(_ context.Context, sessionID int) (*model.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (c *SeedCatalog) GetTest(_ context.Context, testID int) (*model.Test, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tests[testID]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (c *SeedCatalog) ListQuestions(_ context.Context, testID int) ([]model.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	qs, ok := c.questions[testID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]model.Question(nil), qs...), nil
}

func (c *SeedCatalog) Reschedule(_ context.Context, sessionID int, start time.Time, durationMinutes int) (*model.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.StartTime = start
	s.DurationMinutes = durationMinutes
	c.sessions[sessionID] = s
	return &s, nil
}
