package repository

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// Seed is the YAML fixture format shared by the in-memory catalog and cmd/seed.
type Seed struct {
	Candidates []model.Candidate `yaml:"candidates"`
	Tests      []SeedTest        `yaml:"tests"`
	Sessions   []SeedSession     `yaml:"sessions"`
}

// SeedTest is a test with its questions inline.
type SeedTest struct {
	model.Test `yaml:",inline"`
	Questions  []model.Question `yaml:"questions"`
}

// SeedSession is a session whose start time is written in the wire layout.
type SeedSession struct {
	model.Session `yaml:",inline"`
	RawStartTime  string `yaml:"startTime"`
}

// LoadSeed reads and validates a fixture file.
func LoadSeed(path string, loc *time.Location) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data, loc)
}

// ParseSeed decodes a fixture. Session start times are interpreted in loc and
// question ids are collected onto their tests.
func ParseSeed(data []byte, loc *time.Location) (*Seed, error) {
	if loc == nil {
		loc = time.Local
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	questionIDs := make(map[int]struct{})
	testIDs := make(map[int]struct{}, len(seed.Tests))
	for i := range seed.Tests {
		t := &seed.Tests[i]
		testIDs[t.ID] = struct{}{}
		t.QuestionIDs = t.QuestionIDs[:0]
		for _, q := range t.Questions {
			if !q.Type.Valid() {
				return nil, fmt.Errorf("test %d: question %d: unknown type %q", t.ID, q.ID, q.Type)
			}
			if len(q.Answers) == 0 {
				return nil, fmt.Errorf("test %d: question %d has no options", t.ID, q.ID)
			}
			if _, dup := questionIDs[q.ID]; dup {
				return nil, fmt.Errorf("test %d: duplicate question id %d", t.ID, q.ID)
			}
			questionIDs[q.ID] = struct{}{}
			t.QuestionIDs = append(t.QuestionIDs, q.ID)
		}
	}

	for i := range seed.Sessions {
		s := &seed.Sessions[i]
		start, err := time.ParseInLocation(model.StartTimeLayout, strings.TrimSpace(s.RawStartTime), loc)
		if err != nil {
			return nil, fmt.Errorf("session %d: start time: %w", s.ID, err)
		}
		if _, ok := testIDs[s.TestID]; !ok {
			return nil, fmt.Errorf("session %d: unknown test %d", s.ID, s.TestID)
		}
		s.StartTime = start
	}
	return &seed, nil
}

// HashPasswords replaces plaintext passwords with hashes produced by hash.
func (s *Seed) HashPasswords(hash func(string) (string, error)) error {
	for i := range s.Candidates {
		c := &s.Candidates[i]
		if c.Password == "" {
			continue
		}
		h, err := hash(c.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", c.Username, err)
		}
		c.PasswordHash = h
		c.Password = ""
	}
	return nil
}
