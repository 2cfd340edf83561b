package model

// QuestionType enumerates how a question is answered.
type QuestionType string

const (
	QuestionTypeSingleChoice    QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoices QuestionType = "MULTIPLE_CHOICES"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultipleChoices
}

// Question is a single test question with its options in server order.
type Question struct {
	ID      int          `json:"id" yaml:"id"`
	Content string       `json:"content" yaml:"content"`
	Type    QuestionType `json:"type" yaml:"type"`
	Answers []Option     `json:"answers" yaml:"answers"`
}

// Option is one selectable answer of a question.
// IsCorrect is only populated for authoring flows; candidate payloads leave it false so
// it is dropped from the JSON.
type Option struct {
	ID        int    `json:"id" yaml:"id"`
	Content   string `json:"content" yaml:"content"`
	IsCorrect bool   `json:"isCorrect,omitempty" yaml:"isCorrect"`
}

// ForCandidate returns a copy of q with every correctness flag cleared.
func (q Question) ForCandidate() Question {
	out := q
	out.Answers = make([]Option, len(q.Answers))
	for i, o := range q.Answers {
		out.Answers[i] = Option{ID: o.ID, Content: o.Content}
	}
	return out
}

// OptionIndex returns the position of optionID in q, or -1.
func (q Question) OptionIndex(optionID int) int {
	for i, o := range q.Answers {
		if o.ID == optionID {
			return i
		}
	}
	return -1
}
